// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package platform models the os/arch pairs a catalog entry is valid on.
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
)

// Platform is a single os/arch pair, rendered as "linux/amd64".
type Platform struct {
	// OS specifies the operating system, for example `linux` or `darwin`.
	OS string

	// Architecture specifies the CPU architecture, for example `amd64` or
	// `arm64`.
	Architecture string
}

func Parse(platformStr string) (*Platform, error) {
	parts := strings.Split(platformStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("failed to parse platform %q: expected format os/arch", platformStr)
	}
	return &Platform{OS: parts[0], Architecture: parts[1]}, nil
}

// Current is the platform this process runs on.
func Current() *Platform {
	return &Platform{OS: runtime.GOOS, Architecture: runtime.GOARCH}
}

func (p *Platform) Equal(other *Platform) bool {
	return other != nil && p.OS == other.OS && p.Architecture == other.Architecture
}

func (p *Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Architecture)
}

func (p *Platform) MarshalYAML() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Platform) UnmarshalYAML(bytes []byte) error {
	var unmarshalled string
	if err := yaml.Unmarshal(bytes, &unmarshalled); err != nil {
		return fmt.Errorf("failed to unmarshal platform: %w", err)
	}
	parsed, err := Parse(unmarshalled)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}

var _ yaml.BytesUnmarshaler = (*Platform)(nil)
var _ yaml.BytesMarshaler = (*Platform)(nil)
