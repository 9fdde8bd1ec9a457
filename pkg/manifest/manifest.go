// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"

	"envtool.dev/x/envtool/pkg/schema"
)

var ErrInvalidManifest = fmt.Errorf("invalid environment manifest")
var ErrMissingManifestField = fmt.Errorf("%w: a required field is missing", ErrInvalidManifest)

const (
	ManifestKind       = "DevShell"
	ManifestVersion    = "v1"
	ManifestAPIVersion = schema.APIGroup + "/" + ManifestVersion
)

// ReservedPathVar is assembled by the composer from package search paths
// and cannot be bound by manifests or packages.
const ReservedPathVar = "PATH"

type Manifest struct {
	AbsolutePath string `yaml:"-"`

	schema.ManifestMeta `yaml:",inline"`
	Spec                *Spec `yaml:"spec"`
}

// Constraint is a semver version range, e.g. "^13.2" or ">=3.45 <4".
// The raw form is kept so manifests and lockfiles render back verbatim.
type Constraint struct {
	raw    string
	parsed *semver.Constraints
}

func NewConstraint(raw string) (*Constraint, error) {
	parsed, err := semver.NewConstraint(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", raw, err)
	}
	return &Constraint{raw: raw, parsed: parsed}, nil
}

func (c *Constraint) Check(v *semver.Version) bool {
	return c.parsed.Check(v)
}

func (c *Constraint) String() string {
	return c.raw
}

func (c *Constraint) UnmarshalYAML(data []byte) error {
	var constraintStr string
	if err := yaml.Unmarshal(data, &constraintStr); err != nil {
		return fmt.Errorf("failed to unmarshal 'version': %w", err)
	}
	parsed, err := NewConstraint(constraintStr)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

func (c *Constraint) MarshalYAML() ([]byte, error) {
	return []byte(c.raw), nil
}

var _ yaml.BytesUnmarshaler = (*Constraint)(nil)
var _ yaml.BytesMarshaler = (*Constraint)(nil)

func ReadManifest(filePath string) (*Manifest, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return ReadManifestContents(bytes, abs)
}

func ReadManifestContents(contents []byte, absPath string) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(contents, &m, yaml.Strict()); err != nil {
		return nil, newParseError(absPath, errors.Join(ErrInvalidManifest, err))
	}

	s := schema.ManifestMeta{
		APIVersion: ManifestAPIVersion,
		Kind:       ManifestKind,
	}
	if err := s.ValidateSchema(m.ManifestMeta); err != nil {
		return nil, newParseError(absPath, fmt.Errorf("%w: %s", ErrInvalidManifest, err.Error()))
	}

	if m.Spec == nil {
		return nil, newParseError(absPath, fmt.Errorf("%w: 'spec'", ErrMissingManifestField))
	}

	m.AbsolutePath = absPath
	return &m, nil
}
