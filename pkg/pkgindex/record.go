// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package pkgindex

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"

	"envtool.dev/x/envtool/pkg/manifest"
)

// SelfPlaceholder refers to a package's own install path within its
// default env bindings. It is substituted when the snapshot is loaded.
const SelfPlaceholder = "${self}"

type SemVer semver.Version

func NewSemVer(v *semver.Version) *SemVer {
	s := SemVer(*v)
	return &s
}

func (v *SemVer) Value() semver.Version {
	return (semver.Version)(*v)
}

func (v *SemVer) UnmarshalYAML(data []byte) error {
	var versionStr string
	if err := yaml.Unmarshal(data, &versionStr); err != nil {
		return fmt.Errorf("failed to unmarshal 'version': %w", err)
	}
	parsedVersion, err := semver.NewVersion(versionStr)
	if err != nil {
		return fmt.Errorf("invalid semantic version: %w", err)
	}
	*v = SemVer(*parsedVersion)
	return nil
}

func (v *SemVer) MarshalYAML() ([]byte, error) {
	return []byte(v.Value().String()), nil
}

var _ yaml.BytesUnmarshaler = (*SemVer)(nil)
var _ yaml.BytesMarshaler = (*SemVer)(nil)

// PackageRecord is one resolvable candidate: an installed store entry, a
// catalog entry, or an executable discovered on the host PATH. Host records
// carry a nil Version and never satisfy constrained requests.
type PackageRecord struct {
	Name        string             `yaml:"name"`
	Version     *SemVer            `yaml:"version,omitempty"`
	InstallPath string             `yaml:"install-path"`
	Binaries    []string           `yaml:"binaries,omitempty"`
	Libraries   []string           `yaml:"libraries,omitempty"`
	Env         manifest.Templates `yaml:"env,omitempty"`
	Host        bool               `yaml:"host,omitempty"`
}

// SearchPaths lists the executable/library directories this record
// contributes to the composed environment, in bin-then-lib order.
func (r *PackageRecord) SearchPaths() []string {
	if r.Host {
		return []string{r.InstallPath}
	}

	var paths []string
	if len(r.Binaries) > 0 {
		paths = append(paths, filepath.Join(r.InstallPath, "bin"))
	}
	if len(r.Libraries) > 0 {
		paths = append(paths, filepath.Join(r.InstallPath, "lib"))
	}
	return paths
}

func (r *PackageRecord) VersionString() string {
	if r.Version == nil {
		return "host"
	}
	return r.Value().String()
}

func (r *PackageRecord) Value() semver.Version {
	return r.Version.Value()
}

// Ref is the record's cache reference, e.g. "gcc-13.2.0"
func (r *PackageRecord) Ref() string {
	return r.Name + "-" + r.VersionString()
}

func (r *PackageRecord) String() string {
	return r.Name + "@" + r.VersionString()
}

// recordEnv copies default bindings, substituting the package's own install
// path for ${self} and dropping any PATH binding. PATH is always assembled
// from search paths, a package cannot bind it.
func recordEnv(pkgName string, env manifest.Templates, installPath string) manifest.Templates {
	if env == nil {
		return nil
	}
	out := make(manifest.Templates, len(env))
	for k, t := range env {
		if k == manifest.ReservedPathVar {
			slog.Warn("package env binding for PATH is ignored", "package", pkgName)
			continue
		}
		out[k] = &manifest.Template{
			Var:              k,
			Value:            strings.ReplaceAll(t.Value, SelfPlaceholder, installPath),
			ConflictStrategy: t.ConflictStrategy,
		}
	}
	return out
}
