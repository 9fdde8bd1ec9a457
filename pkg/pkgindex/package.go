// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package pkgindex

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/schema"
)

var ErrInvalidPackageManifest = fmt.Errorf("invalid package manifest")
var ErrMissingPackageField = fmt.Errorf("%w: a required field is missing", ErrInvalidPackageManifest)

const (
	PackageKind          = "Package"
	PackageSchemaVersion = "v1"
	PackageAPIVersion    = schema.APIGroup + "/" + PackageSchemaVersion
)

// Package is the `package.yaml` descriptor at the root of a store entry.
type Package struct {
	schema.ManifestMeta `yaml:",inline"`
	Spec                *PackageSpec `yaml:"spec"`
}

type PackageSpec struct {
	Name      string             `yaml:"name"`
	Version   *SemVer            `yaml:"version"`
	Binaries  []string           `yaml:"binaries,omitempty"`
	Libraries []string           `yaml:"libraries,omitempty"`
	Env       manifest.Templates `yaml:"env,omitempty"`
}

func (s *PackageSpec) UnmarshalYAML(bytes []byte) error {
	type Alias PackageSpec
	alias := Alias{}
	if err := yaml.UnmarshalWithOptions(bytes, &alias, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to unmarshal PackageSpec: %w", err)
	}

	if alias.Name == "" {
		return fmt.Errorf("%w: 'name'", ErrMissingPackageField)
	}
	if !manifest.IsValidPackageName(alias.Name) {
		return fmt.Errorf("%w: %q is not a valid package name", ErrInvalidPackageManifest, alias.Name)
	}
	if alias.Version == nil {
		return fmt.Errorf("%w: 'version'", ErrMissingPackageField)
	}

	*s = PackageSpec(alias)
	return nil
}

var _ yaml.BytesUnmarshaler = (*PackageSpec)(nil)

func ReadPackage(filePath string) (*Package, error) {
	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ReadPackageContents(bytes)
}

func ReadPackageContents(contents []byte) (*Package, error) {
	var p Package
	if err := yaml.UnmarshalWithOptions(contents, &p, yaml.Strict()); err != nil {
		return nil, errors.Join(ErrInvalidPackageManifest, err)
	}

	s := schema.ManifestMeta{
		APIVersion: PackageAPIVersion,
		Kind:       PackageKind,
	}
	if err := s.ValidateSchema(p.ManifestMeta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPackageManifest, err.Error())
	}

	if p.Spec == nil {
		return nil, fmt.Errorf("%w: 'spec'", ErrMissingPackageField)
	}

	return &p, nil
}

// Record builds the resolvable candidate for a package installed at
// installPath, substituting ${self} in its default env bindings.
func (p *Package) Record(installPath string) *PackageRecord {
	return &PackageRecord{
		Name:        p.Spec.Name,
		Version:     p.Spec.Version,
		InstallPath: installPath,
		Binaries:    p.Spec.Binaries,
		Libraries:   p.Spec.Libraries,
		Env:         recordEnv(p.Spec.Name, p.Spec.Env, installPath),
	}
}
