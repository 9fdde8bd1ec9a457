// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package pkgindex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"github.com/ulikunitz/xz"

	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/platform"
	"envtool.dev/x/envtool/pkg/schema"
	"envtool.dev/x/envtool/pkg/toolconfig"
	"envtool.dev/x/envtool/pkg/utils"
)

var ErrInvalidCatalog = fmt.Errorf("invalid package catalog")
var ErrMissingCatalogField = fmt.Errorf("%w: a required field is missing", ErrInvalidCatalog)

const (
	CatalogKind          = "PackageIndex"
	CatalogSchemaVersion = "v1"
	CatalogAPIVersion    = schema.APIGroup + "/" + CatalogSchemaVersion
)

// Catalog is the optional store-level index listing candidates whose install
// paths may live outside the store (system toolchains, shared read-only
// installs). Plain and xz-compressed files are both recognized.
type Catalog struct {
	schema.ManifestMeta `yaml:",inline"`
	Spec                *CatalogSpec `yaml:"spec"`
}

type CatalogSpec struct {
	Packages []*CatalogEntry `yaml:"packages"`
}

func (s *CatalogSpec) UnmarshalYAML(bytes []byte) error {
	type Alias CatalogSpec
	alias := Alias{}
	if err := yaml.UnmarshalWithOptions(bytes, &alias, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to unmarshal CatalogSpec: %w", err)
	}
	if alias.Packages == nil {
		return fmt.Errorf("%w: 'packages'", ErrMissingCatalogField)
	}
	*s = CatalogSpec(alias)
	return nil
}

type CatalogEntry struct {
	Name        string             `yaml:"name"`
	Version     *SemVer            `yaml:"version"`
	InstallPath string             `yaml:"install-path"`
	Binaries    []string           `yaml:"binaries,omitempty"`
	Libraries   []string           `yaml:"libraries,omitempty"`
	Env         manifest.Templates `yaml:"env,omitempty"`

	// Platforms restricts the entry to the listed os/arch pairs. Empty
	// means valid everywhere.
	Platforms []*platform.Platform `yaml:"platforms,omitempty"`
}

func (e *CatalogEntry) UnmarshalYAML(bytes []byte) error {
	type Alias CatalogEntry
	alias := Alias{}
	if err := yaml.UnmarshalWithOptions(bytes, &alias, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to unmarshal catalog entry: %w", err)
	}
	if alias.Name == "" {
		return fmt.Errorf("%w: entry 'name'", ErrMissingCatalogField)
	}
	if !manifest.IsValidPackageName(alias.Name) {
		return fmt.Errorf("%w: %q is not a valid package name", ErrInvalidCatalog, alias.Name)
	}
	if alias.Version == nil {
		return fmt.Errorf("%w: entry 'version'", ErrMissingCatalogField)
	}
	if alias.InstallPath == "" {
		return fmt.Errorf("%w: entry 'install-path'", ErrMissingCatalogField)
	}
	*e = CatalogEntry(alias)
	return nil
}

var _ yaml.BytesUnmarshaler = (*CatalogSpec)(nil)
var _ yaml.BytesUnmarshaler = (*CatalogEntry)(nil)

func (e *CatalogEntry) supportsPlatform(p *platform.Platform) bool {
	if len(e.Platforms) == 0 {
		return true
	}
	return lo.ContainsBy(e.Platforms, func(candidate *platform.Platform) bool {
		return candidate.Equal(p)
	})
}

// record resolves the entry against the directory containing the catalog
// file. Relative install paths are taken relative to that directory.
func (e *CatalogEntry) record(baseDir string) *PackageRecord {
	installPath := utils.ResolvePath(baseDir, e.InstallPath)
	return &PackageRecord{
		Name:        e.Name,
		Version:     e.Version,
		InstallPath: installPath,
		Binaries:    e.Binaries,
		Libraries:   e.Libraries,
		Env:         recordEnv(e.Name, e.Env, installPath),
	}
}

func ReadCatalog(filePath string) (*Catalog, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(filePath, ".xz") {
		xzReader, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		r = xzReader
	}

	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ReadCatalogContents(contents)
}

func ReadCatalogContents(contents []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalWithOptions(contents, &c, yaml.Strict()); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}

	s := schema.ManifestMeta{
		APIVersion: CatalogAPIVersion,
		Kind:       CatalogKind,
	}
	if err := s.ValidateSchema(c.ManifestMeta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, err.Error())
	}

	if c.Spec == nil {
		return nil, fmt.Errorf("%w: 'spec'", ErrMissingCatalogField)
	}

	return &c, nil
}

// findCatalog looks for index.yaml, then index.yaml.xz, in dir
func findCatalog(dir string) (string, bool) {
	for _, name := range []string{toolconfig.CatalogFilename, toolconfig.CatalogXZFilename} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
