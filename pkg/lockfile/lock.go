// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
	"github.com/samber/lo"

	"envtool.dev/x/envtool/pkg/pkgindex"
	"envtool.dev/x/envtool/pkg/schema"
)

const (
	LockKind       = "EnvironmentLock"
	LockVersion    = "v1"
	LockAPIVersion = schema.APIGroup + "/" + LockVersion
)

var ErrInvalidLockfile = fmt.Errorf("invalid lockfile")

type Lockfile struct {
	schema.ManifestMeta `yaml:",inline"`
	Packages            []*LockedPackage `yaml:"packages"`
}

type LockedPackage struct {
	Name    string           `yaml:"name"`
	Version *pkgindex.SemVer `yaml:"version"`
}

func ReadLockfile(filePath string) (*Lockfile, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return ReadLockfileContents(bytes)
}

func ReadLockfileContents(contents []byte) (*Lockfile, error) {
	var l Lockfile
	if err := yaml.Unmarshal(contents, &l); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLockfile, err.Error())
	}

	s := schema.ManifestMeta{
		APIVersion: LockAPIVersion,
		Kind:       LockKind,
	}
	if err := s.ValidateSchema(l.ManifestMeta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLockfile, err.Error())
	}

	for _, p := range l.Packages {
		if p.Name == "" || p.Version == nil {
			return nil, fmt.Errorf("%w: every locked package needs a name and an exact version", ErrInvalidLockfile)
		}
	}

	return &l, nil
}

// Pins maps each locked package to its exact version, the shape the
// resolver consumes.
func (l *Lockfile) Pins() map[string]*semver.Version {
	return lo.SliceToMap(l.Packages, func(p *LockedPackage) (string, *semver.Version) {
		v := p.Version.Value()
		return p.Name, &v
	})
}

// isInSync checks whether this (existing) lockfile matches an expected
// lockfile computed from a fresh resolution.
func (l *Lockfile) isInSync(expected *Lockfile) bool {
	if len(l.Packages) != len(expected.Packages) {
		return false
	}

	existing := l.Pins()
	for name, version := range expected.Pins() {
		pinned, ok := existing[name]
		if !ok || !pinned.Equal(version) {
			return false
		}
	}
	return true
}
