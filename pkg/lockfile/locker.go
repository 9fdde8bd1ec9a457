// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"

	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/pkgindex"
	"envtool.dev/x/envtool/pkg/resolver"
	"envtool.dev/x/envtool/pkg/schema"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

var ErrLockfileOutOfSync = errors.New(toolconfig.LockFilename + " needs to be updated; please run 'envtool lock'")

type Locker struct {
	snapshot *pkgindex.Snapshot
	op       Operation
}

type Operation int

const (
	CheckOnly Operation = iota
	Regular
)

func New(snapshot *pkgindex.Snapshot, op Operation) *Locker {
	return &Locker{snapshot: snapshot, op: op}
}

// EnsureLockfile resolves the manifest from scratch and either writes the
// lockfile next to it (Regular) or verifies the existing one matches
// (CheckOnly). Host fallback records have no version to pin and are left
// out.
func (l *Locker) EnsureLockfile(ctx context.Context, m *manifest.Manifest) (*Lockfile, error) {
	expected, err := l.computeExpectedLockfile(ctx, m)
	if err != nil {
		return nil, err
	}
	lockfilePath := toolconfig.LockPathFor(m.AbsolutePath)

	if l.op == CheckOnly {
		return nil, checkLockfile(expected, lockfilePath)
	}

	return create(expected, lockfilePath)
}

func (l *Locker) computeExpectedLockfile(ctx context.Context, m *manifest.Manifest) (*Lockfile, error) {
	records, err := resolver.New(l.snapshot).Resolve(ctx, m.Spec.Packages)
	if err != nil {
		return nil, err
	}

	locked := lo.FilterMap(records, func(r *pkgindex.PackageRecord, _ int) (*LockedPackage, bool) {
		if r.Host {
			return nil, false
		}
		return &LockedPackage{Name: r.Name, Version: r.Version}, true
	})
	slices.SortFunc(locked, func(a, b *LockedPackage) int {
		return strings.Compare(a.Name, b.Name)
	})

	return &Lockfile{
		ManifestMeta: schema.ManifestMeta{
			APIVersion: LockAPIVersion,
			Kind:       LockKind,
		},
		Packages: locked,
	}, nil
}

func checkLockfile(expected *Lockfile, lockfilePath string) error {
	existing, err := ReadLockfile(lockfilePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", ErrLockfileOutOfSync, err)
	}
	if err != nil {
		return err
	}

	if existing.isInSync(expected) {
		return nil
	}
	return ErrLockfileOutOfSync
}

func create(expected *Lockfile, lockfilePath string) (*Lockfile, error) {
	data, err := yaml.Marshal(expected)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(lockfilePath, data, 0644); err != nil {
		return nil, err
	}
	return expected, nil
}
