// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package devshell runs the manifest-to-environment pipeline end to end:
// locate and parse the manifest, snapshot the package index, resolve the
// requirements (honoring lockfile pins and the record cache) and compose
// the environment descriptor.
package devshell

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"envtool.dev/x/envtool/pkg/composer"
	"envtool.dev/x/envtool/pkg/lockfile"
	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/pkgindex"
	"envtool.dev/x/envtool/pkg/provenance"
	"envtool.dev/x/envtool/pkg/recordcache"
	"envtool.dev/x/envtool/pkg/resolver"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

var ErrNoManifest = fmt.Errorf("no %s found in the current directory or any parent. Change into an environment directory or pass a manifest path", toolconfig.ManifestFilename)

// Session is one manifest pinned against one index snapshot. All operations
// on a session see the same candidates, regardless of concurrent changes to
// the store.
type Session struct {
	Config   *toolconfig.Config
	Manifest *manifest.Manifest
	Snapshot *pkgindex.Snapshot

	pins map[string]*semver.Version
}

// Open locates the manifest (explicit path argument, ENVTOOL_MANIFEST, then
// ancestor search from the working directory), parses it, snapshots the
// package index and picks up lockfile pins when a lockfile sits next to the
// manifest.
func Open(config *toolconfig.Config, manifestArg string) (*Session, error) {
	manifestPath, err := locateManifest(manifestArg)
	if err != nil {
		return nil, err
	}

	m, err := manifest.ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	snapshot, err := pkgindex.Load(pkgindex.LoadOpts{
		StorePath:    config.StorePath,
		HostFallback: config.HostFallback,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{Config: config, Manifest: m, Snapshot: snapshot}
	if err := s.readPins(); err != nil {
		return nil, err
	}
	return s, nil
}

func locateManifest(manifestArg string) (string, error) {
	if manifestArg != "" {
		abs, err := filepath.Abs(manifestArg)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", err
		}
		// a directory argument means "the manifest inside it"
		if info.IsDir() {
			abs = filepath.Join(abs, toolconfig.ManifestFilename)
		}
		return abs, nil
	}

	manifestPath, ok, err := toolconfig.GetManifestAbsolutePath()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoManifest
	}
	return manifestPath, nil
}

func (s *Session) readPins() error {
	lock, err := lockfile.ReadLockfile(toolconfig.LockPathFor(s.Manifest.AbsolutePath))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	s.pins = lock.Pins()
	return nil
}

// Locked reports whether resolution is pinned by a lockfile.
func (s *Session) Locked() bool {
	return s.pins != nil
}

// Resolver returns a fresh resolver primed with the session's pins and,
// when enabled, the record cache.
func (s *Session) Resolver() *resolver.Resolver {
	r := resolver.New(s.Snapshot)
	r.Pins = s.pins
	if s.Config.RecordCache {
		r.Cache = recordcache.New(s.Config)
	}
	return r
}

// Resolve picks one concrete record per requirement, in manifest order.
func (s *Session) Resolve(ctx context.Context) ([]*pkgindex.PackageRecord, error) {
	return s.Resolver().Resolve(ctx, s.Manifest.Spec.Packages)
}

// Compose runs the full pipeline and stamps the descriptor with local VCS
// provenance when the manifest sits inside a git repository. Provenance is
// advisory metadata, a broken repository does not fail the build.
func (s *Session) Compose(ctx context.Context) (*composer.Descriptor, error) {
	records, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	d, err := composer.Compose(s.Manifest, records)
	if err != nil {
		return nil, err
	}

	info, err := provenance.Collect(filepath.Dir(s.Manifest.AbsolutePath))
	if err != nil {
		slog.Warn("skipping provenance stamp", "err", err.Error())
		return d, nil
	}
	d.Provenance = info
	return d, nil
}
