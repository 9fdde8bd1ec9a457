// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package pkgindex

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envtool.dev/x/envtool/pkg/pkgindex/testdata"
	"envtool.dev/x/envtool/pkg/platform"
	"envtool.dev/x/envtool/pkg/testutil"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

func loadFixtureSnapshot(t *testing.T, opts LoadOpts) *Snapshot {
	opts.StorePath = testutil.TestdataPath(t, "store")
	s, err := Load(opts)
	require.NoError(t, err)
	return s
}

func TestSnapshotCandidates(t *testing.T) {
	s := loadFixtureSnapshot(t, LoadOpts{})

	// store + catalog candidates, ascending by version
	gcc := s.Candidates("gcc")
	versions := lo.Map(gcc, func(r *PackageRecord, _ int) string { return r.VersionString() })
	assert.Equal(t, []string{"12.3.0", "13.2.0", "13.3.0"}, versions)

	// the malformed store entry is skipped, not fatal
	assert.Empty(t, s.Candidates("broken"))

	// catalog-only package
	zlib := s.Candidates("zlib")
	require.Len(t, zlib, 1)
	assert.Equal(t, "/opt/zlib-1.3.0", zlib[0].InstallPath)
	require.Contains(t, zlib[0].Env, "ZLIB_ROOT")
	assert.Equal(t, "/opt/zlib-1.3.0", zlib[0].Env["ZLIB_ROOT"].Value)
}

func TestSnapshotStoreShadowsCatalog(t *testing.T) {
	s := loadFixtureSnapshot(t, LoadOpts{})

	r, ok := s.Lookup("gcc", semver.MustParse("13.2.0"))
	require.True(t, ok)
	assert.Equal(t, testutil.TestdataPath(t, "store", "gcc-13.2.0"), r.InstallPath)
	assert.NotEqual(t, "/opt/shadowed/gcc-13.2.0", r.InstallPath)
}

func TestSnapshotCatalogRelativePaths(t *testing.T) {
	s := loadFixtureSnapshot(t, LoadOpts{})

	r, ok := s.Lookup("gcc", semver.MustParse("12.3.0"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(testutil.TestdataPath(t), "toolchains", "gcc-12.3.0"), r.InstallPath)
}

func TestSnapshotMissingStore(t *testing.T) {
	s, err := Load(LoadOpts{StorePath: filepath.Join(t.TempDir(), "no-such-store")})
	require.NoError(t, err)
	assert.Empty(t, s.Candidates("gcc"))
}

func TestHostCandidate(t *testing.T) {
	hostPath := testutil.TestdataPath(t, "hostbin")

	s := loadFixtureSnapshot(t, LoadOpts{HostFallback: true, HostPath: hostPath})

	r, ok := s.HostCandidate("rsync")
	require.True(t, ok)
	assert.True(t, r.Host)
	assert.Nil(t, r.Version)
	assert.Equal(t, hostPath, r.InstallPath)
	assert.Equal(t, []string{hostPath}, r.SearchPaths())

	// memoized for the snapshot's lifetime
	again, ok := s.HostCandidate("rsync")
	require.True(t, ok)
	assert.Same(t, r, again)

	_, ok = s.HostCandidate("nosuchtool")
	assert.False(t, ok)
}

func TestHostCandidateDisabled(t *testing.T) {
	s := loadFixtureSnapshot(t, LoadOpts{HostPath: testutil.TestdataPath(t, "hostbin")})

	_, ok := s.HostCandidate("rsync")
	assert.False(t, ok)
}

func TestSnapshotCatalogPlatformFilter(t *testing.T) {
	store := t.TempDir()
	catalog := fmt.Sprintf(`apiVersion: envtool.dev/v1
kind: PackageIndex
spec:
  packages:
    - name: zig
      version: 0.13.0
      install-path: /opt/zig-0.13.0
      binaries: [zig]
      platforms: [%s]
    - name: zig
      version: 0.14.0
      install-path: /opt/zig-0.14.0
      binaries: [zig]
      platforms: [plan9/mips64]
    - name: cmake
      version: 3.29.0
      install-path: /opt/cmake-3.29.0
      binaries: [cmake]
`, platform.Current())
	require.NoError(t, os.WriteFile(filepath.Join(store, toolconfig.CatalogFilename), []byte(catalog), 0o644))

	s, err := Load(LoadOpts{StorePath: store})
	require.NoError(t, err)

	// entries for foreign platforms never become candidates, entries
	// without a platforms list apply everywhere
	zig := s.Candidates("zig")
	require.Len(t, zig, 1)
	assert.Equal(t, "0.13.0", zig[0].VersionString())
	assert.Len(t, s.Candidates("cmake"), 1)
}

func TestReadCatalogXZ(t *testing.T) {
	p := filepath.Join(t.TempDir(), "index.yaml.xz")
	require.NoError(t, os.WriteFile(p, testdata.CatalogXZ, 0o644))

	c, err := ReadCatalog(p)
	require.NoError(t, err)
	require.Len(t, c.Spec.Packages, 2)
	assert.Equal(t, "gcc", c.Spec.Packages[0].Name)
}
