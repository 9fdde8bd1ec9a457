// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package devshell

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envtool.dev/x/envtool/pkg/testutil"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

const devManifest = `apiVersion: envtool.dev/v1
kind: DevShell
spec:
  name: cc-env
  packages:
    - gcc@^13.2
    - sqlite
  env:
    CFLAGS: -O2
`

func testConfig(t *testing.T) *toolconfig.Config {
	home := t.TempDir()
	return &toolconfig.Config{
		HomePath:          home,
		CachePath:         filepath.Join(home, "cache"),
		OciLayoutCache:    filepath.Join(home, "cache", "oci-layout"),
		CacheLockFilePath: filepath.Join(home, "cache", ".lock"),
		StorePath:         testutil.TestdataPath(t, "store"),
	}
}

func writeManifest(t *testing.T, contents string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), toolconfig.ManifestFilename)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0644))
	return p
}

func TestOpenWithExplicitPath(t *testing.T) {
	manifestPath := writeManifest(t, devManifest)

	session, err := Open(testConfig(t), manifestPath)
	require.NoError(t, err)

	assert.Equal(t, manifestPath, session.Manifest.AbsolutePath)
	assert.Equal(t, "cc-env", session.Manifest.Spec.Name)
	assert.False(t, session.Locked())
}

func TestOpenWithDirectoryArg(t *testing.T) {
	manifestPath := writeManifest(t, devManifest)

	session, err := Open(testConfig(t), filepath.Dir(manifestPath))
	require.NoError(t, err)
	assert.Equal(t, manifestPath, session.Manifest.AbsolutePath)
}

func TestOpenDiscoversFromEnv(t *testing.T) {
	manifestPath := writeManifest(t, devManifest)
	t.Setenv(toolconfig.ManifestPathEnvVar, filepath.Dir(manifestPath))

	session, err := Open(testConfig(t), "")
	require.NoError(t, err)
	assert.Equal(t, manifestPath, session.Manifest.AbsolutePath)
}

func TestOpenDiscoversFromAncestor(t *testing.T) {
	manifestPath := writeManifest(t, devManifest)
	subdir := filepath.Join(filepath.Dir(manifestPath), "src", "deep")
	require.NoError(t, os.MkdirAll(subdir, 0755))
	t.Chdir(subdir)

	session, err := Open(testConfig(t), "")
	require.NoError(t, err)
	assert.Equal(t, manifestPath, session.Manifest.AbsolutePath)
}

func TestOpenNoManifest(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Open(testConfig(t), "")
	require.ErrorIs(t, err, ErrNoManifest)
}

func TestOpenMissingManifestArg(t *testing.T) {
	_, err := Open(testConfig(t), filepath.Join(t.TempDir(), "nope", toolconfig.ManifestFilename))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestResolveAndCompose(t *testing.T) {
	ctx := testutil.Context(t)
	session, err := Open(testConfig(t), writeManifest(t, devManifest))
	require.NoError(t, err)

	records, err := session.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "gcc@13.3.0", records[0].String())
	assert.Equal(t, "sqlite@3.45.1", records[1].String())

	d, err := session.Compose(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cc-env", d.Name)
	assert.Equal(t, map[string]string{"gcc": "13.3.0", "sqlite": "3.45.1"}, d.Packages)
	assert.Equal(t, "-O2", d.Env["CFLAGS"])
	assert.NotEmpty(t, d.Digest)
	assert.Nil(t, d.Provenance)
}

func TestResolveHonorsLockfilePins(t *testing.T) {
	ctx := testutil.Context(t)
	manifestPath := writeManifest(t, devManifest)

	lockContents := `apiVersion: envtool.dev/v1
kind: EnvironmentLock
packages:
  - name: gcc
    version: 13.2.0
  - name: sqlite
    version: 3.45.1
`
	require.NoError(t, os.WriteFile(toolconfig.LockPathFor(manifestPath), []byte(lockContents), 0644))

	session, err := Open(testConfig(t), manifestPath)
	require.NoError(t, err)
	assert.True(t, session.Locked())

	records, err := session.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gcc@13.2.0", records[0].String())
}

func TestResolverCacheWiring(t *testing.T) {
	manifestPath := writeManifest(t, devManifest)

	config := testConfig(t)
	session, err := Open(config, manifestPath)
	require.NoError(t, err)
	assert.Nil(t, session.Resolver().Cache)

	config.RecordCache = true
	session, err = Open(config, manifestPath)
	require.NoError(t, err)
	assert.NotNil(t, session.Resolver().Cache)
}

func TestComposeStampsProvenance(t *testing.T) {
	ctx := testutil.Context(t)
	manifestPath := writeManifest(t, devManifest)
	dir := filepath.Dir(manifestPath)

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(toolconfig.ManifestFilename)
	require.NoError(t, err)
	commit, err := wt.Commit("add manifest", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@envtool.dev", When: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	session, err := Open(testConfig(t), manifestPath)
	require.NoError(t, err)

	d, err := session.Compose(ctx)
	require.NoError(t, err)
	require.NotNil(t, d.Provenance)
	assert.Equal(t, commit.String(), d.Provenance.Revision)
	assert.False(t, d.Provenance.Dirty)
}
