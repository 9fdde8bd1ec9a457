// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"envtool.dev/x/envtool/pkg/composer"
	"envtool.dev/x/envtool/pkg/devshell"
	"envtool.dev/x/envtool/pkg/lockfile"
	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/resolver/resolvererrors"
	"envtool.dev/x/envtool/pkg/shell"
	"envtool.dev/x/envtool/pkg/testutil"
	"envtool.dev/x/envtool/pkg/toolconfig"
	"envtool.dev/x/envtool/pkg/versions"
)

type MainSuite struct {
	testutil.CommonSetupSuite
}

func TestSuite(t *testing.T) {
	suite.Run(t, &MainSuite{})
}

const scenarioManifest = `apiVersion: envtool.dev/v1
kind: DevShell
spec:
  name: pingpong-dev
  packages:
    - gcc@13.2
    - sqlite@~3.45
    - python311
  env:
    PYTHONPATH:
      value: ${python311}/lib/python3.11/site-packages
      conflict-strategy: extend
`

// setupWorkspace points the store at the shared fixture and plants a
// manifest in a temp dir that ENVTOOL_MANIFEST makes the scope.
func setupWorkspace(t *testing.T, manifestContents string) (manifestPath string) {
	t.Setenv(toolconfig.StorePathEnvVar, testutil.TestdataPath(t, "store"))

	dir := t.TempDir()
	manifestPath = filepath.Join(dir, toolconfig.ManifestFilename)
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestContents), 0644))
	t.Setenv(toolconfig.ManifestPathEnvVar, dir)
	return manifestPath
}

func (suite *MainSuite) TestBuildCommand() {
	t := suite.T()
	setupWorkspace(t, scenarioManifest)
	storePath := testutil.TestdataPath(t, "store")

	d := runBuildCommand(t)

	assert.Equal(t, composer.DescriptorKind, d.Kind)
	assert.Equal(t, composer.DescriptorAPIVersion, d.APIVersion)
	assert.Equal(t, "pingpong-dev", d.Name)
	assert.Equal(t, map[string]string{"gcc": "13.2.0", "sqlite": "3.45.1", "python311": "3.11.9"}, d.Packages)
	assert.NotEmpty(t, d.Digest)

	t.Run("search paths", func(t *testing.T) {
		require.Len(t, d.SearchPaths, 5)
		assert.Equal(t, filepath.Join(storePath, "gcc-13.2.0", "bin"), d.SearchPaths[0])
		assert.Contains(t, d.SearchPaths, filepath.Join(storePath, "sqlite-3.45.1", "lib"))
		assert.Contains(t, d.SearchPaths, filepath.Join(storePath, "python311-3.11.9", "bin"))
	})

	t.Run("expanded env", func(t *testing.T) {
		gccPath := filepath.Join(storePath, "gcc-13.2.0")
		pythonPath := filepath.Join(storePath, "python311-3.11.9")
		assert.Equal(t, gccPath+"/bin/gcc", d.Env["CC"])
		assert.Equal(t, pythonPath, d.Env["PYTHONHOME"])
		assert.Equal(t, pythonPath+"/lib/python3.11/site-packages", d.Env["PYTHONPATH"])
	})
}

func (suite *MainSuite) TestBuildCommandOutputFormats() {
	t := suite.T()
	setupWorkspace(t, scenarioManifest)

	t.Run("json", func(t *testing.T) {
		output := runCommand(t, "build", "-o", "json")

		d := composer.Descriptor{}
		require.NoError(t, json.Unmarshal([]byte(output), &d))
		assert.Equal(t, composer.DescriptorKind, d.Kind)
		assert.Equal(t, "13.2.0", d.Packages["gcc"])
	})

	t.Run("table", func(t *testing.T) {
		output := runCommand(t, "build", "-o", "table")
		assert.Contains(t, output, "gcc")
		assert.Contains(t, output, "13.2.0")
		assert.Contains(t, output, "PATH")
	})

	t.Run("unsupported", func(t *testing.T) {
		cmd, _, w := createTestRootCmd(t, "build", "-o", "toml")
		assert.ErrorContains(t, cmd.Execute(), "output format not supported")
		assert.NoError(t, w.Close())
	})
}

func (suite *MainSuite) TestBuildCommandNoManifest() {
	t := suite.T()
	t.Chdir(t.TempDir())

	cmd, _, w := createTestRootCmd(t, "build")
	require.ErrorIs(t, cmd.Execute(), devshell.ErrNoManifest)
	assert.NoError(t, w.Close())
}

func (suite *MainSuite) TestBuildCommandMalformedManifest() {
	t := suite.T()
	setupWorkspace(t, "kind: DevShell\nspec: [")

	cmd, _, w := createTestRootCmd(t, "build")
	require.ErrorIs(t, cmd.Execute(), manifest.ErrInvalidManifest)
	assert.NoError(t, w.Close())
}

func (suite *MainSuite) TestCheckCommand() {
	t := suite.T()
	setupWorkspace(t, scenarioManifest)

	output := runCommand(t, "check")
	assert.Contains(t, output, "✓ gcc@13.2 -> gcc@13.2.0")
	assert.Contains(t, output, "✓ sqlite@~3.45 -> sqlite@3.45.1")
	assert.Contains(t, output, "✓ python311 -> python311@3.11.9")
}

func (suite *MainSuite) TestCheckCommandReportsEveryFailure() {
	t := suite.T()
	setupWorkspace(t, `apiVersion: envtool.dev/v1
kind: DevShell
spec:
  packages:
    - nosuchpkg
    - gcc@13.2
    - sqlite@^99
`)

	cmd, r, w := createTestRootCmd(t, "check")
	err := cmd.Execute()
	assert.NoError(t, w.Close())
	require.ErrorContains(t, err, "2 of 3 checks failed")

	output, readErr := io.ReadAll(r)
	require.NoError(t, readErr)
	assert.Contains(t, string(output), "✗ nosuchpkg")
	assert.Contains(t, string(output), resolvererrors.PackageNotFound)
	assert.Contains(t, string(output), "✓ gcc@13.2 -> gcc@13.2.0")
	assert.Contains(t, string(output), "✗ sqlite@^99")
	assert.Contains(t, string(output), resolvererrors.ConstraintUnsatisfiable)
}

func (suite *MainSuite) TestCheckCommandLocked() {
	t := suite.T()
	setupWorkspace(t, scenarioManifest)

	t.Run("missing lockfile", func(t *testing.T) {
		cmd, r, w := createTestRootCmd(t, "check", "--locked")
		err := cmd.Execute()
		assert.NoError(t, w.Close())
		require.ErrorContains(t, err, "1 of 4 checks failed")

		output, readErr := io.ReadAll(r)
		require.NoError(t, readErr)
		assert.Contains(t, string(output), "✗ "+toolconfig.LockFilename)
	})

	t.Run("after lock", func(t *testing.T) {
		runCommand(t, "lock")

		output := runCommand(t, "check", "--locked")
		assert.Contains(t, output, "✓ "+toolconfig.LockFilename+" is in sync")
	})
}

func (suite *MainSuite) TestLockCommand() {
	t := suite.T()
	manifestPath := setupWorkspace(t, scenarioManifest)

	output := runCommand(t, "lock")
	assert.Contains(t, output, "Locked 3 packages in "+toolconfig.LockPathFor(manifestPath))

	locked, err := lockfile.ReadLockfile(toolconfig.LockPathFor(manifestPath))
	require.NoError(t, err)
	names := lo.Map(locked.Packages, func(p *lockfile.LockedPackage, _ int) string { return p.Name })
	assert.Equal(t, []string{"gcc", "python311", "sqlite"}, names)
	assert.Equal(t, "13.2.0", locked.Packages[0].Version.Value().String())
}

func (suite *MainSuite) TestShellPrintCommand() {
	t := suite.T()
	setupWorkspace(t, scenarioManifest)
	storePath := testutil.TestdataPath(t, "store")

	output := runCommand(t, "shell", "--print")
	assert.Contains(t, output, "export PATH="+filepath.Join(storePath, "gcc-13.2.0", "bin"))
	assert.Contains(t, output, `:"$PATH"`)
	assert.Contains(t, output, "export CC=")
	assert.Contains(t, output, "export PYTHONPATH=")
}

func (suite *MainSuite) TestShellRunsCommand() {
	t := suite.T()
	if testutil.OS == "windows" {
		t.Skip("needs a posix shell")
		return
	}
	setupWorkspace(t, scenarioManifest)
	storePath := testutil.TestdataPath(t, "store")

	output := runCommand(t, "shell", "--", "/bin/sh", "-c", `echo "CC is $CC"`)
	assert.Contains(t, output, "CC is "+filepath.Join(storePath, "gcc-13.2.0")+"/bin/gcc")
}

func (suite *MainSuite) TestShellReportsChildExitCode() {
	t := suite.T()
	if testutil.OS == "windows" {
		t.Skip("needs a posix shell")
		return
	}
	setupWorkspace(t, scenarioManifest)

	exitCode := -1
	runner := shell.Runner{
		Stderr: os.Stderr,
		Stdout: os.Stdout,
		Stdin:  nil,
		ExitFn: func(code int) { exitCode = code },
		OsArgs: []string{EnvtoolName, "shell", "--", "/bin/sh", "-c", "exit 7"},
	}
	rootCmd, err := RootCmd(&runner)
	require.NoError(t, err)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 7, exitCode)
}

func (suite *MainSuite) TestVersionsCommand() {
	t := suite.T()
	setupWorkspace(t, scenarioManifest)

	t.Run("table", func(t *testing.T) {
		output := runCommand(t, "versions", "gcc")
		assert.Contains(t, output, "12.3.0")
		assert.Contains(t, output, "13.2.0")
		assert.Contains(t, output, "13.3.0")
		assert.Contains(t, output, "*")
	})

	t.Run("json", func(t *testing.T) {
		output := runCommand(t, "versions", "gcc", "-o", "json")

		v := versions.Versions{}
		require.NoError(t, json.Unmarshal([]byte(output), &v))
		require.Len(t, v, 3)

		byVersion := lo.SliceToMap(v, func(e *versions.Version) (string, *versions.Version) {
			return e.VersionString(), e
		})
		assert.True(t, byVersion["13.2.0"].Active)
		assert.True(t, byVersion["13.2.0"].Installed)
		assert.True(t, byVersion["13.3.0"].Installed)
		assert.False(t, byVersion["13.3.0"].Active)
		assert.False(t, byVersion["12.3.0"].Installed)
	})

	t.Run("catalog only package", func(t *testing.T) {
		output := runCommand(t, "versions", "zlib")
		assert.Contains(t, output, "1.3.0")
	})

	t.Run("unknown package", func(t *testing.T) {
		cmd, _, w := createTestRootCmd(t, "versions", "nosuchpkg")
		assert.ErrorContains(t, cmd.Execute(), `no package "nosuchpkg" in the index`)
		assert.NoError(t, w.Close())
	})
}

func (suite *MainSuite) TestVersionsCommandHostFallback() {
	t := suite.T()
	setupWorkspace(t, scenarioManifest)
	t.Setenv(toolconfig.HostFallbackEnvVar, "true")
	t.Setenv("PATH", testutil.TestdataPath(t, "hostbin")+string(os.PathListSeparator)+os.Getenv("PATH"))

	output := runCommand(t, "versions", "rsync")
	assert.Contains(t, output, "host")
}

func (suite *MainSuite) TestVersionFlag() {
	t := suite.T()

	output := runCommand(t, "--version")
	assert.Contains(t, output, "version: unknown")
}

func runBuildCommand(t *testing.T, args ...string) *composer.Descriptor {
	output := runCommand(t, append([]string{"build"}, args...)...)

	d := composer.Descriptor{}
	require.NoError(t, yaml.Unmarshal([]byte(output), &d))
	return &d
}

func runCommand(t *testing.T, args ...string) string {
	cmd, r, w := createTestRootCmd(t, args...)
	assert.NoError(t, cmd.Execute())
	assert.NoError(t, w.Close())

	output, err := io.ReadAll(r)
	assert.NoError(t, err)
	return string(output)
}

func createTestRootCmd(t *testing.T, args ...string) (rootCmd *cobra.Command, r *os.File, w *os.File) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})

	runner := shell.Runner{
		Stderr: w,
		Stdout: w,
		Stdin:  nil,
		ExitFn: func(exitCode int) {
			assert.Equal(t, 0, exitCode)
		},
		OsArgs: append([]string{EnvtoolName}, args...),
	}

	rootCmd, err = RootCmd(&runner)
	require.NoError(t, err)

	return
}
