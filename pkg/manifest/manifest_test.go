// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envtool.dev/x/envtool/pkg/manifest/testdata"
)

func TestReadManifestContents(t *testing.T) {
	m, err := ReadManifestContents(testdata.Valid, "-")
	require.NoError(t, err)

	assert.Equal(t, "pingpong-dev", m.Spec.Name)
	require.Len(t, m.Spec.Packages, 3)

	gcc := m.Spec.Packages[0]
	assert.Equal(t, "gcc", gcc.Name)
	require.NotNil(t, gcc.Version)
	assert.Equal(t, "^13.2", gcc.Version.String())
	assert.True(t, gcc.Version.Check(semver.MustParse("13.2.0")))
	assert.False(t, gcc.Version.Check(semver.MustParse("14.1.0")))

	sqlite := m.Spec.Packages[1]
	assert.Equal(t, "sqlite", sqlite.Name)
	assert.Equal(t, "~3.45", sqlite.Version.String())

	// no constraint means any version
	python := m.Spec.Packages[2]
	assert.Equal(t, "python311", python.Name)
	assert.Nil(t, python.Version)

	require.Contains(t, m.Spec.Env, "PYTHONPATH")
	assert.Equal(t, ConflictStrategyExtend, m.Spec.Env["PYTHONPATH"].ConflictStrategy)

	// scalar shorthand defaults to the fail strategy
	require.Contains(t, m.Spec.Env, "CC")
	assert.Equal(t, "${gcc/bin}/gcc", m.Spec.Env["CC"].Value)
	assert.Equal(t, ConflictStrategyFail, m.Spec.Env["CC"].ConflictStrategy)
}

func TestReadManifestContentsInvalid(t *testing.T) {
	for name, y := range map[string][]byte{
		"empty":            testdata.Empty,
		"zeroPackages":     testdata.ZeroPackages,
		"duplicatePackage": testdata.DuplicatePackage,
		"badConstraint":    testdata.BadConstraint,
		"unknownField":     testdata.UnknownField,
		"reservedPath":     testdata.ReservedPath,
		"badStrategy":      testdata.BadStrategy,
		"wrongKind":        testdata.WrongKind,
	} {
		_, err := ReadManifestContents(y, name)
		assert.ErrorIs(t, err, ErrInvalidManifest, name)
	}
}

func TestParseErrorCarriesLine(t *testing.T) {
	_, err := ReadManifestContents(testdata.UnknownField, "envshell.yaml")
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "envshell.yaml", parseErr.Path)
	assert.Greater(t, parseErr.Line, 0)
	assert.Contains(t, parseErr.Error(), "envshell.yaml:")
}

func TestManifestRoundTrip(t *testing.T) {
	m, err := ReadManifestContents(testdata.Valid, "-")
	require.NoError(t, err)

	rendered, err := yaml.Marshal(m)
	require.NoError(t, err)

	reparsed, err := ReadManifestContents(rendered, "-")
	require.NoError(t, err)

	require.Len(t, reparsed.Spec.Packages, len(m.Spec.Packages))
	for i, r := range m.Spec.Packages {
		assert.Equal(t, r.String(), reparsed.Spec.Packages[i].String())
	}
	require.Len(t, reparsed.Spec.Env, len(m.Spec.Env))
	for k, tpl := range m.Spec.Env {
		require.Contains(t, reparsed.Spec.Env, k)
		assert.Equal(t, tpl.Value, reparsed.Spec.Env[k].Value)
		assert.Equal(t, tpl.ConflictStrategy, reparsed.Spec.Env[k].ConflictStrategy)
	}
}
