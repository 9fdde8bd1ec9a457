// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"envtool.dev/x/envtool/pkg/toolconfig"
	"envtool.dev/x/envtool/pkg/utils"
)

// TestdataPath gives absolute path within the common 'testdata'
func TestdataPath(t *testing.T, path ...string) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	p := []string{filepath.Dir(file), "testdata"}
	p = append(p, path...)
	return filepath.Join(p...)
}

type CommonSetupSuite struct {
	suite.Suite
}

func (suite *CommonSetupSuite) SetupTest() {
	// set ENVTOOL_HOME to a randomized temp dir before every test,
	// otherwise, the tool will use the same, default ~/.envtool across tests.

	tmpHome, deleteFn, err := utils.MkdirTemp("", "")
	suite.Require().NoError(err)
	suite.T().Setenv(toolconfig.HomeEnvVar, tmpHome)
	suite.T().Cleanup(func() {
		_ = deleteFn()
	})
}

func Context(t *testing.T) context.Context {
	ctx, stopFn := context.WithCancel(context.Background())
	t.Cleanup(stopFn)
	return ctx
}

var OS = func() string {
	if runtime.GOOS == "windows" {
		return "windows"
	}
	return "unix"
}()
