// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"envtool.dev/x/envtool/cmd/envtool/cmd/build"
	"envtool.dev/x/envtool/cmd/envtool/cmd/check"
	"envtool.dev/x/envtool/cmd/envtool/cmd/lock"
	shellCmd "envtool.dev/x/envtool/cmd/envtool/cmd/shell"
	"envtool.dev/x/envtool/cmd/envtool/cmd/versions"
	"envtool.dev/x/envtool/pkg/buildversion"
	"envtool.dev/x/envtool/pkg/logging"
	"envtool.dev/x/envtool/pkg/shell"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

const EnvtoolName = "envtool"

func RootCmd(runner *shell.Runner) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   EnvtoolName,
		Short: "reproducible development environments from a declarative manifest",
	}

	defer runner.SetOutputStreams(cmd)

	if len(runner.OsArgs) == 0 {
		return nil, fmt.Errorf("Runner.OsArgs must contain at least one entry similar to os.Args")
	}
	cmd.SetArgs(runner.OsArgs[1:])

	if err := logging.InitLogging(); err != nil {
		return nil, err
	}

	config, err := toolconfig.Get()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	cmd.AddCommand(
		build.Cmd(config),
		shellCmd.Cmd(config, runner),
		check.Cmd(config),
		lock.Cmd(config),
		versions.Cmd(config),
	)

	version, err := yaml.Marshal(buildversion.Get())
	if err != nil {
		return nil, err
	}
	cmd.Version = string(version)
	cmd.SetVersionTemplate("{{.Version}}")

	return cmd, nil
}
