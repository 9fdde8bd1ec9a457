// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"fmt"

	"github.com/spf13/cobra"

	"envtool.dev/x/envtool/pkg/devshell"
	envshell "envtool.dev/x/envtool/pkg/shell"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

func Cmd(config *toolconfig.Config, runner *envshell.Runner) *cobra.Command {
	var print bool

	if runner.Shell == "" {
		runner.Shell = config.Shell
	}

	cmd := &cobra.Command{
		Use:   "shell [manifest] [-- command [args...]]",
		Short: "enter the environment, or run a command inside it",
		Long: `enter the environment, or run a command inside it

	without a command, an interactive shell is spawned with the composed
	environment. With '-- command [args...]', that command is spawned
	instead and its exit code becomes envtool's exit code. The parent
	environment is never modified.

	--print emits a POSIX activation script instead of spawning anything,
	for use as: eval "$(envtool shell --print)"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestArg, argv, err := splitArgs(args, cmd.ArgsLenAtDash())
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			session, err := devshell.Open(config, manifestArg)
			if err != nil {
				return err
			}

			descriptor, err := session.Compose(cmd.Context())
			if err != nil {
				return err
			}

			if print {
				script, err := envshell.RenderScript(descriptor)
				if err != nil {
					return err
				}
				cmd.Print(script)
				return nil
			}

			exitCode, err := runner.Run(cmd.Context(), descriptor, argv)
			if err != nil {
				return err
			}
			runner.ExitFn(exitCode)
			return nil
		},
	}

	cmd.Flags().BoolVar(&print, "print", false, "print a POSIX activation script instead of spawning a shell")
	return cmd
}

// splitArgs separates the optional manifest argument (before a '--') from
// the command to run (after it).
func splitArgs(args []string, lenAtDash int) (manifestArg string, argv []string, err error) {
	own := args
	if lenAtDash >= 0 {
		own, argv = args[:lenAtDash], args[lenAtDash:]
	}

	switch len(own) {
	case 0:
	case 1:
		manifestArg = own[0]
	default:
		return "", nil, fmt.Errorf("expected at most one manifest argument before '--', got %d", len(own))
	}
	return manifestArg, argv, nil
}
