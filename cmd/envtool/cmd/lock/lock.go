// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package lock

import (
	"github.com/spf13/cobra"

	"envtool.dev/x/envtool/pkg/devshell"
	"envtool.dev/x/envtool/pkg/lockfile"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

func Cmd(config *toolconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "lock [manifest]",
		Short: "pin the resolved package versions in " + toolconfig.LockFilename,
		Long: `pin the resolved package versions in ` + toolconfig.LockFilename + `

	resolves the manifest from scratch and writes the lockfile next to it.
	Later runs of build, shell and check resolve against these pins until
	the lockfile is refreshed. Host fallback packages carry no version and
	are not pinned.
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := devshell.Open(config, firstArg(args))
			if err != nil {
				return err
			}

			locked, err := lockfile.New(session.Snapshot, lockfile.Regular).
				EnsureLockfile(cmd.Context(), session.Manifest)
			if err != nil {
				return err
			}

			cmd.Printf("Locked %d packages in %s\n", len(locked.Packages), toolconfig.LockPathFor(session.Manifest.AbsolutePath))
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
