// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"envtool.dev/x/envtool/pkg/devshell"
	"envtool.dev/x/envtool/pkg/lockfile"
	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/toolconfig"
	"envtool.dev/x/envtool/pkg/utils"
)

func Cmd(config *toolconfig.Config) *cobra.Command {
	var locked bool

	cmd := &cobra.Command{
		Use:   "check [manifest]",
		Short: "verify that the manifest resolves against the package index",
		Long: `verify that the manifest resolves against the package index

	prints one line per requested package. Exits non-zero when any
	package cannot be resolved. Nothing is composed or spawned.
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			session, err := devshell.Open(config, firstArg(args))
			if err != nil {
				return err
			}

			checks := len(session.Manifest.Spec.Packages)
			failed := checkPackages(cmd.Context(), cmd, session)
			if locked {
				checks++
				if !checkLock(cmd.Context(), cmd, session) {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, checks)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&locked, "locked", false, "additionally verify that the lockfile is in sync with the manifest")
	return cmd
}

// checkPackages resolves each requirement on its own so one failure does
// not hide the others.
func checkPackages(ctx context.Context, printer utils.RawPrinter, session *devshell.Session) (failed int) {
	r := session.Resolver()

	for _, req := range session.Manifest.Spec.Packages {
		records, err := r.Resolve(ctx, []*manifest.Requirement{req})
		if err != nil {
			failed++
			printer.Println(color.RedString("✗"), req.String()+":", err.Error())
			continue
		}
		printer.Println(color.GreenString("✓"), req.String(), "->", records[0].String())
	}
	return failed
}

func checkLock(ctx context.Context, printer utils.RawPrinter, session *devshell.Session) bool {
	_, err := lockfile.New(session.Snapshot, lockfile.CheckOnly).EnsureLockfile(ctx, session.Manifest)
	if err != nil {
		printer.Println(color.RedString("✗"), toolconfig.LockFilename+":", err.Error())
		return false
	}
	printer.Println(color.GreenString("✓"), toolconfig.LockFilename, "is in sync")
	return true
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
