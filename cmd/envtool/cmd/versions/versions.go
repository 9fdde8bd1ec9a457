// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"envtool.dev/x/envtool/pkg/devshell"
	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/pkgindex"
	"envtool.dev/x/envtool/pkg/toolconfig"
	"envtool.dev/x/envtool/pkg/utils"
	"envtool.dev/x/envtool/pkg/versions"
)

func Cmd(config *toolconfig.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "versions <package>",
		Short: "list the known versions of a package",
		Long: `list the known versions of a package

	versions come from the package store and the catalog. The active
	version is the one the manifest in scope currently resolves to, it
	may or may not be installed.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !manifest.IsValidPackageName(name) {
				return fmt.Errorf("%q is not a valid package name", name)
			}

			snapshot, active, err := snapshotAndActive(cmd.Context(), config, name)
			if err != nil {
				return err
			}

			candidates := snapshot.Candidates(name)
			_, host := snapshot.HostCandidate(name)
			if len(candidates) == 0 && !host {
				return fmt.Errorf("no package %q in the index", name)
			}

			var installed, known []*semver.Version
			for _, c := range candidates {
				ok, err := utils.DirExists(c.InstallPath)
				if err != nil {
					return err
				}
				v := c.Value()
				if ok {
					installed = append(installed, &v)
				} else {
					known = append(known, &v)
				}
			}

			v := versions.New(active, installed, known, host)

			switch output {
			case "table":
				cmd.Println(v.Table())
			case "json":
				data, err := json.MarshalIndent(v, "", "    ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
			default:
				return fmt.Errorf("output format not supported: %s", output)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: json, table")
	return cmd
}

// snapshotAndActive reuses the session's snapshot when a manifest is in
// scope, so the listing and the active version see the same candidates.
// Without a manifest there is no active version.
func snapshotAndActive(ctx context.Context, config *toolconfig.Config, name string) (*pkgindex.Snapshot, *semver.Version, error) {
	session, err := devshell.Open(config, "")
	if errors.Is(err, devshell.ErrNoManifest) {
		snapshot, err := pkgindex.Load(pkgindex.LoadOpts{
			StorePath:    config.StorePath,
			HostFallback: config.HostFallback,
		})
		return snapshot, nil, err
	}
	if err != nil {
		return nil, nil, err
	}
	return session.Snapshot, activeVersion(ctx, session, name), nil
}

// activeVersion is the version the manifest resolves for name, nil when the
// package is not requested or the manifest does not resolve.
func activeVersion(ctx context.Context, session *devshell.Session, name string) *semver.Version {
	_, requested := lo.Find(session.Manifest.Spec.Packages, func(r *manifest.Requirement) bool {
		return r.Name == name
	})
	if !requested {
		return nil
	}

	records, err := session.Resolve(ctx)
	if err != nil {
		slog.Debug("cannot determine the active version", "package", name, "err", err.Error())
		return nil
	}

	record, found := lo.Find(records, func(r *pkgindex.PackageRecord) bool {
		return r.Name == name && !r.Host
	})
	if !found {
		return nil
	}
	v := record.Value()
	return &v
}
