// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"envtool.dev/x/envtool/pkg/devshell"
	"envtool.dev/x/envtool/pkg/toolconfig"
)

func Cmd(config *toolconfig.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build [manifest]",
		Short: "resolve the manifest and print the composed environment",
		Long: `resolve the manifest and print the composed environment

	the descriptor lists the resolved packages, the assembled search paths
	and the fully expanded variable bindings. Nothing is spawned.
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := devshell.Open(config, firstArg(args))
			if err != nil {
				return err
			}

			descriptor, err := session.Compose(cmd.Context())
			if err != nil {
				return err
			}

			switch output {
			case "yaml":
				data, err := yaml.Marshal(descriptor)
				if err != nil {
					return err
				}
				cmd.Print(string(data))
			case "json":
				data, err := json.MarshalIndent(descriptor, "", "    ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
			case "table":
				cmd.Println(descriptor.Table())
			default:
				return fmt.Errorf("output format not supported: %s", output)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml, json, table")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
