// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package shell materializes an environment descriptor into a child
// process: either the user's interactive shell or an explicit command. The
// parent process environment is never mutated.
package shell

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"envtool.dev/x/envtool/pkg/composer"
	"envtool.dev/x/envtool/pkg/manifest"
)

// MaterializationError wraps a failure to spawn the child process. Non-zero
// child exit codes are not errors, they are returned as exit codes.
type MaterializationError struct {
	Cause error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("failed to spawn command subprocess. %s", e.Cause.Error())
}

func (e *MaterializationError) Unwrap() error {
	return e.Cause
}

type Runner struct {
	Stderr, Stdout, Stdin *os.File
	// ExitFn receives the child's exit code once it has terminated.
	ExitFn func(exitCode int)
	// OsArgs mirrors os.Args and is consumed by the root command.
	OsArgs []string
	// Shell overrides the interactive shell to spawn. Empty falls back to
	// $SHELL, then to the platform default.
	Shell string
}

func (r *Runner) SetOutputStreams(cmd *cobra.Command) {
	cmd.SetOut(r.Stdout)
	cmd.SetErr(r.Stderr)
	cmd.SetIn(r.Stdin)

	lo.ForEach(cmd.Commands(), func(sub *cobra.Command, _ int) {
		r.SetOutputStreams(sub)
	})
}

// Run spawns argv inside the descriptor's environment, or an interactive
// shell when argv is empty, and reports the child's exit code.
func (r *Runner) Run(ctx context.Context, d *composer.Descriptor, argv []string) (int, error) {
	if len(argv) == 0 {
		argv = []string{r.shell()}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = childEnv(d)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return exitError.ExitCode(), nil
		}
		return 0, &MaterializationError{Cause: err}
	}
	return 0, nil
}

func (r *Runner) shell() string {
	if r.Shell != "" {
		return r.Shell
	}
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return lo.Ternary(runtime.GOOS == "windows", "cmd.exe", "/bin/sh")
}

// childEnv lays the descriptor's bindings over the parent environment and
// prepends the search paths to PATH.
func childEnv(d *composer.Descriptor) []string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	maps.Copy(env, d.Env)
	env[manifest.ReservedPathVar] = pathValue(d.SearchPaths, env[manifest.ReservedPathVar])

	return lo.MapToSlice(env, func(key string, value string) string {
		return fmt.Sprintf("%s=%s", key, value)
	})
}

func pathValue(searchPaths []string, parentPath string) string {
	parts := append([]string{}, searchPaths...)
	if parentPath != "" {
		parts = append(parts, parentPath)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}
