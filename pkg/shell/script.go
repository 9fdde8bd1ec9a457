// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"envtool.dev/x/envtool/pkg/composer"
	"envtool.dev/x/envtool/pkg/manifest"
)

// RenderScript renders the descriptor as a POSIX activation script, meant
// for `eval "$(envtool shell --print)"`. Search paths are prepended to the
// evaluating shell's own $PATH.
func RenderScript(d *composer.Descriptor) (string, error) {
	var b strings.Builder

	if len(d.SearchPaths) > 0 {
		quoted := make([]string, 0, len(d.SearchPaths))
		for _, p := range d.SearchPaths {
			q, err := syntax.Quote(p, syntax.LangPOSIX)
			if err != nil {
				return "", &MaterializationError{Cause: err}
			}
			quoted = append(quoted, q)
		}
		fmt.Fprintf(&b, "export %s=%s:\"$PATH\"\n", manifest.ReservedPathVar, strings.Join(quoted, ":"))
	}

	for _, k := range slices.Sorted(maps.Keys(d.Env)) {
		q, err := syntax.Quote(d.Env[k], syntax.LangPOSIX)
		if err != nil {
			return "", &MaterializationError{Cause: err}
		}
		fmt.Fprintf(&b, "export %s=%s\n", k, q)
	}

	return b.String(), nil
}
