// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package composer

import (
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
)

// Table renders the descriptor for human eyes: the resolved packages, the
// assembled search paths, then the variable bindings.
func (d *Descriptor) Table() string {
	var rows [][]string

	for _, name := range slices.Sorted(maps.Keys(d.Packages)) {
		version := d.Packages[name]
		if version == "host" {
			version = lipgloss.NewStyle().
				Faint(true).
				Italic(true).
				Render(version)
		}
		rows = append(rows, []string{name, version})
	}

	rows = append(rows, []string{"", ""})
	for i, p := range d.SearchPaths {
		rows = append(rows, []string{lo.Ternary(i == 0, "PATH", ""), p})
	}

	for _, k := range slices.Sorted(maps.Keys(d.Env)) {
		rows = append(rows, []string{k, d.Env[k]})
	}

	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		Rows(rows...).
		String()
}
