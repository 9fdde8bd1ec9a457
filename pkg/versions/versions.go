// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
)

// Version is one candidate row for a package: a version known to the index
// (installed or not), the host PATH fallback, or the version the current
// manifest resolves to. The host row carries a nil Version.
type Version struct {
	Version   *semver.Version `json:"version,omitempty"`
	Installed bool            `json:"installed,omitempty"`
	Host      bool            `json:"host,omitempty"`
	Active    bool            `json:"active,omitempty"`
}

func (v *Version) VersionString() string {
	if v.Version == nil {
		return "host"
	}
	return v.Version.String()
}

type Versions []*Version

type versionsMap map[string]*Version

func New(active *semver.Version, installed, known []*semver.Version, host bool) Versions {
	m := versionsMap{}

	if active != nil {
		m.add(&Version{Version: active, Active: true})
	}

	for _, v := range installed {
		m.add(&Version{Version: v, Installed: true})
	}

	for _, v := range known {
		m.add(&Version{Version: v})
	}

	if host {
		m.add(&Version{Host: true})
	}

	r := Versions(lo.Values(m))
	r.Sort()
	return r
}

func (v versionsMap) add(e *Version) {
	key := e.VersionString()
	_, ok := v[key]

	if !ok {
		v[key] = e
		return
	}

	v[key].Installed = v[key].Installed || e.Installed
	v[key].Host = v[key].Host || e.Host
	v[key].Active = v[key].Active || e.Active
}

func (v Versions) Copy() Versions {
	r := make(Versions, len(v))
	lo.ForEach(v, func(e *Version, i int) {
		c := *e
		if e.Version != nil {
			c.Version = semver.New(
				e.Version.Major(),
				e.Version.Minor(),
				e.Version.Patch(),
				e.Version.Prerelease(),
				e.Version.Metadata(),
			)
		}
		r[i] = &c
	})
	return r
}

func compareVersions(a, b *semver.Version) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(b)
}

// Sort by semantic version number, the host row first
func (v Versions) Sort() {
	slices.SortFunc(v, func(a, b *Version) int {
		return compareVersions(a.Version, b.Version)
	})
}

// Sort by installed last, then by semantic version number
func (v Versions) SortByInstalled() {
	slices.SortFunc(v, func(a, b *Version) int {
		if a.Installed && !b.Installed {
			return 1
		}

		if !a.Installed && b.Installed {
			return -1
		}

		return compareVersions(a.Version, b.Version)
	})
}

func (v Versions) Table() string {
	newV := v.Copy()
	newV.SortByInstalled()

	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		Rows(lo.Map(newV, func(row *Version, _ int) []string {
			indicator := ""
			version := row.VersionString()

			switch {
			case row.Active:
				indicator = "*"
				version = lipgloss.NewStyle().
					Foreground(lipgloss.Color("2")).
					Bold(true).
					Render(version)
			case row.Host:
				// present on the PATH, rendered plain
			case !row.Installed:
				version = lipgloss.NewStyle().
					Faint(true).
					Italic(true).
					Render(version)
			}

			return []string{
				indicator,
				version,
			}
		})...).
		String()
}
