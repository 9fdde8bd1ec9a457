// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package composer

import (
	"errors"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"envtool.dev/x/envtool/pkg/pkgindex"
	"envtool.dev/x/envtool/pkg/utils/stringset"
)

var placeholderRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// errCycle marks the innermost cycle detection. It is wrapped into a
// CompositionError exactly once, at the reference that closed the cycle.
var errCycle = errors.New("cycle")

type expander struct {
	packages map[string]*pkgindex.PackageRecord
	raw      map[string]string
	expanded map[string]string
	visiting stringset.StringSet
}

func newExpander(records []*pkgindex.PackageRecord, raw map[string]string) *expander {
	return &expander{
		packages: lo.SliceToMap(records, func(r *pkgindex.PackageRecord) (string, *pkgindex.PackageRecord) {
			return r.Name, r
		}),
		raw:      raw,
		expanded: make(map[string]string, len(raw)),
		visiting: stringset.StringSet{},
	}
}

func (x *expander) expandAll() (map[string]string, error) {
	for _, v := range slices.Sorted(maps.Keys(x.raw)) {
		if _, err := x.expandVar(v); err != nil {
			return nil, err
		}
	}
	return x.expanded, nil
}

func (x *expander) expandVar(name string) (string, error) {
	if v, ok := x.expanded[name]; ok {
		return v, nil
	}
	if x.visiting.Contains(name) {
		return "", errCycle
	}
	x.visiting.Add(name)
	defer x.visiting.Remove(name)

	value, err := x.expandValue(name, x.raw[name])
	if err != nil {
		return "", err
	}
	x.expanded[name] = value
	return value, nil
}

func (x *expander) expandValue(owner, value string) (string, error) {
	matches := placeholderRegex.FindAllStringSubmatchIndex(value, -1)
	if matches == nil {
		return value, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(value[last:m[0]])
		resolved, err := x.resolve(owner, value[m[2]:m[3]])
		if err != nil {
			return "", err
		}
		b.WriteString(resolved)
		last = m[1]
	}
	b.WriteString(value[last:])
	return b.String(), nil
}

// resolve maps a single `${ref}` to its replacement: a package name to its
// install path, `pkg/bin` and `pkg/lib` to the respective subdirectory, and
// any other bound variable to its expanded value.
func (x *expander) resolve(owner, ref string) (string, error) {
	base, sub, isPath := strings.Cut(ref, "/")

	if record, ok := x.packages[base]; ok {
		if !isPath || record.Host {
			return record.InstallPath, nil
		}
		if sub == "bin" || sub == "lib" {
			return filepath.Join(record.InstallPath, sub), nil
		}
		return "", &CompositionError{Variable: owner, Placeholder: ref, Cause: ErrUnresolvedPlaceholder}
	}

	if isPath {
		return "", &CompositionError{Variable: owner, Placeholder: ref, Cause: ErrUnresolvedPlaceholder}
	}

	if _, ok := x.raw[ref]; ok {
		v, err := x.expandVar(ref)
		if errors.Is(err, errCycle) {
			return "", &CompositionError{Variable: owner, Placeholder: ref, Cause: ErrCyclicReference}
		}
		return v, err
	}

	return "", &CompositionError{Variable: owner, Placeholder: ref, Cause: ErrUnresolvedPlaceholder}
}
