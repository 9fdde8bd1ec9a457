// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package composer turns a manifest plus its resolved package records into
// an environment descriptor: merged search paths and fully expanded
// variable bindings. Compose is pure, the same inputs always produce the
// same descriptor.
package composer

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"zombiezen.com/go/nix/nixbase32"

	"envtool.dev/x/envtool/pkg/manifest"
	"envtool.dev/x/envtool/pkg/pkgindex"
	"envtool.dev/x/envtool/pkg/provenance"
	"envtool.dev/x/envtool/pkg/schema"
	"envtool.dev/x/envtool/pkg/utils/stringset"
)

const (
	DescriptorVersion    = "v1"
	DescriptorKind       = "Environment"
	DescriptorAPIVersion = schema.APIGroup + "/" + DescriptorVersion
)

type Descriptor struct {
	schema.ManifestMeta `yaml:",inline"`
	Name                string            `yaml:"name,omitempty" json:"name,omitempty"`
	Packages            map[string]string `yaml:"packages" json:"packages"`
	SearchPaths         []string          `yaml:"search-paths" json:"search-paths"`
	Env                 map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Digest              string            `yaml:"digest" json:"digest"`
	Provenance          *provenance.Info  `yaml:"provenance,omitempty" json:"provenance,omitempty"`
}

// Compose merges the records' search paths (input order, first occurrence
// wins), applies package default bindings under their conflict strategies,
// lays the manifest's own templates on top and expands all `${...}`
// references.
func Compose(m *manifest.Manifest, records []*pkgindex.PackageRecord) (*Descriptor, error) {
	bindings, err := mergeEnv(m.Spec, records)
	if err != nil {
		return nil, err
	}

	env, err := newExpander(records, bindings).expandAll()
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		ManifestMeta: schema.ManifestMeta{APIVersion: DescriptorAPIVersion, Kind: DescriptorKind},
		Name:         m.Spec.Name,
		Packages: lo.SliceToMap(records, func(r *pkgindex.PackageRecord) (string, string) {
			return r.Name, r.VersionString()
		}),
		SearchPaths: mergeSearchPaths(records),
		Env:         env,
	}
	d.Digest = digest(d.SearchPaths, d.Env)
	return d, nil
}

func mergeSearchPaths(records []*pkgindex.PackageRecord) []string {
	return lo.Uniq(lo.FlatMap(records, func(r *pkgindex.PackageRecord, _ int) []string {
		return r.SearchPaths()
	}))
}

type binding struct {
	value string
	owner string
}

// mergeEnv collects the raw (unexpanded) bindings. Package defaults apply
// in record order, var names sorted within a record; a later binding of an
// already bound var follows its own conflict strategy. Manifest templates
// apply last and always win, with 'extend' appending to the package value.
func mergeEnv(spec *manifest.Spec, records []*pkgindex.PackageRecord) (map[string]string, error) {
	conflicts := make(envConflicts)
	merged := map[string]*binding{}

	for _, r := range records {
		for _, v := range sortedVars(r.Env) {
			t := r.Env[v]
			existing, bound := merged[v]
			if !bound {
				merged[v] = &binding{value: t.Value, owner: r.Name}
				continue
			}

			switch t.ConflictStrategy {
			case manifest.ConflictStrategyOverride:
				merged[v] = &binding{value: t.Value, owner: r.Name}
			case manifest.ConflictStrategyExtend:
				existing.value = existing.value + string(os.PathListSeparator) + t.Value
			default:
				if t.Value != existing.value {
					conflicts.append(v, existing.owner)
					conflicts.append(v, r.Name)
				}
			}
		}
	}

	if err := conflicts.asError(); err != nil {
		return nil, err
	}

	for _, v := range sortedVars(spec.Env) {
		t := spec.Env[v]
		if existing, bound := merged[v]; bound && t.ConflictStrategy == manifest.ConflictStrategyExtend {
			existing.value = existing.value + string(os.PathListSeparator) + t.Value
			continue
		}
		merged[v] = &binding{value: t.Value}
	}

	return lo.MapValues(merged, func(b *binding, _ string) string { return b.value }), nil
}

// envConflicts is a var -> package names set mapping
type envConflicts map[string]stringset.StringSet

func (c envConflicts) append(key, packageName string) {
	if _, exists := c[key]; !exists {
		c[key] = stringset.StringSet{}
	}
	c[key].Add(packageName)
}

func (c envConflicts) asError() error {
	if len(c) == 0 {
		return nil
	}

	var errs []error
	for _, k := range slices.Sorted(maps.Keys(c)) {
		names := strings.Join(slices.Sorted(maps.Keys(c[k])), ", ")
		errs = append(errs, &CompositionError{
			Variable: k,
			Cause:    fmt.Errorf("%w: packages [%s] bind it to different values, and at least one of them declares conflict-strategy '%s'", ErrEnvConflict, names, manifest.ConflictStrategyFail),
		})
	}
	return errors.Join(errs...)
}

func sortedVars(env manifest.Templates) []string {
	return slices.Sorted(maps.Keys(env))
}

// digest renders search paths and sorted bindings into a canonical byte
// stream and hashes it. Two descriptors with the same effective environment
// share a digest.
func digest(searchPaths []string, env map[string]string) string {
	h := sha256.New()
	for _, p := range searchPaths {
		fmt.Fprintf(h, "path %s\n", p)
	}
	for _, k := range slices.Sorted(maps.Keys(env)) {
		fmt.Fprintf(h, "env %s=%s\n", k, env[k])
	}
	return nixbase32.EncodeToString(h.Sum(nil))
}
