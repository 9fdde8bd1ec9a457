// Copyright (c) 2026 The envtool authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"

	"envtool.dev/x/envtool/pkg/utils"
	"envtool.dev/x/envtool/pkg/utils/stringset"
)

type Spec struct {
	Name     string         `yaml:"name,omitempty"`
	Packages []*Requirement `yaml:"packages"`
	Env      Templates      `yaml:"env,omitempty"`
}

func (s *Spec) UnmarshalYAML(bytes []byte) error {
	type Alias Spec
	alias := Alias{}
	if err := yaml.UnmarshalWithOptions(bytes, &alias, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to unmarshal Spec: %w", err)
	}

	if alias.Packages == nil {
		return fmt.Errorf("%w: spec 'packages'", ErrMissingManifestField)
	}
	if len(alias.Packages) == 0 {
		return fmt.Errorf("%w: must require at least one package", ErrInvalidManifest)
	}

	seen := stringset.StringSet{}
	for _, r := range alias.Packages {
		if seen.Contains(r.Name) {
			return fmt.Errorf("%w: package %q is required more than once", ErrInvalidManifest, r.Name)
		}
		seen.Add(r.Name)
	}

	if _, ok := alias.Env[ReservedPathVar]; ok {
		return fmt.Errorf("%w: %q is assembled from package search paths and cannot be bound directly", ErrInvalidManifest, ReservedPathVar)
	}

	*s = Spec(alias)
	return nil
}

var packageNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._+-]*$`)

func IsValidPackageName(s string) bool {
	return packageNameRegex.MatchString(s)
}

// Requirement is a single requested package, either the `name@constraint`
// shorthand or the long map form with `name` and `version` fields.
type Requirement struct {
	Name    string      `yaml:"name"`
	Version *Constraint `yaml:"version,omitempty"`
}

func (r *Requirement) UnmarshalYAML(data []byte) error {
	var shorthand string
	if err := yaml.Unmarshal(data, &shorthand); err == nil {
		return r.fromShorthand(shorthand)
	}

	type Alias Requirement
	alias := Alias{}
	if err := yaml.UnmarshalWithOptions(data, &alias, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to unmarshal package requirement: %w", err)
	}
	if alias.Name == "" {
		return fmt.Errorf("%w: package 'name'", ErrMissingManifestField)
	}
	*r = Requirement(alias)
	return r.validate()
}

func (r *Requirement) fromShorthand(s string) error {
	name, rawConstraint, hasConstraint := strings.Cut(s, "@")
	r.Name = name
	if hasConstraint {
		c, err := NewConstraint(rawConstraint)
		if err != nil {
			return fmt.Errorf("%w: package %q: %s", ErrInvalidManifest, name, err.Error())
		}
		r.Version = c
	}
	return r.validate()
}

func (r *Requirement) validate() error {
	if !IsValidPackageName(r.Name) {
		return fmt.Errorf("%w: %q is not a valid package name", ErrInvalidManifest, r.Name)
	}
	return nil
}

func (r *Requirement) MarshalYAML() ([]byte, error) {
	if r.Version == nil {
		return []byte(r.Name), nil
	}
	return []byte(r.Name + "@" + r.Version.String()), nil
}

func (r *Requirement) String() string {
	if r.Version == nil {
		return r.Name
	}
	return r.Name + "@" + r.Version.String()
}

const (
	ConflictStrategyFail     = "fail"
	ConflictStrategyOverride = "override"
	ConflictStrategyExtend   = "extend"
)

var TemplateStrategies = []string{ConflictStrategyFail, ConflictStrategyOverride, ConflictStrategyExtend}

// Templates is a Var -> *Template mapping
type Templates map[string]*Template

func (m *Templates) UnmarshalYAML(bytes []byte) error {
	raw := make(map[string]*Template)
	if err := yaml.UnmarshalWithOptions(bytes, &raw, yaml.Strict()); err != nil {
		return err
	}

	tmp := make(Templates)
	for k, t := range raw {
		t.Var = k
		tmp[k] = t
		if !utils.IsValidEnvVarIdentifier(k) {
			return fmt.Errorf("%w: %q is not a valid environment variable name", ErrInvalidManifest, k)
		}
		if !lo.Contains(TemplateStrategies, t.ConflictStrategy) {
			return fmt.Errorf("template %q has unknown conflict-strategy %q. Must be one of %q", k, t.ConflictStrategy, TemplateStrategies)
		}
	}
	*m = tmp
	return nil
}

// Template is a single env var binding. Values may reference other
// bindings and package install paths via `${...}` placeholders.
type Template struct {
	Var              string `yaml:"-"`
	Value            string `yaml:"value"`
	ConflictStrategy string `yaml:"conflict-strategy,omitempty"`
}

func (t *Template) UnmarshalYAML(data []byte) error {
	var shorthand string
	if err := yaml.Unmarshal(data, &shorthand); err == nil {
		*t = Template{Value: shorthand, ConflictStrategy: ConflictStrategyFail}
		return nil
	}

	type Alias Template
	alias := Alias{}
	if err := yaml.UnmarshalWithOptions(data, &alias, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to unmarshal env template: %w", err)
	}
	if alias.ConflictStrategy == "" {
		alias.ConflictStrategy = ConflictStrategyFail
	}
	*t = Template(alias)
	return nil
}

var _ yaml.BytesUnmarshaler = (*Spec)(nil)
var _ yaml.BytesUnmarshaler = (*Requirement)(nil)
var _ yaml.BytesMarshaler = (*Requirement)(nil)
var _ yaml.BytesUnmarshaler = (*Templates)(nil)
var _ yaml.BytesUnmarshaler = (*Template)(nil)
