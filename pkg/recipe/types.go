// Copyright (c) 2025, DICE Research Group.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recipe

import (
	"sort"
	"strings"

	"github.com/dice-group/recipectl/pkg/version"
)

// OptionType is the declared type of a feature option.
type OptionType string

const (
	OptionTypeBool OptionType = "bool"
	OptionTypeEnum OptionType = "enum"
)

// Visibility controls whether a requirement propagates to consumers.
type Visibility string

const (
	VisibilityTransitive Visibility = "transitive"
	VisibilityPrivate    Visibility = "private"
)

// Phase is the lifecycle phase a requirement is needed in.
type Phase string

const (
	PhaseBuild Phase = "build"
	PhaseTest  Phase = "test"
)

// PackageType describes what kind of artifact the package ships.
type PackageType string

const (
	PackageTypeHeaderLibrary PackageType = "header-library"
	PackageTypeLibrary       PackageType = "library"
)

// Identity names a package.
type Identity struct {
	Name        string          `json:"name" yaml:"name"`
	Version     version.Version `json:"version" yaml:"version"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// Reference returns "name/version".
func (i Identity) Reference() string {
	return i.Name + "/" + i.Version.String()
}

// OptionDecl declares one feature option of a recipe revision.
type OptionDecl struct {
	Name        string     `json:"name" yaml:"name"`
	Type        OptionType `json:"type" yaml:"type"`
	Default     string     `json:"default,omitempty" yaml:"default,omitempty"`
	Values      []string   `json:"values,omitempty" yaml:"values,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Requirement is a dependency edge declared to the registry.
type Requirement struct {
	Target            string     `json:"target" yaml:"target"`
	VersionConstraint string     `json:"version" yaml:"version"`
	Visibility        Visibility `json:"visibility" yaml:"visibility"`
	Phase             Phase      `json:"phase" yaml:"phase"`
}

// Reference returns "target/version".
func (r Requirement) Reference() string {
	return r.Target + "/" + r.VersionConstraint
}

// AffectsIdentity reports whether r takes part in the full package id.
func (r Requirement) AffectsIdentity() bool {
	return r.Visibility == VisibilityTransitive && r.Phase == PhaseBuild
}

// RequirementRule is one row of the option to requirement table.
type RequirementRule struct {
	// When is the option value that activates the rule. Defaults to "true".
	When       string     `json:"when,omitempty" yaml:"when,omitempty"`
	Target     string     `json:"target" yaml:"target"`
	Version    string     `json:"version" yaml:"version"`
	Visibility Visibility `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Phase      Phase      `json:"phase,omitempty" yaml:"phase,omitempty"`
}

func (r RequirementRule) requirement() Requirement {
	req := Requirement{
		Target:            r.Target,
		VersionConstraint: r.Version,
		Visibility:        r.Visibility,
		Phase:             r.Phase,
	}
	if req.Visibility == "" {
		req.Visibility = VisibilityTransitive
	}
	if req.Phase == "" {
		req.Phase = PhaseBuild
	}
	return req
}

// Settings are the platform axes of a build, e.g. "os", "compiler.cppstd".
// They are opaque to resolution and only passed through.
type Settings map[string]string

// Clone returns a copy of s.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the setting names in sorted order.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OptionValue is one resolved option.
type OptionValue struct {
	Name  string     `json:"name" yaml:"name"`
	Type  OptionType `json:"type" yaml:"type"`
	Value string     `json:"value" yaml:"value"`
}

// Enabled reports whether a bool option resolved to true.
func (o OptionValue) Enabled() bool {
	return o.Type == OptionTypeBool && o.Value == "true"
}

// ResolvedOptions holds every declared option with a concrete value, in
// declaration order.
type ResolvedOptions []OptionValue

// Get returns the value of the named option.
func (r ResolvedOptions) Get(name string) (string, bool) {
	for _, o := range r {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// Enabled reports whether the named bool option is on.
func (r ResolvedOptions) Enabled(name string) bool {
	for _, o := range r {
		if o.Name == name {
			return o.Enabled()
		}
	}
	return false
}

// Map returns the options as a name to value map.
func (r ResolvedOptions) Map() map[string]string {
	out := make(map[string]string, len(r))
	for _, o := range r {
		out[o.Name] = o.Value
	}
	return out
}

// String renders the options as "a=x,b=y" in declaration order.
func (r ResolvedOptions) String() string {
	parts := make([]string, 0, len(r))
	for _, o := range r {
		parts = append(parts, o.Name+"="+o.Value)
	}
	return strings.Join(parts, ",")
}
