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
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/header"
	"github.com/dice-group/recipectl/pkg/manifest"
	"github.com/dice-group/recipectl/pkg/packageid"
	"github.com/dice-group/recipectl/pkg/serializer"
	"github.com/dice-group/recipectl/pkg/version"
)

const (
	// DefaultLicenseFile is copied into the package when licenseFile is unset.
	DefaultLicenseFile = "LICENSE"
	// DefaultFindMode is published as cmake_find_mode when exports.findMode is unset.
	DefaultFindMode = "both"
)

// DefaultPruneDirs are removed from the staged package when prune is unset.
var DefaultPruneDirs = []string{"lib", "res", "share"}

var (
	nameToken   = regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)
	optionToken = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	findModes   = map[string]bool{"config": true, "module": true, "both": true, "none": true}
)

// Exports configures the consumer facing metadata published with a package.
type Exports struct {
	FindMode string `json:"findMode,omitempty" yaml:"findMode,omitempty"`
}

// Definition is one revision of a recipe: its metadata, option schema and
// option to requirement table.
type Definition struct {
	header.Header `json:",inline" yaml:",inline"`

	Revision    int    `json:"revision" yaml:"revision"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Author      string      `json:"author,omitempty" yaml:"author,omitempty"`
	Homepage    string      `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	URL         string      `json:"url,omitempty" yaml:"url,omitempty"`
	License     string      `json:"license,omitempty" yaml:"license,omitempty"`
	Topics      []string    `json:"topics,omitempty" yaml:"topics,omitempty"`
	PackageType PackageType `json:"packageType,omitempty" yaml:"packageType,omitempty"`

	Manifest     string         `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	IdentityMode packageid.Mode `json:"identityMode,omitempty" yaml:"identityMode,omitempty"`
	Namespace    string         `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	Options        []OptionDecl                 `json:"options,omitempty" yaml:"options,omitempty"`
	Requires       []RequirementRule            `json:"requires,omitempty" yaml:"requires,omitempty"`
	OptionRequires map[string][]RequirementRule `json:"optionRequires,omitempty" yaml:"optionRequires,omitempty"`

	BuilderVariables map[string]bool `json:"builderVariables,omitempty" yaml:"builderVariables,omitempty"`
	Prune            []string        `json:"prune,omitempty" yaml:"prune,omitempty"`
	LicenseFile      string          `json:"licenseFile,omitempty" yaml:"licenseFile,omitempty"`
	MinCppStd        string          `json:"minCppStd,omitempty" yaml:"minCppStd,omitempty"`
	Exports          Exports         `json:"exports,omitempty" yaml:"exports,omitempty"`

	// baseDir is the directory relative paths are resolved against.
	baseDir string
}

// LoadDefinition reads and validates a definition file. Relative paths in
// the definition resolve against the file's directory.
func LoadDefinition(path string) (*Definition, error) {
	def, err := serializer.FromFile[Definition](path, serializer.WithStrict())
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"failed to load recipe definition", err, map[string]any{"path": path})
	}
	if abs, absErr := filepath.Abs(filepath.Dir(path)); absErr == nil {
		def.baseDir = abs
	} else {
		def.baseDir = filepath.Dir(path)
	}
	if err := def.Validate(); err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid recipe definition", err, map[string]any{"path": path})
	}
	return def, nil
}

// ParseDefinition decodes and validates a YAML definition. Relative paths
// resolve against baseDir.
func ParseDefinition(data []byte, baseDir string) (*Definition, error) {
	def, err := serializer.FromBytes[Definition](serializer.FormatYAML, data, serializer.WithStrict())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to decode recipe definition", err)
	}
	def.baseDir = baseDir
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// WithBaseDir returns a copy of d whose relative paths resolve against dir.
func (d *Definition) WithBaseDir(dir string) *Definition {
	cp := *d
	cp.baseDir = dir
	return &cp
}

// BaseDir returns the directory relative paths resolve against.
func (d *Definition) BaseDir() string {
	return d.baseDir
}

// ManifestPath returns the path of the build manifest.
func (d *Definition) ManifestPath() string {
	name := d.Manifest
	if name == "" {
		name = manifest.DefaultFileName
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.baseDir, name)
}

// Mode returns the declared package id mode. Header-only packages default
// to canonical ids, everything else to full ids.
func (d *Definition) Mode() packageid.Mode {
	if d.IdentityMode != "" {
		return d.IdentityMode
	}
	if d.PackageType == PackageTypeHeaderLibrary {
		return packageid.ModeCanonical
	}
	return packageid.ModeFull
}

// PruneDirs returns the staging directories removed after install.
func (d *Definition) PruneDirs() []string {
	if d.Prune == nil {
		return append([]string(nil), DefaultPruneDirs...)
	}
	return append([]string(nil), d.Prune...)
}

// LicensePath returns the license source path.
func (d *Definition) LicensePath() string {
	name := d.LicenseFile
	if name == "" {
		name = DefaultLicenseFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.baseDir, name)
}

// FindMode returns the published cmake_find_mode.
func (d *Definition) FindMode() string {
	if d.Exports.FindMode == "" {
		return DefaultFindMode
	}
	return d.Exports.FindMode
}

// Option returns the declaration of the named option.
func (d *Definition) Option(name string) (OptionDecl, bool) {
	for _, o := range d.Options {
		if o.Name == name {
			return o, true
		}
	}
	return OptionDecl{}, false
}

// Validate checks the definition for internal consistency.
func (d *Definition) Validate() error {
	if err := d.Header.Expect(header.KindRecipeDefinition); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid definition header", err)
	}
	if d.Revision <= 0 {
		return invalid("revision must be a positive integer", "revision", d.Revision)
	}
	if d.Name != "" && !nameToken.MatchString(d.Name) {
		return invalid("name must be lowercase words separated by hyphens", "name", d.Name)
	}
	if d.Version != "" {
		if _, err := version.ParseVersion(d.Version); err != nil {
			return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
				"invalid version", err, map[string]any{"version": d.Version})
		}
	}
	switch d.PackageType {
	case "", PackageTypeHeaderLibrary, PackageTypeLibrary:
	default:
		return invalid("unknown package type", "packageType", d.PackageType)
	}
	if d.IdentityMode != "" && !d.IdentityMode.IsValid() {
		return invalid("unknown identity mode", "identityMode", d.IdentityMode)
	}
	if !findModes[d.FindMode()] {
		return invalid("unknown find mode", "findMode", d.FindMode())
	}
	if d.MinCppStd != "" {
		if _, err := cppStdNumber(d.MinCppStd); err != nil {
			return invalid("minCppStd must be a C++ standard number", "minCppStd", d.MinCppStd)
		}
	}
	for _, dir := range d.Prune {
		if dir == "" || filepath.IsAbs(dir) || strings.HasPrefix(filepath.Clean(dir), "..") {
			return invalid("prune entries must be relative paths inside the staging directory", "prune", dir)
		}
	}

	seen := make(map[string]bool, len(d.Options))
	for _, o := range d.Options {
		if err := validateOption(o); err != nil {
			return err
		}
		if seen[o.Name] {
			return invalid("option declared more than once", "option", o.Name)
		}
		seen[o.Name] = true
	}

	for _, rule := range d.Requires {
		if rule.When != "" {
			return invalid("unconditional requirement cannot have a when clause", "target", rule.Target)
		}
		if err := validateRule(rule); err != nil {
			return err
		}
	}
	for name, rules := range d.OptionRequires {
		decl, ok := d.Option(name)
		if !ok {
			return invalid("requirement table references an undeclared option", "option", name)
		}
		for _, rule := range rules {
			if err := validateRule(rule); err != nil {
				return err
			}
			when := rule.When
			if when == "" {
				if decl.Type == OptionTypeEnum {
					return invalid("enum option rules need an explicit when value", "option", name)
				}
				when = "true"
			}
			if _, err := normalizeValue(decl, when); err != nil {
				return invalid("when value is not valid for the option", "option", name)
			}
		}
	}
	return nil
}

func validateOption(o OptionDecl) error {
	if !optionToken.MatchString(o.Name) {
		return invalid("option names must be lowercase identifiers", "option", o.Name)
	}
	switch o.Type {
	case OptionTypeBool:
		if o.Default != "" {
			if _, err := parseBool(o.Default); err != nil {
				return invalid("bool option default must be a boolean", "option", o.Name)
			}
		}
		if len(o.Values) > 0 {
			return invalid("bool options cannot list values", "option", o.Name)
		}
	case OptionTypeEnum:
		if len(o.Values) == 0 {
			return invalid("enum options must list their values", "option", o.Name)
		}
		if o.Default == "" {
			return invalid("enum options must declare a default", "option", o.Name)
		}
		if !contains(o.Values, o.Default) {
			return invalid("enum default is not one of the declared values", "option", o.Name)
		}
	default:
		return invalid("option type must be bool or enum", "option", o.Name)
	}
	return nil
}

func validateRule(rule RequirementRule) error {
	if rule.Target == "" {
		return invalid("requirement target is required", "target", rule.Target)
	}
	if rule.Version == "" {
		return invalid("requirement version is required", "target", rule.Target)
	}
	switch rule.Visibility {
	case "", VisibilityTransitive, VisibilityPrivate:
	default:
		return invalid("unknown requirement visibility", "target", rule.Target)
	}
	switch rule.Phase {
	case "", PhaseBuild, PhaseTest:
	default:
		return invalid("unknown requirement phase", "target", rule.Target)
	}
	return nil
}

// cppStdNumber returns an orderable number for values like "20" or
// "gnu17". C++98 sorts before C++03.
func cppStdNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "gnu"))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid cppstd %q", s)
	}
	if n >= 98 {
		n -= 100
	}
	return n, nil
}

func invalid(msg, key string, value any) error {
	return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, msg, map[string]any{key: value})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
