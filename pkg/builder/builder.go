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

package builder

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Builder is the native build tool driven by the packager.
type Builder interface {
	// Configure prepares a build with the given boolean variables.
	Configure(ctx context.Context, vars map[string]bool) error
	// Build compiles the configured project.
	Build(ctx context.Context) error
	// Install copies build outputs into destination.
	Install(ctx context.Context, destination string) error
}

var upper = cases.Upper(language.Und)

// VariableName translates an option name into the build tool's variable
// convention: upper case with underscores, e.g. with_boost becomes WITH_BOOST.
func VariableName(option string) string {
	return upper.String(strings.NewReplacer("-", "_", ".", "_").Replace(option))
}

// Variables merges option derived variables with fixed ones. Option names
// are translated with VariableName. A fixed variable wins over an option
// that maps to the same name.
func Variables(options, fixed map[string]bool) map[string]bool {
	out := make(map[string]bool, len(options)+len(fixed))
	for name, on := range options {
		out[VariableName(name)] = on
	}
	for name, on := range fixed {
		out[name] = on
	}
	return out
}

// SortedNames returns the variable names of vars in sorted order.
func SortedNames(vars map[string]bool) []string {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
