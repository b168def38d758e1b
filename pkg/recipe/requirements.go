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

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

// ComposeRequirements turns resolved options into the ordered requirement
// sequence. Unconditional requirements come first, then the option table
// walked in option declaration order.
func ComposeRequirements(def *Definition, opts ResolvedOptions) ([]Requirement, error) {
	var out []Requirement
	seen := make(map[string]bool)

	add := func(req Requirement, source string) error {
		key := req.Target + "@" + string(req.Phase)
		if seen[key] {
			return apperrors.NewWithContext(apperrors.ErrCodeDuplicateRequirement,
				fmt.Sprintf("requirement %q is declared more than once for phase %s", req.Target, req.Phase),
				map[string]any{"target": req.Target, "phase": string(req.Phase), "source": source})
		}
		seen[key] = true
		out = append(out, req)
		return nil
	}

	for _, rule := range def.Requires {
		if err := add(rule.requirement(), "requires"); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		for _, rule := range def.OptionRequires[opt.Name] {
			when := rule.When
			if when == "" {
				when = "true"
			}
			decl, _ := def.Option(opt.Name)
			want, err := normalizeValue(decl, when)
			if err != nil || want != opt.Value {
				continue
			}
			if err := add(rule.requirement(), opt.Name); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// IdentityRequirements returns the transitive build-phase subset of reqs,
// the only requirements that take part in a full package id.
func IdentityRequirements(reqs []Requirement) []Requirement {
	var out []Requirement
	for _, r := range reqs {
		if r.AffectsIdentity() {
			out = append(out, r)
		}
	}
	return out
}
