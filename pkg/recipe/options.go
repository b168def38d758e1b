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
	"sort"
	"strings"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

// ResolveOptions assigns a concrete value to every option declared by def.
// Overrides win over defaults. A bool option without a default is false, so
// options added by a newer revision leave older configurations unchanged.
func ResolveOptions(def *Definition, overrides map[string]string) (ResolvedOptions, error) {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := def.Option(name); !ok {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeUnknownOption,
				fmt.Sprintf("option %q is not declared by recipe revision %d", name, def.Revision),
				map[string]any{"option": name, "revision": def.Revision})
		}
	}

	resolved := make(ResolvedOptions, 0, len(def.Options))
	for _, decl := range def.Options {
		raw, overridden := overrides[decl.Name]
		if !overridden {
			raw = decl.Default
		}
		value, err := normalizeValue(decl, raw)
		if err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid value for option %q", decl.Name), err,
				map[string]any{"option": decl.Name, "value": raw, "revision": def.Revision})
		}
		resolved = append(resolved, OptionValue{Name: decl.Name, Type: decl.Type, Value: value})
	}
	return resolved, nil
}

// normalizeValue returns the canonical spelling of raw for decl.
func normalizeValue(decl OptionDecl, raw string) (string, error) {
	switch decl.Type {
	case OptionTypeBool:
		if raw == "" {
			return "false", nil
		}
		b, err := parseBool(raw)
		if err != nil {
			return "", err
		}
		if b {
			return "true", nil
		}
		return "false", nil
	case OptionTypeEnum:
		if !contains(decl.Values, raw) {
			return "", fmt.Errorf("%q is not one of %s", raw, strings.Join(decl.Values, ", "))
		}
		return raw, nil
	default:
		return "", fmt.Errorf("unsupported option type %q", decl.Type)
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on", "yes":
		return true, nil
	case "false", "0", "off", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%q is not a boolean", s)
	}
}
