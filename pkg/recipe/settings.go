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

// SettingCppStd is the setting carrying the C++ standard, e.g. "20" or "gnu20".
const SettingCppStd = "compiler.cppstd"

// validateSettings rejects settings the package cannot be consumed with.
// Only the C++ standard is checked, and only when both sides specify one.
func validateSettings(def *Definition, settings Settings) error {
	if def.MinCppStd == "" {
		return nil
	}
	got, ok := settings[SettingCppStd]
	if !ok || got == "" {
		return nil
	}
	have, err := cppStdNumber(got)
	if err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid compiler.cppstd setting", err, map[string]any{"setting": SettingCppStd, "value": got})
	}
	want, err := cppStdNumber(def.MinCppStd)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "invalid minCppStd in definition", err)
	}
	if have < want {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("package requires C++%s or newer, got %s", def.MinCppStd, got),
			map[string]any{"setting": SettingCppStd, "value": got, "minimum": def.MinCppStd})
	}
	return nil
}
