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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

func TestBuiltinRevisions(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, BuiltinRevisions())
	assert.Equal(t, 3, LatestBuiltinRevision())
}

func TestBuiltinDefinition(t *testing.T) {
	tests := []struct {
		revision int
		options  []string
	}{
		{1, []string{"with_test_deps"}},
		{2, []string{"with_test_deps", "with_svector"}},
		{3, []string{"with_test_deps", "with_svector", "with_boost"}},
	}
	for _, tt := range tests {
		def, err := BuiltinDefinition(tt.revision, "/src")
		require.NoError(t, err)
		assert.Equal(t, tt.revision, def.Revision)
		assert.Equal(t, PackageTypeHeaderLibrary, def.PackageType)
		assert.Equal(t, map[string]bool{"USE_CONAN": false}, def.BuilderVariables)

		names := make([]string, 0, len(def.Options))
		for _, o := range def.Options {
			names = append(names, o.Name)
			assert.Equal(t, OptionTypeBool, o.Type)
			assert.Equal(t, "false", o.Default)
		}
		assert.Equal(t, tt.options, names)
	}
}

func TestBuiltinDefinition_FreshCopies(t *testing.T) {
	a, err := BuiltinDefinition(3, "/a")
	require.NoError(t, err)
	a.Options[0].Default = "true"

	b, err := BuiltinDefinition(3, "/b")
	require.NoError(t, err)
	assert.Equal(t, "false", b.Options[0].Default)
}

func TestBuiltinDefinition_Unknown(t *testing.T) {
	_, err := BuiltinDefinition(42, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

// Options added by a newer revision must not change how configurations
// written for an older revision resolve.
func TestBuiltinRevisions_BackwardCompatible(t *testing.T) {
	combos := func(names []string) []map[string]string {
		out := []map[string]string{{}}
		for _, n := range names {
			var next []map[string]string
			for _, c := range out {
				for _, v := range []string{"", "true", "false"} {
					m := make(map[string]string, len(c)+1)
					for k, val := range c {
						m[k] = val
					}
					if v != "" {
						m[n] = v
					}
					next = append(next, m)
				}
			}
			out = next
		}
		return out
	}

	revs := BuiltinRevisions()
	for i := 1; i < len(revs); i++ {
		older := builtin(t, revs[i-1])
		newer := builtin(t, revs[i])

		var names []string
		for _, o := range older.Options {
			names = append(names, o.Name)
		}

		for _, overrides := range combos(names) {
			oldOpts, err := ResolveOptions(older, overrides)
			require.NoError(t, err)
			newOpts, err := ResolveOptions(newer, overrides)
			require.NoError(t, err)

			for _, o := range oldOpts {
				v, ok := newOpts.Get(o.Name)
				require.True(t, ok)
				assert.Equal(t, o.Value, v, "revision %d option %s", revs[i], o.Name)
			}
			for _, o := range newOpts {
				if _, ok := oldOpts.Get(o.Name); !ok {
					assert.Equal(t, "false", o.Value, "new option %s must default to false", o.Name)
				}
			}

			oldReqs, err := ComposeRequirements(older, oldOpts)
			require.NoError(t, err)
			newReqs, err := ComposeRequirements(newer, newOpts)
			require.NoError(t, err)
			assert.Equal(t, oldReqs, newReqs, "revision %d overrides %v", revs[i], overrides)
		}
	}
}
