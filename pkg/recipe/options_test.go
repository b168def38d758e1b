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

func optionsDefinition(t *testing.T) *Definition {
	t.Helper()
	def, err := ParseDefinition([]byte(minimalDefinition+`options:
  - name: with_test_deps
    type: bool
    default: "false"
  - name: with_boost
    type: bool
  - name: shared
    type: bool
    default: "true"
  - name: flavor
    type: enum
    values: [lite, full]
    default: lite
`), "")
	require.NoError(t, err)
	return def
}

func TestResolveOptions(t *testing.T) {
	def := optionsDefinition(t)

	tests := []struct {
		name      string
		overrides map[string]string
		want      map[string]string
	}{
		{
			name: "defaults",
			want: map[string]string{"with_test_deps": "false", "with_boost": "false", "shared": "true", "flavor": "lite"},
		},
		{
			name:      "bool spellings",
			overrides: map[string]string{"with_test_deps": "ON", "with_boost": "1", "shared": "False"},
			want:      map[string]string{"with_test_deps": "true", "with_boost": "true", "shared": "false", "flavor": "lite"},
		},
		{
			name:      "enum override",
			overrides: map[string]string{"flavor": "full"},
			want:      map[string]string{"with_test_deps": "false", "with_boost": "false", "shared": "true", "flavor": "full"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveOptions(def, tt.overrides)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Map())
		})
	}
}

func TestResolveOptions_DeclarationOrder(t *testing.T) {
	got, err := ResolveOptions(optionsDefinition(t), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, o := range got {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"with_test_deps", "with_boost", "shared", "flavor"}, names)
	assert.Equal(t, "with_test_deps=false,with_boost=false,shared=true,flavor=lite", got.String())
}

func TestResolveOptions_UnknownOption(t *testing.T) {
	_, err := ResolveOptions(optionsDefinition(t), map[string]string{"with_svector": "true", "with_boost": "true"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnknownOption))

	opt, ok := apperrors.ContextValue(err, "option")
	require.True(t, ok)
	assert.Equal(t, "with_svector", opt)
	rev, ok := apperrors.ContextValue(err, "revision")
	require.True(t, ok)
	assert.Equal(t, 1, rev)
}

func TestResolveOptions_InvalidValue(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
	}{
		{"bool", map[string]string{"with_boost": "maybe"}},
		{"enum", map[string]string{"flavor": "heavy"}},
		{"enum is case sensitive", map[string]string{"flavor": "Full"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveOptions(optionsDefinition(t), tt.overrides)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
		})
	}
}

func TestResolvedOptions_Accessors(t *testing.T) {
	opts := ResolvedOptions{
		{Name: "with_boost", Type: OptionTypeBool, Value: "true"},
		{Name: "flavor", Type: OptionTypeEnum, Value: "true"},
	}

	assert.True(t, opts.Enabled("with_boost"))
	assert.False(t, opts.Enabled("flavor"), "enum options are never enabled")
	assert.False(t, opts.Enabled("missing"))

	v, ok := opts.Get("flavor")
	assert.True(t, ok)
	assert.Equal(t, "true", v)
	_, ok = opts.Get("missing")
	assert.False(t, ok)
}
