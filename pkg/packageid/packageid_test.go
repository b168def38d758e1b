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

package packageid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInputs() Inputs {
	return Inputs{
		Name:    "dice-template-library",
		Version: "1.9.1",
		Settings: map[string]string{
			"os":              "Linux",
			"arch":            "x86_64",
			"compiler":        "gcc",
			"compiler.cppstd": "20",
			"build_type":      "Release",
		},
		Options: map[string]string{
			"with_test_deps": "false",
			"with_svector":   "false",
			"with_boost":     "true",
		},
		Requirements: []string{"boost/1.84.0"},
	}
}

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	for _, mode := range []Mode{ModeFull, ModeCanonical} {
		first, err := Compute(mode, baseInputs())
		require.NoError(t, err)
		second, err := Compute(mode, baseInputs())
		require.NoError(t, err)
		assert.Equal(t, first, second, mode)
		assert.Len(t, first, 64)
		assert.Regexp(t, `^[0-9a-f]{64}$`, first)
	}
}

func TestCompute_FullSensitivity(t *testing.T) {
	t.Parallel()

	base, err := Compute(ModeFull, baseInputs())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Inputs)
	}{
		{"option flipped", func(in *Inputs) { in.Options["with_svector"] = "true" }},
		{"option added", func(in *Inputs) { in.Options["with_extra"] = "false" }},
		{"setting changed", func(in *Inputs) { in.Settings["build_type"] = "Debug" }},
		{"setting removed", func(in *Inputs) { delete(in.Settings, "arch") }},
		{"requirement added", func(in *Inputs) { in.Requirements = append(in.Requirements, "svector/1.0.3") }},
		{"requirement version", func(in *Inputs) { in.Requirements = []string{"boost/1.83.0"} }},
		{"version changed", func(in *Inputs) { in.Version = "1.9.2" }},
		{"name changed", func(in *Inputs) { in.Name = "dice-hash" }},
		{"description changed", func(in *Inputs) { in.Description = "templates" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInputs()
			tt.mutate(&in)
			got, err := Compute(ModeFull, in)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestCompute_RequirementOrderIndependent(t *testing.T) {
	t.Parallel()

	a := baseInputs()
	a.Requirements = []string{"boost/1.84.0", "svector/1.0.3"}
	b := baseInputs()
	b.Requirements = []string{"svector/1.0.3", "boost/1.84.0", "boost/1.84.0"}

	idA, err := Compute(ModeFull, a)
	require.NoError(t, err)
	idB, err := Compute(ModeFull, b)
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestCompute_NoFieldCollisions(t *testing.T) {
	t.Parallel()

	a := baseInputs()
	a.Settings = map[string]string{"os": "Linux\ncompiler=gcc"}
	b := baseInputs()
	b.Settings = map[string]string{"os": "Linux", "compiler": "gcc"}

	idA, err := Compute(ModeFull, a)
	require.NoError(t, err)
	idB, err := Compute(ModeFull, b)
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
}

func TestCompute_CanonicalStability(t *testing.T) {
	t.Parallel()

	base, err := Compute(ModeCanonical, baseInputs())
	require.NoError(t, err)

	for _, os := range []string{"Linux", "Windows", "Macos"} {
		for _, bt := range []string{"Debug", "Release"} {
			for _, boost := range []string{"true", "false"} {
				in := baseInputs()
				in.Settings["os"] = os
				in.Settings["build_type"] = bt
				in.Options["with_boost"] = boost
				if boost == "false" {
					in.Requirements = nil
				}
				got, err := Compute(ModeCanonical, in)
				require.NoError(t, err)
				assert.Equal(t, base, got, "os=%s build_type=%s with_boost=%s", os, bt, boost)
			}
		}
	}
}

func TestCompute_CanonicalTracksIdentity(t *testing.T) {
	t.Parallel()

	base, err := Compute(ModeCanonical, baseInputs())
	require.NoError(t, err)

	mutations := map[string]func(*Inputs){
		"name":        func(in *Inputs) { in.Name = "other" },
		"version":     func(in *Inputs) { in.Version = "9.9.9" },
		"description": func(in *Inputs) { in.Description = "changed" },
	}
	for field, mutate := range mutations {
		in := baseInputs()
		mutate(&in)
		got, err := Compute(ModeCanonical, in)
		require.NoError(t, err)
		assert.NotEqual(t, base, got, field)
	}
}

func TestCompute_ModesDiffer(t *testing.T) {
	t.Parallel()

	full, err := Compute(ModeFull, Inputs{Name: "example", Version: "1.0.0"})
	require.NoError(t, err)
	canonical, err := Compute(ModeCanonical, Inputs{Name: "example", Version: "1.0.0"})
	require.NoError(t, err)
	assert.NotEqual(t, full, canonical)
}

func TestCompute_Errors(t *testing.T) {
	t.Parallel()

	_, err := Compute(Mode("partial"), baseInputs())
	assert.Error(t, err)

	_, err = Compute(ModeFull, Inputs{Version: "1.0.0"})
	assert.Error(t, err)

	_, err = Compute(ModeCanonical, Inputs{Name: "example"})
	assert.Error(t, err)
}
