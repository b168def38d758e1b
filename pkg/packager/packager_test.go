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

package packager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/recipe"
	"github.com/dice-group/recipectl/pkg/registry"
)

const testManifest = `cmake_minimum_required(VERSION 3.22)
project(dice-template-library
        VERSION 1.2.3
        DESCRIPTION "Compile-time utilities for C++20.")
`

type fakeBuilder struct {
	calls        []string
	vars         map[string]bool
	configureErr error
	buildErr     error
	installErr   error
}

func (f *fakeBuilder) Configure(_ context.Context, vars map[string]bool) error {
	f.calls = append(f.calls, StepConfigure)
	f.vars = vars
	return f.configureErr
}

func (f *fakeBuilder) Build(context.Context) error {
	f.calls = append(f.calls, StepBuild)
	return f.buildErr
}

func (f *fakeBuilder) Install(_ context.Context, dest string) error {
	f.calls = append(f.calls, StepInstall)
	if f.installErr != nil {
		return f.installErr
	}
	files := []string{
		"include/dice/template-library/switch_cases.hpp",
		"lib/cmake/dice-template-library/dice-template-library-config.cmake",
		"share/doc/README.md",
		"res/icon.svg",
	}
	for _, rel := range files {
		path := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type failingRegistry struct {
	*registry.Local
	commitErr error
}

func (f *failingRegistry) Commit(ctx context.Context, info registry.PackageInfo) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	return f.Local.Commit(ctx, info)
}

type fixture struct {
	srcDir   string
	staging  string
	registry *registry.Local
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte(testManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "LICENSE"), []byte("MIT License\n"), 0o644))

	reg, err := registry.NewLocal(filepath.Join(t.TempDir(), "registry"))
	require.NoError(t, err)

	return &fixture{
		srcDir:   src,
		staging:  filepath.Join(t.TempDir(), "package"),
		registry: reg,
	}
}

func (f *fixture) resolve(t *testing.T, overrides map[string]string) *recipe.Recipe {
	t.Helper()
	def, err := recipe.BuiltinDefinition(3, f.srcDir)
	require.NoError(t, err)
	res, err := recipe.NewResolver(def, recipe.WithRegistry(f.registry))
	require.NoError(t, err)
	r, err := res.Resolve(context.Background(), overrides, recipe.Settings{"compiler.cppstd": "20"})
	require.NoError(t, err)
	return r
}

func (f *fixture) packager(t *testing.T, b *fakeBuilder, opts ...ConfigOption) *Packager {
	t.Helper()
	opts = append([]ConfigOption{WithStagingDir(f.staging)}, opts...)
	p, err := New(b, f.registry, WithConfig(NewConfig(opts...)))
	require.NoError(t, err)
	return p
}

func TestRun_ExportsPackage(t *testing.T) {
	f := newFixture(t)
	r := f.resolve(t, map[string]string{"with_boost": "true"})
	b := &fakeBuilder{}

	res, err := f.packager(t, b).Run(context.Background(), r)
	require.NoError(t, err)

	assert.False(t, res.CacheHit)
	assert.Equal(t, []string{StepConfigure, StepInstall}, b.calls)
	assert.Equal(t, map[string]bool{
		"WITH_TEST_DEPS": false,
		"WITH_SVECTOR":   false,
		"WITH_BOOST":     true,
		"USE_CONAN":      false,
	}, b.vars)

	var steps []string
	for _, s := range res.Steps {
		steps = append(steps, s.Name)
	}
	assert.Equal(t, []string{StepConfigure, StepInstall, StepPrune, StepLicense, StepPublish}, steps)

	assert.FileExists(t, filepath.Join(f.staging, "include", "dice", "template-library", "switch_cases.hpp"))
	for _, d := range []string{"lib", "res", "share"} {
		assert.NoDirExists(t, filepath.Join(f.staging, d))
	}
	license, err := os.ReadFile(filepath.Join(f.staging, LicensesDir, "LICENSE"))
	require.NoError(t, err)
	assert.Equal(t, "MIT License\n", string(license))

	info, err := f.registry.Lookup(context.Background(), registry.RefOf(r))
	require.NoError(t, err)
	require.Len(t, info.Requirements, 1)
	assert.Equal(t, "boost", info.Requirements[0].Target)
	assert.Equal(t, "1.84.0", info.Requirements[0].VersionConstraint)

	target, ok := info.Property(recipe.PropertyTargetName)
	require.True(t, ok)
	assert.Equal(t, "dice-template-library::dice-template-library", target)
	fileName, _ := info.Property(recipe.PropertyFileName)
	assert.Equal(t, "dice-template-library", fileName)
	findMode, _ := info.Property(recipe.PropertyFindMode)
	assert.Equal(t, "both", findMode)
}

func TestRun_CacheHit(t *testing.T) {
	f := newFixture(t)
	r := f.resolve(t, nil)

	b := &fakeBuilder{}
	_, err := f.packager(t, b).Run(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, b.calls, 2)

	res, err := f.packager(t, b).Run(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Empty(t, res.Steps)
	assert.Len(t, b.calls, 2, "cache hit must not touch the builder")

	res, err = f.packager(t, b, WithForce(true)).Run(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Len(t, b.calls, 4)
}

func TestRun_BuildStep(t *testing.T) {
	f := newFixture(t)
	b := &fakeBuilder{}

	_, err := f.packager(t, b, WithBuild(true)).Run(context.Background(), f.resolve(t, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{StepConfigure, StepBuild, StepInstall}, b.calls)
}

func TestRun_StepFailures(t *testing.T) {
	tests := []struct {
		name     string
		builder  *fakeBuilder
		setup    func(t *testing.T, f *fixture)
		wantStep string
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "configure",
			builder:  &fakeBuilder{configureErr: errors.New("cmake: generator not found")},
			wantStep: StepConfigure,
			wantCode: apperrors.ErrCodeConfiguration,
		},
		{
			name:     "build",
			builder:  &fakeBuilder{buildErr: errors.New("compiler crashed")},
			wantStep: StepBuild,
			wantCode: apperrors.ErrCodeBuild,
		},
		{
			name:     "install",
			builder:  &fakeBuilder{installErr: errors.New("disk full")},
			wantStep: StepInstall,
			wantCode: apperrors.ErrCodeInstall,
		},
		{
			name:    "missing license",
			builder: &fakeBuilder{},
			setup: func(t *testing.T, f *fixture) {
				require.NoError(t, os.Remove(filepath.Join(f.srcDir, "LICENSE")))
			},
			wantStep: StepLicense,
			wantCode: apperrors.ErrCodeLicenseCopy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			r := f.resolve(t, nil)

			_, err := f.packager(t, tt.builder, WithBuild(true)).Run(context.Background(), r)
			require.Error(t, err)

			assert.Equal(t, apperrors.ErrCodePackaging, apperrors.CodeOf(err))
			assert.True(t, apperrors.HasCode(err, tt.wantCode))
			step, ok := apperrors.ContextValue(err, "step")
			require.True(t, ok)
			assert.Equal(t, tt.wantStep, step)

			_, err = f.registry.Lookup(context.Background(), registry.RefOf(r))
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
		})
	}
}

func TestRun_CommitFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	r := f.resolve(t, map[string]string{"with_svector": "true"})
	reg := &failingRegistry{Local: f.registry, commitErr: errors.New("read-only filesystem")}

	p, err := New(&fakeBuilder{}, reg, WithConfig(NewConfig(WithStagingDir(f.staging))))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), r)
	require.Error(t, err)
	step, _ := apperrors.ContextValue(err, "step")
	assert.Equal(t, StepPublish, step)

	_, err = f.registry.Lookup(context.Background(), registry.RefOf(r))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	reg.commitErr = nil
	_, err = p.Run(context.Background(), r)
	require.NoError(t, err)
	info, err := f.registry.Lookup(context.Background(), registry.RefOf(r))
	require.NoError(t, err)
	assert.Len(t, info.Requirements, 1)
}

func TestRun_ChecksumsAndArchive(t *testing.T) {
	f := newFixture(t)
	archivePath := filepath.Join(t.TempDir(), "dice-template-library.tgz")

	res, err := f.packager(t, &fakeBuilder{},
		WithChecksums(true),
		WithArchive(archivePath),
	).Run(context.Background(), f.resolve(t, nil))
	require.NoError(t, err)

	assert.FileExists(t, res.ChecksumFile)
	require.NotNil(t, res.Archive)
	assert.Equal(t, archivePath, res.Archive.Path)
	assert.FileExists(t, archivePath)
	// header + license + checksums.txt
	assert.Equal(t, 3, res.Archive.Files)

	var steps []string
	for _, s := range res.Steps {
		steps = append(steps, s.Name)
	}
	assert.Equal(t, StepPublish, steps[len(steps)-1])
}

func TestRun_ArchiveFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	r := f.resolve(t, nil)

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := f.packager(t, &fakeBuilder{}, WithArchive(filepath.Join(blocker, "out.tgz"))).
		Run(context.Background(), r)
	require.Error(t, err)
	step, _ := apperrors.ContextValue(err, "step")
	assert.Equal(t, StepArchive, step)

	_, err = f.registry.Lookup(context.Background(), registry.RefOf(r))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	archivePath := filepath.Join(t.TempDir(), "out.tgz")
	res, err := f.packager(t, &fakeBuilder{}, WithArchive(archivePath)).Run(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	require.NotNil(t, res.Archive)
	assert.FileExists(t, archivePath)
}

func TestRun_ClearsStaleStaging(t *testing.T) {
	f := newFixture(t)
	stale := filepath.Join(f.staging, "include", "stale.hpp")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	_, err := f.packager(t, &fakeBuilder{}).Run(context.Background(), f.resolve(t, nil))
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(f.staging, "include", "dice", "template-library", "switch_cases.hpp"))
}

func TestRun_RefusesStagingAroundSource(t *testing.T) {
	f := newFixture(t)
	b := &fakeBuilder{}
	p, err := New(b, f.registry, WithConfig(NewConfig(WithStagingDir(filepath.Dir(f.srcDir)))))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), f.resolve(t, nil))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInstall))
	assert.Equal(t, []string{StepConfigure}, b.calls)
	assert.FileExists(t, filepath.Join(f.srcDir, "CMakeLists.txt"))
}

func TestWithin(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/a", "/a", true},
		{"/a", "/a/b", true},
		{"/a/b", "/a", false},
		{"/a", "/ab", false},
		{"/a", "/a/..b", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, within(tt.root, tt.path), "%s in %s", tt.path, tt.root)
	}
}

func TestRun_UnknownOptionNeverReachesBuilder(t *testing.T) {
	f := newFixture(t)
	def, err := recipe.BuiltinDefinition(3, f.srcDir)
	require.NoError(t, err)
	res, err := recipe.NewResolver(def, recipe.WithRegistry(f.registry))
	require.NoError(t, err)

	b := &fakeBuilder{}
	_, err = res.Resolve(context.Background(), map[string]string{"with_qt": "true"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnknownOption))
	assert.Empty(t, b.calls)
	assert.NoDirExists(t, f.staging)
}

func TestRun_Canceled(t *testing.T) {
	f := newFixture(t)
	r := f.resolve(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &fakeBuilder{}
	_, err := f.packager(t, b).Run(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.calls)
}

func TestRun_NilRecipe(t *testing.T) {
	f := newFixture(t)
	_, err := f.packager(t, &fakeBuilder{}).Run(context.Background(), nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestPruneDirs_Idempotent(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"include/x", "lib/cmake", "share/doc"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	dirs := []string{"lib", "res", "share"}

	require.NoError(t, pruneDirs(root, dirs))
	require.NoError(t, pruneDirs(root, dirs))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "include", entries[0].Name())
}

func TestNew_RequiresCollaborators(t *testing.T) {
	f := newFixture(t)

	_, err := New(nil, f.registry)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))

	_, err = New(&fakeBuilder{}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
}
