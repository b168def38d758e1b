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

package oci

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/oci"
)

func TestStripProtocol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://ghcr.io", "ghcr.io"},
		{"http://localhost:5000", "localhost:5000"},
		{"registry.example.com", "registry.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, stripProtocol(tt.input))
	}
}

func TestAnnotations(t *testing.T) {
	a := Annotations("dice-template-library", "1.9.1", "abc123")
	assert.Equal(t, "dice-template-library", a[ociv1.AnnotationTitle])
	assert.Equal(t, "1.9.1", a[ociv1.AnnotationVersion])
	assert.Equal(t, "abc123", a[AnnotationPackageID])
}

func TestPackage_Validation(t *testing.T) {
	ctx := context.Background()
	base := PackageOptions{
		SourceDir:  ".",
		OutputDir:  t.TempDir(),
		Registry:   "ghcr.io",
		Repository: "dice-group/dtl",
		Tag:        "1.0.0",
	}

	noTag := base
	noTag.Tag = ""
	_, err := Package(ctx, noTag)
	assert.EqualError(t, err, "tag is required for OCI packaging")

	noRegistry := base
	noRegistry.Registry = ""
	_, err = Package(ctx, noRegistry)
	assert.EqualError(t, err, "registry is required for OCI packaging")

	noRepo := base
	noRepo.Repository = ""
	_, err = Package(ctx, noRepo)
	assert.EqualError(t, err, "repository is required for OCI packaging")

	src := t.TempDir()
	nested := base
	nested.SourceDir = src
	nested.OutputDir = filepath.Join(src, "out")
	_, err = Package(ctx, nested)
	assert.ErrorContains(t, err, "must not be inside source directory")
}

func stagePackage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"include/dice/template-library/switch_cases.hpp": "#pragma once\n",
		"licenses/LICENSE": "MIT\n",
	}
	for rel, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func TestPackage_CreatesOCILayout(t *testing.T) {
	ctx := context.Background()
	src := stagePackage(t)

	res, err := Package(ctx, PackageOptions{
		SourceDir:             src,
		OutputDir:             t.TempDir(),
		Registry:              "ghcr.io",
		Repository:            "dice-group/dice-template-library",
		Tag:                   "1.9.1",
		Annotations:           Annotations("dice-template-library", "1.9.1", "abc123"),
		ReproducibleTimestamp: "2024-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "ghcr.io/dice-group/dice-template-library:1.9.1", res.Reference)
	assert.NotEmpty(t, res.Digest)
	assert.FileExists(t, filepath.Join(res.StorePath, "oci-layout"))
	assert.FileExists(t, filepath.Join(res.StorePath, "index.json"))

	store, err := oci.New(res.StorePath)
	require.NoError(t, err)
	desc, err := store.Resolve(ctx, "1.9.1")
	require.NoError(t, err)
	data, err := content.FetchAll(ctx, store, desc)
	require.NoError(t, err)

	var manifest ociv1.Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, ArtifactType, manifest.ArtifactType)
	require.Len(t, manifest.Layers, 1)
	assert.Equal(t, ociv1.MediaTypeImageLayerGzip, manifest.Layers[0].MediaType)
	assert.Equal(t, "abc123", manifest.Annotations[AnnotationPackageID])
	assert.Equal(t, "2024-01-01T00:00:00Z", manifest.Annotations[ociv1.AnnotationCreated])
}

func TestPackage_Reproducible(t *testing.T) {
	ctx := context.Background()
	src := stagePackage(t)
	opts := PackageOptions{
		SourceDir:             src,
		Registry:              "ghcr.io",
		Repository:            "dice-group/dice-template-library",
		Tag:                   "1.9.1",
		ReproducibleTimestamp: "2024-01-01T00:00:00Z",
	}

	opts.OutputDir = t.TempDir()
	first, err := Package(ctx, opts)
	require.NoError(t, err)

	opts.OutputDir = t.TempDir()
	second, err := Package(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
}

func TestPushFromStore_Validation(t *testing.T) {
	_, err := PushFromStore(context.Background(), t.TempDir(), PushOptions{
		Registry:   "localhost:5000",
		Repository: "dtl",
	})
	assert.EqualError(t, err, "tag is required to push OCI image")

	_, err = PushFromStore(context.Background(), t.TempDir(), PushOptions{
		Registry:   "localhost:5000",
		Repository: "Invalid Repo",
		Tag:        "1.0.0",
	})
	assert.ErrorContains(t, err, "invalid image reference")
}

func TestPackageAndPush_RequiresTag(t *testing.T) {
	_, err := PackageAndPush(context.Background(), OutputConfig{
		SourceDir: stagePackage(t),
		OutputDir: t.TempDir(),
		Reference: &Reference{Registry: "ghcr.io", Repository: "dtl"},
	})
	assert.Error(t, err)

	_, err = PackageAndPush(context.Background(), OutputConfig{})
	assert.Error(t, err)
}
