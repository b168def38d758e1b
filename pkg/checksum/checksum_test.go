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

package checksum

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestGenerate(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"include/b.hpp":       "b",
		"include/a.hpp":       "a",
		"licenses/LICENSE":    "MIT",
		"include/sub/deep.hh": "deep",
	})

	path, err := Generate(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, FilePath(dir), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], "  include/a.hpp"))
	assert.True(t, strings.HasSuffix(lines[1], "  include/b.hpp"))
	assert.True(t, strings.HasSuffix(lines[2], "  include/sub/deep.hh"))
	assert.True(t, strings.HasSuffix(lines[3], "  licenses/LICENSE"))
	// sha256("a")
	assert.True(t, strings.HasPrefix(lines[0], "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb"))
}

func TestGenerate_Idempotent(t *testing.T) {
	dir := writeTree(t, map[string]string{"a": "1", "b": "2"})

	first, err := Generate(context.Background(), dir)
	require.NoError(t, err)
	before, err := os.ReadFile(first)
	require.NoError(t, err)

	_, err = Generate(context.Background(), dir)
	require.NoError(t, err)
	after, err := os.ReadFile(first)
	require.NoError(t, err)

	assert.Equal(t, string(before), string(after), "checksums.txt must not list itself")
}

func TestGenerate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, t.TempDir())
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, dir string)
		wantErr string
	}{
		{"unchanged", func(*testing.T, string) {}, ""},
		{"modified", func(t *testing.T, dir string) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "include", "a.hpp"), []byte("changed"), 0o644))
		}, "modified include/a.hpp"},
		{"missing", func(t *testing.T, dir string) {
			require.NoError(t, os.Remove(filepath.Join(dir, "include", "a.hpp")))
		}, "missing include/a.hpp"},
		{"extra", func(t *testing.T, dir string) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.txt"), []byte("x"), 0o644))
		}, "unexpected extra.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeTree(t, map[string]string{"include/a.hpp": "a", "LICENSE": "MIT"})
			_, err := Generate(context.Background(), dir)
			require.NoError(t, err)

			tt.mutate(t, dir)
			err = Verify(context.Background(), dir)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRead_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("not-a-digest file\n"), 0o644))

	_, err := Read(path)
	assert.Error(t, err)

	assert.Error(t, Verify(context.Background(), t.TempDir()), "missing checksum file")
}

func TestGenerate_BLAKE3(t *testing.T) {
	dir := writeTree(t, map[string]string{"include/a.hpp": "a"})

	path, err := Generate(context.Background(), dir, WithAlgorithm(BLAKE3))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "checksums.b3"), path)

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	sum := blake3.Sum256([]byte("a"))
	assert.Equal(t, hex.EncodeToString(sum[:]), entries[0].Digest)

	require.NoError(t, Verify(context.Background(), dir, WithAlgorithm(BLAKE3)))

	// the sha256 file does not exist and the b3 file is never listed
	assert.Error(t, Verify(context.Background(), dir))
	_, err = Generate(context.Background(), dir)
	require.NoError(t, err)
	sha, err := Read(FilePath(dir))
	require.NoError(t, err)
	assert.Len(t, sha, 1)
}

func TestAlgorithm(t *testing.T) {
	assert.True(t, SHA256.IsValid())
	assert.True(t, BLAKE3.IsValid())
	assert.False(t, Algorithm("md5").IsValid())
	assert.Equal(t, FileName, SHA256.FileName())
	assert.Equal(t, FileName, Algorithm("").FileName())
}
