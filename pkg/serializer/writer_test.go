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

package serializer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string            `json:"name" yaml:"name"`
	Count int               `json:"count" yaml:"count"`
	Tags  []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Props map[string]string `json:"props,omitempty" yaml:"props,omitempty"`
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"recipe.json", FormatJSON},
		{"recipe.JSON", FormatJSON},
		{"recipe.yaml", FormatYAML},
		{"recipe.yml", FormatYAML},
		{"recipe.toml", FormatTOML},
		{"out.table", FormatTable},
		{"out.txt", FormatTable},
		{"recipe", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromPath(tt.path))
		})
	}
}

func TestWriter_Serialize(t *testing.T) {
	v := sample{Name: "dice-template-library", Count: 2, Tags: []string{"a"}}

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatJSON, []string{`"name": "dice-template-library"`, `"count": 2`}},
		{FormatYAML, []string{"name: dice-template-library", "count: 2", "- a"}},
		{FormatTOML, []string{"name = ", "dice-template-library", "count = 2"}},
		{FormatTable, []string{"FIELD", "Name", "dice-template-library", "Tags.[0]"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewWriter(tt.format, &buf).Serialize(context.Background(), v))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestWriter_UnknownFormatDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(Format("xml"), &buf).Serialize(context.Background(), sample{Name: "x"}))
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	err := NewWriter(FormatJSON, &buf).Serialize(ctx, sample{})
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestWriter_TableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(FormatTable, &buf).Serialize(context.Background(), struct{}{}))
	assert.Equal(t, "<empty>\n", buf.String())
}

func TestNewFileWriterOrStdout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.yaml")
	w, err := NewFileWriterOrStdout(FormatYAML, path)
	require.NoError(t, err)
	require.NoError(t, w.Serialize(context.Background(), sample{Name: "x", Count: 1}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	got, err := FromFile[sample](path)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
	assert.Equal(t, 1, got.Count)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.yaml")

	require.NoError(t, WriteFileAtomic(path, []byte("first\n"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, WriteFile(path, FormatJSON, sample{Name: "n", Props: map[string]string{"k": "v"}}))

	got, err := FromFile[sample](path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, got.Props)
}

func TestWriter_TableTextMarshalers(t *testing.T) {
	v := struct {
		Name string
		At   time.Time
	}{Name: "x", At: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(FormatTable, &buf).Serialize(context.Background(), v))
	assert.Contains(t, buf.String(), "2025-01-15T10:30:00Z")
	assert.NotContains(t, buf.String(), "At.wall")
}

func TestMarshal_TOMLWrapsNonTables(t *testing.T) {
	out, err := Marshal(FormatTOML, []sample{{Name: "a", Count: 1}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "[[value]]")
	assert.Contains(t, string(out), "count = 1")
}
