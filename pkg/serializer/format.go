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
	"log/slog"
	"path/filepath"
	"strings"
)

// Format represents the encoding used for reading or writing a document.
type Format string

const (
	// FormatJSON encodes documents as indented JSON.
	FormatJSON Format = "json"
	// FormatYAML encodes documents as YAML.
	FormatYAML Format = "yaml"
	// FormatTOML encodes documents as TOML.
	FormatTOML Format = "toml"
	// FormatTable renders documents as a two column FIELD/VALUE table. Write only.
	FormatTable Format = "table"
)

// IsUnknown reports whether f is not one of the supported formats.
func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTOML, FormatTable:
		return false
	default:
		return true
	}
}

// SupportedFormats returns the names of all supported output formats.
func SupportedFormats() []string {
	return []string{
		string(FormatJSON),
		string(FormatYAML),
		string(FormatTOML),
		string(FormatTable),
	}
}

// FormatFromPath determines the format from a file extension.
// Unknown extensions fall back to YAML, the native recipectl format.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".table", ".txt":
		return FormatTable
	default:
		slog.Debug("unknown file extension, defaulting to yaml", "path", path)
		return FormatYAML
	}
}
