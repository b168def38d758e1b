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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Reader decodes JSON, YAML or TOML documents from an io.Reader.
// Close must be called when the Reader was created with NewFileReader.
type Reader struct {
	format Format
	strict bool
	input  io.Reader
	closer io.Closer
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithStrict rejects documents that contain fields unknown to the target type.
func WithStrict() ReaderOption {
	return func(r *Reader) {
		r.strict = true
	}
}

// NewReader creates a Reader for input. Table format cannot be decoded.
func NewReader(format Format, input io.Reader, opts ...ReaderOption) (*Reader, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unknown format: %s", format)
	}
	if format == FormatTable {
		return nil, fmt.Errorf("table format does not support deserialization")
	}

	r := &Reader{format: format, input: input}
	for _, opt := range opts {
		opt(r)
	}
	if c, ok := input.(io.Closer); ok {
		r.closer = c
	}
	return r, nil
}

// NewFileReader opens path and detects the format from its extension.
func NewFileReader(path string, opts ...ReaderOption) (*Reader, error) {
	format := FormatFromPath(path)
	if format == FormatTable {
		return nil, fmt.Errorf("table format does not support deserialization")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return NewReader(format, f, opts...)
}

// Deserialize decodes the next document into v, which must be a pointer.
func (r *Reader) Deserialize(v any) error {
	if r == nil {
		return fmt.Errorf("reader is nil")
	}
	if r.input == nil {
		return fmt.Errorf("input source is nil")
	}

	switch r.format {
	case FormatJSON:
		dec := json.NewDecoder(r.input)
		if r.strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
		return nil
	case FormatYAML:
		dec := yaml.NewDecoder(r.input)
		dec.KnownFields(r.strict)
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to decode YAML: empty document")
			}
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
		return nil
	case FormatTOML:
		dec := toml.NewDecoder(r.input)
		if r.strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to decode TOML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format for deserialization: %s", r.format)
	}
}

// Close releases the underlying file, if any. Safe to call more than once.
func (r *Reader) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// FromFile loads and decodes the file at path into a new T.
func FromFile[T any](path string, opts ...ReaderOption) (*T, error) {
	r, err := NewFileReader(path, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var v T
	if err := r.Deserialize(&v); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %w", path, err)
	}
	return &v, nil
}

// FromBytes decodes data in the given format into a new T.
func FromBytes[T any](format Format, data []byte, opts ...ReaderOption) (*T, error) {
	r, err := NewReader(format, bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}
	var v T
	if err := r.Deserialize(&v); err != nil {
		return nil, err
	}
	return &v, nil
}
