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

package header

import (
	"fmt"
	"time"
)

// APIVersion is the schema version stamped on every recipectl document.
const APIVersion = "recipectl/v1"

// Kind represents the type of a recipectl document.
type Kind string

// Valid Kind constants for all recipectl document types.
const (
	KindRecipeDefinition Kind = "RecipeDefinition"
	KindRecipe           Kind = "Recipe"
	KindPackageInfo      Kind = "PackageInfo"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is one of the recognized kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindRecipeDefinition, KindRecipe, KindPackageInfo:
		return true
	default:
		return false
	}
}

// Header contains metadata and versioning information for recipectl documents.
// It follows Kubernetes-style resource conventions with Kind, APIVersion, and Metadata fields.
type Header struct {
	Kind       Kind              `json:"kind,omitempty" yaml:"kind,omitempty"`
	APIVersion string            `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Option is a functional option for configuring Header instances.
type Option func(*Header)

// WithMetadata returns an Option that adds a metadata key-value pair to the Header.
func WithMetadata(key, value string) Option {
	return func(h *Header) {
		if h.Metadata == nil {
			h.Metadata = make(map[string]string)
		}
		h.Metadata[key] = value
	}
}

// WithTimestamp stamps the header with t in RFC3339 UTC.
func WithTimestamp(t time.Time) Option {
	return WithMetadata("timestamp", t.UTC().Format(time.RFC3339))
}

// New creates a Header of the given kind at the current API version.
func New(kind Kind, opts ...Option) Header {
	h := Header{
		Kind:       kind,
		APIVersion: APIVersion,
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Expect checks that a decoded document carries the wanted kind and a
// supported API version. Documents without a header are accepted.
func (h Header) Expect(kind Kind) error {
	if h.Kind != "" && h.Kind != kind {
		return fmt.Errorf("unexpected document kind %q, want %q", h.Kind, kind)
	}
	if h.APIVersion != "" && h.APIVersion != APIVersion {
		return fmt.Errorf("unsupported apiVersion %q, want %q", h.APIVersion, APIVersion)
	}
	return nil
}
