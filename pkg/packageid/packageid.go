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
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
)

// Mode selects how a package id is derived.
type Mode string

const (
	// ModeFull derives the id from identity, settings, options and requirements.
	ModeFull Mode = "full"
	// ModeCanonical derives the id from identity only, so every configuration
	// of a header-only package shares one id.
	ModeCanonical Mode = "canonical"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeFull || m == ModeCanonical
}

// String returns the string representation of the Mode.
func (m Mode) String() string {
	return string(m)
}

// Inputs are the values a package id may depend on. Requirements are
// "target/version" references; their order does not matter.
type Inputs struct {
	Name         string
	Version      string
	Description  string
	Settings     map[string]string
	Options      map[string]string
	Requirements []string
}

// Compute returns the lowercase hex sha256 package id for in under mode.
func Compute(mode Mode, in Inputs) (string, error) {
	if !mode.IsValid() {
		return "", fmt.Errorf("unknown package id mode %q", mode)
	}
	if in.Name == "" || in.Version == "" {
		return "", fmt.Errorf("package id requires a name and a version")
	}

	h := sha256.New()
	writeField(h, string(mode))
	writeField(h, in.Name)
	writeField(h, in.Version)
	writeField(h, in.Description)

	if mode == ModeFull {
		writeSection(h, "settings", in.Settings)
		writeSection(h, "options", in.Options)
		writeField(h, "requires")
		refs := dedupSorted(in.Requirements)
		writeCount(h, len(refs))
		for _, ref := range refs {
			writeField(h, ref)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeField writes s length-prefixed so that no two distinct field
// sequences can produce the same byte stream.
func writeField(h hash.Hash, s string) {
	writeCount(h, len(s))
	h.Write([]byte(s))
}

func writeCount(h hash.Hash, n int) {
	var buf [binary.MaxVarintLen64]byte
	h.Write(buf[:binary.PutUvarint(buf[:], uint64(n))])
}

func writeSection(h hash.Hash, name string, m map[string]string) {
	writeField(h, name)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeCount(h, len(keys))
	for _, k := range keys {
		writeField(h, k)
		writeField(h, m[k])
	}
}

func dedupSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
