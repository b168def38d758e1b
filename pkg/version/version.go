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

package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error types for version parsing failures
var (
	ErrEmptyVersion      = errors.New("version string is empty")
	ErrTooFewComponents  = errors.New("version needs at least major and minor components")
	ErrTooManyComponents = errors.New("version has more than 3 components")
	ErrNonNumeric        = errors.New("version component is not numeric")
)

// Version is a semantic version triple. Precision records how many
// components were written in the source text (2 or 3); it never affects
// equality or ordering, which always use the normalized triple.
type Version struct {
	Major     int
	Minor     int
	Patch     int
	Precision int
}

// NewVersion creates a fully qualified Version.
func NewVersion(major, minor, patch int) Version {
	return Version{
		Major:     major,
		Minor:     minor,
		Patch:     patch,
		Precision: 3,
	}
}

// ParseVersion parses "<major>.<minor>[.<patch>]". Components are plain
// decimal numbers; signs, prefixes and suffixes are rejected. An absent
// patch component is recorded as 0 with precision 2.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, ErrEmptyVersion
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("%w: %q", ErrTooFewComponents, s)
	}
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrTooManyComponents, s)
	}

	nums := [3]int{}
	for i, part := range parts {
		n, err := parseComponent(part)
		if err != nil {
			return Version{}, err
		}
		nums[i] = n
	}

	return Version{
		Major:     nums[0],
		Minor:     nums[1],
		Patch:     nums[2],
		Precision: len(parts),
	}, nil
}

func parseComponent(part string) (int, error) {
	if part == "" {
		return 0, fmt.Errorf("%w: empty component", ErrNonNumeric)
	}
	for _, ch := range part {
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("%w: %q", ErrNonNumeric, part)
		}
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNonNumeric, part)
	}
	return n, nil
}

// MustParseVersion parses a version string and panics if parsing fails.
// Only use this for hardcoded strings or in tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(fmt.Sprintf("MustParseVersion: %v", err))
	}
	return v
}

// Normalize returns the fully qualified form of v.
func (v Version) Normalize() Version {
	return NewVersion(v.Major, v.Minor, v.Patch)
}

// String always renders the full triple.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsZero reports whether v was never set.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Equals compares the normalized triples.
func (v Version) Equals(other Version) bool {
	return v.Compare(other) == 0
}

// Compare returns -1, 0 or 1 comparing the normalized triples.
func (v Version) Compare(other Version) int {
	a := [3]int{v.Major, v.Minor, v.Patch}
	b := [3]int{other.Major, other.Minor, other.Patch}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// MarshalText renders the normalized triple so documents always carry
// "major.minor.patch".
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses and normalizes a textual version.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed.Normalize()
	return nil
}
