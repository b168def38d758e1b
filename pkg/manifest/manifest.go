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

package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/version"
)

// DefaultFileName is the manifest file looked up next to a recipe definition.
const DefaultFileName = "CMakeLists.txt"

const (
	keywordVersion     = "VERSION"
	keywordDescription = "DESCRIPTION"
	keywordHomepage    = "HOMEPAGE_URL"
)

// Declaration holds the identity fields of a project() block.
type Declaration struct {
	// Name is the first project() argument, unvalidated.
	Name string
	// Version is the normalized VERSION value; zero when absent.
	Version version.Version
	// Description is the DESCRIPTION value; empty when absent.
	Description string
	// HomepageURL is the HOMEPAGE_URL value; empty when absent.
	HomepageURL string
	// Line is the 1-based line of the project command.
	Line int
}

// HasVersion reports whether the declaration carried a VERSION keyword.
func (d *Declaration) HasVersion() bool {
	return !d.Version.IsZero()
}

// Load returns the raw text of the manifest at path. It does not cache.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.WrapWithContext(apperrors.ErrCodeManifestNotFound,
			"failed to read manifest", err, map[string]any{"path": path})
	}
	return string(data), nil
}

// Parse extracts the single project() declaration from manifest text.
// Zero or several project() commands fail with ErrCodeIdentityExtraction.
func Parse(text string) (*Declaration, error) {
	src := stripComments(text)

	calls, err := findProjectCalls(src)
	if err != nil {
		return nil, err
	}
	switch len(calls) {
	case 0:
		return nil, apperrors.New(apperrors.ErrCodeIdentityExtraction,
			"no project() declaration found in manifest")
	case 1:
	default:
		lines := make([]int, 0, len(calls))
		for _, c := range calls {
			lines = append(lines, c.line)
		}
		return nil, apperrors.NewWithContext(apperrors.ErrCodeIdentityExtraction,
			fmt.Sprintf("manifest declares %d project() blocks, expected exactly one", len(calls)),
			map[string]any{"lines": lines})
	}

	call := calls[0]
	decl, err := declarationFromArgs(call.args)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeIdentityExtraction,
			"malformed project() declaration", err, map[string]any{"line": call.line})
	}
	decl.Line = call.line

	slog.Debug("parsed manifest declaration",
		"name", decl.Name,
		"version", decl.Version.String(),
		"line", decl.Line,
	)
	return decl, nil
}

func declarationFromArgs(args []token) (*Declaration, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("project() has no arguments")
	}

	decl := &Declaration{Name: args[0].value}
	seen := make(map[string]bool, 3)

	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg.quoted {
			continue
		}
		switch arg.value {
		case keywordVersion, keywordDescription, keywordHomepage:
		default:
			continue
		}
		if seen[arg.value] {
			return nil, fmt.Errorf("keyword %s given more than once", arg.value)
		}
		seen[arg.value] = true
		if i+1 >= len(args) {
			return nil, fmt.Errorf("keyword %s has no value", arg.value)
		}
		value := args[i+1]
		i++

		switch arg.value {
		case keywordVersion:
			v, err := version.ParseVersion(value.value)
			if err != nil {
				return nil, fmt.Errorf("invalid VERSION %q: %w", value.value, err)
			}
			decl.Version = v.Normalize()
		case keywordDescription:
			if !value.quoted {
				return nil, fmt.Errorf("DESCRIPTION must be a quoted string")
			}
			decl.Description = value.value
		case keywordHomepage:
			decl.HomepageURL = value.value
		}
	}

	return decl, nil
}

// stripComments blanks out line comments and bracket comments while keeping
// line structure and quoted strings intact.
func stripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inQuote := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case inQuote:
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(text) {
				i++
				b.WriteByte(text[i])
			} else if ch == '"' {
				inQuote = false
			}
		case ch == '"':
			inQuote = true
			b.WriteByte(ch)
		case ch == '#':
			if end, ok := bracketCommentEnd(text, i+1); ok {
				// keep newlines so line numbers stay accurate
				for _, c := range text[i:end] {
					if c == '\n' {
						b.WriteByte('\n')
					}
				}
				i = end - 1
				continue
			}
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				b.WriteByte('\n')
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// bracketCommentEnd reports the index just past a "[==[ ... ]==]" comment
// opening at start.
func bracketCommentEnd(text string, start int) (int, bool) {
	if start >= len(text) || text[start] != '[' {
		return 0, false
	}
	j := start + 1
	for j < len(text) && text[j] == '=' {
		j++
	}
	if j >= len(text) || text[j] != '[' {
		return 0, false
	}
	closing := "]" + strings.Repeat("=", j-start-1) + "]"
	idx := strings.Index(text[j+1:], closing)
	if idx < 0 {
		return len(text), true
	}
	return j + 1 + idx + len(closing), true
}
