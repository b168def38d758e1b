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

package recipe

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

//go:embed data/*.yaml
var builtinFS embed.FS

const builtinPrefix = "revision-"

// BuiltinRevisions returns the revision numbers of the embedded definitions
// in ascending order.
func BuiltinRevisions() []int {
	entries, err := fs.ReadDir(builtinFS, "data")
	if err != nil {
		return nil
	}
	revs := make([]int, 0, len(entries))
	for _, e := range entries {
		if rev, ok := revisionFromFile(e.Name()); ok {
			revs = append(revs, rev)
		}
	}
	sort.Ints(revs)
	return revs
}

// LatestBuiltinRevision returns the highest embedded revision.
func LatestBuiltinRevision() int {
	revs := BuiltinRevisions()
	if len(revs) == 0 {
		return 0
	}
	return revs[len(revs)-1]
}

// BuiltinDefinition returns a fresh copy of the embedded definition for
// revision. Its relative paths resolve against baseDir.
func BuiltinDefinition(revision int, baseDir string) (*Definition, error) {
	name := path.Join("data", fmt.Sprintf("%s%d.yaml", builtinPrefix, revision))
	data, err := builtinFS.ReadFile(name)
	if err != nil {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeNotFound,
			fmt.Sprintf("no builtin recipe revision %d", revision),
			map[string]any{"revision": revision, "available": BuiltinRevisions()})
	}
	def, err := ParseDefinition(data, baseDir)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInternal,
			"embedded recipe definition is invalid", err, map[string]any{"revision": revision})
	}
	if def.Revision != revision {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInternal,
			"embedded recipe definition has a mismatched revision",
			map[string]any{"file": name, "revision": def.Revision})
	}
	return def, nil
}

func revisionFromFile(name string) (int, bool) {
	if !strings.HasPrefix(name, builtinPrefix) || !strings.HasSuffix(name, ".yaml") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, builtinPrefix), ".yaml"))
	if err != nil {
		return 0, false
	}
	return n, true
}
