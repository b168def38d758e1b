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
	"fmt"
	"log/slog"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/manifest"
	"github.com/dice-group/recipectl/pkg/version"
)

// ManifestLoader returns the raw text of the manifest at path.
type ManifestLoader func(path string) (string, error)

// identityResolver derives the package identity from explicit definition
// fields, falling back to the build manifest. The manifest is read and
// parsed at most once.
type identityResolver struct {
	def  *Definition
	load ManifestLoader

	parsed   bool
	decl     *manifest.Declaration
	declErr  error
	resolved *Identity
}

func newIdentityResolver(def *Definition, load ManifestLoader) *identityResolver {
	if load == nil {
		load = manifest.Load
	}
	return &identityResolver{def: def, load: load}
}

func (r *identityResolver) declaration() (*manifest.Declaration, error) {
	if r.parsed {
		return r.decl, r.declErr
	}
	r.parsed = true

	path := r.def.ManifestPath()
	slog.Debug("reading identity from manifest", "path", path)

	text, err := r.load(path)
	if err != nil {
		r.declErr = err
		return nil, err
	}
	decl, err := manifest.Parse(text)
	if err != nil {
		r.declErr = apperrors.WrapWithContext(apperrors.CodeOf(err),
			"failed to extract identity from manifest", err, map[string]any{"path": path})
		return nil, r.declErr
	}
	r.decl = decl
	return decl, nil
}

func (r *identityResolver) resolveName() (string, error) {
	if r.def.Name != "" {
		return r.def.Name, nil
	}
	decl, err := r.declaration()
	if err != nil {
		return "", err
	}
	if !nameToken.MatchString(decl.Name) {
		return "", apperrors.NewWithContext(apperrors.ErrCodeIdentityExtraction,
			fmt.Sprintf("project name %q must be lowercase words separated by hyphens", decl.Name),
			map[string]any{"path": r.def.ManifestPath(), "name": decl.Name, "line": decl.Line})
	}
	return decl.Name, nil
}

func (r *identityResolver) resolveVersion() (version.Version, error) {
	if r.def.Version != "" {
		v, err := version.ParseVersion(r.def.Version)
		if err != nil {
			return version.Version{}, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
				"invalid explicit version", err, map[string]any{"version": r.def.Version})
		}
		return v.Normalize(), nil
	}
	decl, err := r.declaration()
	if err != nil {
		return version.Version{}, err
	}
	if !decl.HasVersion() {
		return version.Version{}, apperrors.NewWithContext(apperrors.ErrCodeIdentityExtraction,
			"project declaration has no VERSION",
			map[string]any{"path": r.def.ManifestPath(), "line": decl.Line})
	}
	return decl.Version.Normalize(), nil
}

// resolveDescription never fails on a missing description. A missing
// manifest is only tolerated when name and version are both explicit.
func (r *identityResolver) resolveDescription() (string, error) {
	if r.def.Description != "" {
		return r.def.Description, nil
	}
	decl, err := r.declaration()
	if err != nil {
		if r.def.Name != "" && r.def.Version != "" && apperrors.HasCode(err, apperrors.ErrCodeManifestNotFound) {
			return "", nil
		}
		return "", err
	}
	return decl.Description, nil
}

func (r *identityResolver) resolve() (Identity, error) {
	if r.resolved != nil {
		return *r.resolved, nil
	}

	name, err := r.resolveName()
	if err != nil {
		return Identity{}, err
	}
	v, err := r.resolveVersion()
	if err != nil {
		return Identity{}, err
	}
	desc, err := r.resolveDescription()
	if err != nil {
		return Identity{}, err
	}

	id := Identity{Name: name, Version: v, Description: desc}
	r.resolved = &id
	return id, nil
}
