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

package oci

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

// URIScheme prefixes registry targets, as in "oci://ghcr.io/org/repo:tag".
const URIScheme = "oci://"

// Reference is a parsed oci:// push target.
type Reference struct {
	// Registry is the registry host, e.g. "ghcr.io" or "localhost:5000".
	Registry string
	// Repository is the repository path, e.g. "dice-group/dice-template-library".
	Repository string
	// Tag is empty when the target names none; callers apply the package
	// version.
	Tag string
}

// ParseReference parses an oci://registry/repository[:tag] target.
func ParseReference(target string) (*Reference, error) {
	if !strings.HasPrefix(target, URIScheme) {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"push target must start with "+URIScheme, map[string]any{"target": target})
	}

	ref, err := reference.ParseNormalizedNamed(strings.TrimPrefix(target, URIScheme))
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid OCI reference", err, map[string]any{"target": target})
	}
	if _, ok := ref.(reference.Digested); ok {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"push target cannot carry a digest", map[string]any{"target": target})
	}

	registry := reference.Domain(ref)
	repository := reference.Path(ref)

	var tag string
	if tagged, ok := ref.(reference.Tagged); ok {
		tag = tagged.Tag()
	}

	if err := ValidateRegistryReference(registry, repository); err != nil {
		return nil, err
	}

	return &Reference{
		Registry:   registry,
		Repository: repository,
		Tag:        tag,
	}, nil
}

// ValidateRegistryReference checks that registry and repository form a
// valid image name.
func ValidateRegistryReference(registry, repository string) error {
	registry = stripProtocol(registry)
	if registry == "" {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "registry is required")
	}
	if repository == "" {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "repository is required")
	}

	name := registry + "/" + repository
	named, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid registry reference", err, map[string]any{"reference": name})
	}
	if _, ok := named.(reference.Tagged); ok {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"repository must not contain a tag", map[string]any{"reference": name})
	}
	return nil
}

// String returns the target in oci:// form.
func (r *Reference) String() string {
	return URIScheme + r.ImageReference()
}

// ImageReference returns the reference without the oci:// scheme.
func (r *Reference) ImageReference() string {
	if r.Tag == "" {
		return fmt.Sprintf("%s/%s", r.Registry, r.Repository)
	}
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// WithTag returns a copy of r carrying tag.
func (r *Reference) WithTag(tag string) *Reference {
	return &Reference{
		Registry:   r.Registry,
		Repository: r.Repository,
		Tag:        tag,
	}
}
