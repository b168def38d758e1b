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
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/header"
	"github.com/dice-group/recipectl/pkg/packageid"
)

// HeaderOnlyQuerier reports whether a registry can store canonical,
// configuration independent packages.
type HeaderOnlyQuerier interface {
	SupportsHeaderOnly() bool
}

// Resolver turns a Definition plus caller input into an immutable Recipe.
type Resolver struct {
	def      *Definition
	registry HeaderOnlyQuerier
	loader   ManifestLoader
	newID    func() string
	now      func() time.Time
}

// Option is a functional option for configuring Resolver instances.
type Option func(*Resolver)

// WithRegistry sets the registry consulted for canonical id eligibility.
// Without one, canonical ids are always allowed.
func WithRegistry(q HeaderOnlyQuerier) Option {
	return func(r *Resolver) {
		r.registry = q
	}
}

// WithManifestLoader replaces the filesystem manifest loader.
func WithManifestLoader(l ManifestLoader) Option {
	return func(r *Resolver) {
		r.loader = l
	}
}

// WithSourceDir resolves the manifest and license relative to dir.
func WithSourceDir(dir string) Option {
	return func(r *Resolver) {
		if dir != "" {
			r.def = r.def.WithBaseDir(dir)
		}
	}
}

// WithInvocationID pins the invocation id instead of generating one.
func WithInvocationID(id string) Option {
	return func(r *Resolver) {
		r.newID = func() string { return id }
	}
}

// NewResolver creates a Resolver for def.
func NewResolver(def *Definition, opts ...Option) (*Resolver, error) {
	if def == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "recipe definition cannot be nil")
	}
	r := &Resolver{
		def:   def,
		newID: func() string { return uuid.NewString() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Definition returns the definition the resolver works on.
func (r *Resolver) Definition() *Definition {
	return r.def
}

// Resolve runs identity, option, settings and requirement resolution and
// computes the package id. Nothing outside the process is touched.
func (r *Resolver) Resolve(ctx context.Context, overrides map[string]string, settings Settings) (*Recipe, error) {
	start := time.Now()
	rec, err := r.resolve(ctx, overrides, settings)
	resolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		resolutionsTotal.WithLabelValues(string(apperrors.CodeOf(err))).Inc()
		return nil, err
	}
	resolutionsTotal.WithLabelValues("OK").Inc()
	return rec, nil
}

func (r *Resolver) resolve(ctx context.Context, overrides map[string]string, settings Settings) (*Recipe, error) {
	invocationID := r.newID()
	log := slog.With("invocation", invocationID, "revision", r.def.Revision)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identity, err := newIdentityResolver(r.def, r.loader).resolve()
	if err != nil {
		return nil, err
	}
	log.Debug("resolved identity", "name", identity.Name, "version", identity.Version.String())

	opts, err := ResolveOptions(r.def, overrides)
	if err != nil {
		return nil, err
	}

	settings = settings.Clone()
	if err := validateSettings(r.def, settings); err != nil {
		return nil, err
	}

	reqs, err := ComposeRequirements(r.def, opts)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := r.effectiveMode(log)
	refs := make([]string, 0, len(reqs))
	for _, req := range IdentityRequirements(reqs) {
		refs = append(refs, req.Reference())
	}
	id, err := packageid.Compute(mode, packageid.Inputs{
		Name:         identity.Name,
		Version:      identity.Version.String(),
		Description:  identity.Description,
		Settings:     settings,
		Options:      opts.Map(),
		Requirements: refs,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to compute package id", err)
	}

	rec := &Recipe{
		Header:       header.New(header.KindRecipe, header.WithTimestamp(r.now())),
		InvocationID: invocationID,
		Revision:     r.def.Revision,
		Identity:     identity,
		Options:      opts,
		Settings:     settings,
		Requirements: reqs,
		Mode:         mode,
		PackageID:    id,
		Metadata: Metadata{
			Author:      r.def.Author,
			Homepage:    r.def.Homepage,
			URL:         r.def.URL,
			License:     r.def.License,
			Topics:      append([]string(nil), r.def.Topics...),
			PackageType: r.def.PackageType,
		},
		Packaging: Packaging{
			SourceDir:        r.def.BaseDir(),
			Namespace:        r.def.Namespace,
			FindMode:         r.def.FindMode(),
			BuilderVariables: copyVars(r.def.BuilderVariables),
			PruneDirs:        r.def.PruneDirs(),
			LicensePath:      r.def.LicensePath(),
		},
	}

	log.Info("recipe resolved",
		"reference", rec.Reference(),
		"mode", mode,
		"packageId", id,
		"options", opts.String(),
		"requirements", len(reqs))
	return rec, nil
}

// effectiveMode downgrades canonical ids to full ids when the registry
// cannot hold header-only packages.
func (r *Resolver) effectiveMode(log *slog.Logger) packageid.Mode {
	mode := r.def.Mode()
	if mode != packageid.ModeCanonical || r.registry == nil || r.registry.SupportsHeaderOnly() {
		return mode
	}
	modeFallbacksTotal.Inc()
	log.Warn("registry does not support header-only packages, falling back to full package id")
	return packageid.ModeFull
}

func copyVars(in map[string]bool) map[string]bool {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
