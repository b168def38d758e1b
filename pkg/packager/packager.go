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

package packager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dice-group/recipectl/pkg/archive"
	"github.com/dice-group/recipectl/pkg/builder"
	"github.com/dice-group/recipectl/pkg/checksum"
	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/recipe"
	"github.com/dice-group/recipectl/pkg/registry"
	"github.com/dice-group/recipectl/pkg/serializer"
)

// Step names, reported under the "step" error context key.
const (
	StepLookup    = "lookup"
	StepConfigure = "configure"
	StepBuild     = "build"
	StepInstall   = "install"
	StepPrune     = "prune"
	StepLicense   = "license"
	StepChecksums = "checksums"
	StepArchive   = "archive"
	StepPublish   = "publish"
)

// LicensesDir is the staging subdirectory the license is copied into.
const LicensesDir = "licenses"

// Registry is the package registry the packager exports into.
// registry.Local satisfies it.
type Registry interface {
	SupportsHeaderOnly() bool
	Lookup(ctx context.Context, ref registry.Ref) (*registry.PackageInfo, error)
	DeclareRequirement(ctx context.Context, ref registry.Ref, req recipe.Requirement) error
	SetProperty(ctx context.Context, ref registry.Ref, key, value string) error
	Commit(ctx context.Context, info registry.PackageInfo) error
	Discard(ref registry.Ref)
}

// StepResult records one executed step.
type StepResult struct {
	Name     string        `json:"name" yaml:"name"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Result summarizes a packaging run.
type Result struct {
	Ref          string          `json:"ref" yaml:"ref"`
	PackageID    string          `json:"packageId" yaml:"packageId"`
	StagingDir   string          `json:"stagingDir" yaml:"stagingDir"`
	CacheHit     bool            `json:"cacheHit" yaml:"cacheHit"`
	Steps        []StepResult    `json:"steps,omitempty" yaml:"steps,omitempty"`
	ChecksumFile string          `json:"checksumFile,omitempty" yaml:"checksumFile,omitempty"`
	Archive      *archive.Result `json:"archive,omitempty" yaml:"archive,omitempty"`
	Duration     time.Duration   `json:"duration" yaml:"duration"`
}

// Packager installs a resolved recipe into a staging directory and exports
// it to a registry.
//
// A Packager is meant for a single invocation; it holds no state between
// runs beyond its configuration.
type Packager struct {
	config   *Config
	builder  builder.Builder
	registry Registry
}

// Option configures a Packager.
type Option func(*Packager)

// WithConfig sets the packaging configuration.
func WithConfig(cfg *Config) Option {
	return func(p *Packager) {
		if cfg != nil {
			p.config = cfg
		}
	}
}

// New creates a Packager driving b and exporting into reg.
//
// Example:
//
//	p, err := packager.New(cmake, reg,
//	    packager.WithConfig(packager.NewConfig(
//	        packager.WithStagingDir("out/package"),
//	        packager.WithChecksums(true),
//	    )),
//	)
func New(b builder.Builder, reg Registry, opts ...Option) (*Packager, error) {
	if b == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "builder is required")
	}
	if reg == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "registry is required")
	}

	p := &Packager{
		config:   NewConfig(),
		builder:  b,
		registry: reg,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.config.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Config returns the packaging configuration.
func (p *Packager) Config() *Config {
	return p.config
}

type step struct {
	name string
	run  func(ctx context.Context, r *recipe.Recipe, res *Result) error
}

// Run executes the packaging steps for r in order, stopping at the first
// failure. Failures are PACKAGING_ERROR with the step name in context,
// wrapping the step's own error.
//
// When the registry already holds r's package id and the config does not
// force, Run returns a cache hit result without touching the builder.
func (p *Packager) Run(ctx context.Context, r *recipe.Recipe) (*Result, error) {
	start := time.Now()

	if r == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "recipe cannot be nil")
	}
	ref := registry.RefOf(r)
	if err := ref.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "recipe is not resolved", err)
	}

	res := &Result{
		Ref:        ref.String(),
		PackageID:  r.PackageID,
		StagingDir: p.config.StagingDir(),
	}
	log := slog.With("ref", res.Ref, "invocation", r.InvocationID)

	hit, err := p.cached(ctx, ref)
	if err != nil {
		return nil, stepError(StepLookup, err)
	}
	if hit && !p.config.Force() {
		log.Info("package already in registry, skipping")
		res.CacheHit = true
		res.Duration = time.Since(start)
		return res, nil
	}

	for _, s := range p.steps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stepStart := time.Now()
		log.Debug("packaging step started", "step", s.name)
		if err := s.run(ctx, r, res); err != nil {
			stepFailuresTotal.WithLabelValues(s.name).Inc()
			log.Error("packaging step failed", "step", s.name, "error", err)
			return nil, stepError(s.name, err)
		}
		elapsed := time.Since(stepStart)
		stepDuration.WithLabelValues(s.name).Observe(elapsed.Seconds())
		res.Steps = append(res.Steps, StepResult{Name: s.name, Duration: elapsed})
	}

	res.Duration = time.Since(start)
	log.Info("package exported",
		"steps", len(res.Steps),
		"staging", res.StagingDir,
		"duration", res.Duration)
	return res, nil
}

func (p *Packager) steps() []step {
	steps := []step{{StepConfigure, p.configure}}
	if p.config.Build() {
		steps = append(steps, step{StepBuild, p.build})
	}
	steps = append(steps,
		step{StepInstall, p.install},
		step{StepPrune, p.prune},
		step{StepLicense, p.license},
	)
	if p.config.Checksums() {
		steps = append(steps, step{StepChecksums, p.checksums})
	}
	if p.config.ArchivePath() != "" {
		steps = append(steps, step{StepArchive, p.archive})
	}
	// publish commits to the registry and must stay the last step.
	return append(steps, step{StepPublish, p.publish})
}

func (p *Packager) cached(ctx context.Context, ref registry.Ref) (bool, error) {
	_, err := p.registry.Lookup(ctx, ref)
	switch {
	case err == nil:
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return true, nil
	case apperrors.HasCode(err, apperrors.ErrCodeNotFound):
		cacheLookupsTotal.WithLabelValues("miss").Inc()
		return false, nil
	default:
		return false, err
	}
}

func (p *Packager) configure(ctx context.Context, r *recipe.Recipe, _ *Result) error {
	vars := builder.Variables(boolOptions(r.Options), r.Packaging.BuilderVariables)
	if err := p.builder.Configure(ctx, vars); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfiguration, "builder configure failed", err)
	}
	return nil
}

func (p *Packager) build(ctx context.Context, _ *recipe.Recipe, _ *Result) error {
	if err := p.builder.Build(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeBuild, "builder build failed", err)
	}
	return nil
}

func (p *Packager) install(ctx context.Context, r *recipe.Recipe, _ *Result) error {
	dir := p.config.StagingDir()
	if err := resetStaging(dir, r.Packaging.SourceDir); err != nil {
		return err
	}
	if err := p.builder.Install(ctx, dir); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInstall,
			"builder install failed", err, map[string]any{"path": dir})
	}
	return nil
}

// resetStaging empties dir so files of an earlier configuration never end
// up in this export. A staging directory that contains the source tree is
// refused.
func resetStaging(dir, sourceDir string) error {
	if sourceDir != "" && within(dir, sourceDir) {
		return apperrors.NewWithContext(apperrors.ErrCodeInstall,
			"staging directory must not contain the source directory",
			map[string]any{"path": dir, "source": sourceDir})
	}
	if err := os.RemoveAll(dir); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInstall,
			"failed to clear staging directory", err, map[string]any{"path": dir})
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInstall,
			"failed to create staging directory", err, map[string]any{"path": dir})
	}
	return nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absTarget, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (p *Packager) prune(_ context.Context, r *recipe.Recipe, _ *Result) error {
	return pruneDirs(p.config.StagingDir(), r.Packaging.PruneDirs)
}

// pruneDirs removes dirs below root. Missing directories are not an error,
// so pruning twice leaves the same tree as pruning once.
func pruneDirs(root string, dirs []string) error {
	for _, d := range dirs {
		target := filepath.Join(root, filepath.FromSlash(d))
		if err := os.RemoveAll(target); err != nil {
			return apperrors.WrapWithContext(apperrors.ErrCodeInternal,
				"failed to prune directory", err, map[string]any{"path": target})
		}
		slog.Debug("pruned", "path", target)
	}
	return nil
}

func (p *Packager) license(_ context.Context, r *recipe.Recipe, _ *Result) error {
	src := r.Packaging.LicensePath
	data, err := os.ReadFile(src)
	if err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeLicenseCopy,
			"failed to read license", err, map[string]any{"path": src})
	}

	dest := filepath.Join(p.config.StagingDir(), LicensesDir, filepath.Base(src))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeLicenseCopy,
			"failed to create licenses directory", err, map[string]any{"path": dest})
	}
	if err := serializer.WriteFileAtomic(dest, data, 0o644); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeLicenseCopy,
			"failed to write license", err, map[string]any{"path": dest})
	}
	return nil
}

// publish declares requirements and properties and commits them. The
// pending export is discarded on any failure so the registry never holds a
// partial package.
func (p *Packager) publish(ctx context.Context, r *recipe.Recipe, _ *Result) (err error) {
	ref := registry.RefOf(r)
	p.registry.Discard(ref)
	defer func() {
		if err != nil {
			p.registry.Discard(ref)
		}
	}()

	for _, req := range r.Requirements {
		if err = p.registry.DeclareRequirement(ctx, ref, req); err != nil {
			return fmt.Errorf("declare %s: %w", req.Reference(), err)
		}
	}
	for _, prop := range r.ExportedProperties() {
		if err = p.registry.SetProperty(ctx, ref, prop.Key, prop.Value); err != nil {
			return fmt.Errorf("set property %s: %w", prop.Key, err)
		}
	}
	return p.registry.Commit(ctx, registry.InfoFromRecipe(r))
}

func (p *Packager) checksums(ctx context.Context, _ *recipe.Recipe, res *Result) error {
	path, err := checksum.Generate(ctx, p.config.StagingDir(),
		checksum.WithAlgorithm(p.config.ChecksumAlgorithm()))
	if err != nil {
		return err
	}
	res.ChecksumFile = path
	return nil
}

func (p *Packager) archive(ctx context.Context, _ *recipe.Recipe, res *Result) error {
	out, err := archive.Create(ctx, p.config.StagingDir(), p.config.ArchivePath())
	if err != nil {
		return err
	}
	res.Archive = out
	return nil
}

func stepError(name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.WrapWithContext(apperrors.ErrCodePackaging,
		fmt.Sprintf("packaging step %s failed", name), err, map[string]any{"step": name})
}

func boolOptions(opts recipe.ResolvedOptions) map[string]bool {
	out := make(map[string]bool, len(opts))
	for _, o := range opts {
		if o.Type == recipe.OptionTypeBool {
			out[o.Name] = o.Enabled()
		}
	}
	return out
}
