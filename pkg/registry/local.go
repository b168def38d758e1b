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

package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/header"
	"github.com/dice-group/recipectl/pkg/recipe"
	"github.com/dice-group/recipectl/pkg/serializer"
)

// Local is a package registry stored in a directory tree:
//
//	<root>/<name>/<version>/<packageId>/package.yaml
//
// Requirements and properties declared for a package are held in memory
// until Commit writes package.yaml in one atomic rename. A package is never
// visible half exported.
type Local struct {
	root       string
	headerOnly bool
	now        func() time.Time

	mu      sync.RWMutex
	pending map[Ref]*pendingExport
}

type pendingExport struct {
	requirements []recipe.Requirement
	properties   []recipe.Property
}

// LocalOption configures a Local registry.
type LocalOption func(*Local)

// WithHeaderOnly sets whether the registry accepts canonical header-only
// packages. Defaults to true.
func WithHeaderOnly(supported bool) LocalOption {
	return func(l *Local) {
		l.headerOnly = supported
	}
}

// WithClock sets the clock used for commit timestamps.
func WithClock(now func() time.Time) LocalOption {
	return func(l *Local) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLocal opens (and creates if needed) a registry rooted at root.
func NewLocal(root string, opts ...LocalOption) (*Local, error) {
	if root == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "registry root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInternal,
			"failed to create registry root", err, map[string]any{"path": root})
	}
	l := &Local{
		root:       root,
		headerOnly: true,
		now:        time.Now,
		pending:    make(map[Ref]*pendingExport),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the registry directory.
func (l *Local) Root() string {
	return l.root
}

// SupportsHeaderOnly reports whether canonical package ids may be used.
func (l *Local) SupportsHeaderOnly() bool {
	return l.headerOnly
}

// DeclareRequirement records a requirement for the pending export of ref.
func (l *Local) DeclareRequirement(ctx context.Context, ref Ref, req recipe.Requirement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ref.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid package reference", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.pendingFor(ref)
	for _, existing := range p.requirements {
		if existing.Target == req.Target && existing.Phase == req.Phase {
			return apperrors.NewWithContext(apperrors.ErrCodeDuplicateRequirement,
				fmt.Sprintf("requirement %q already declared for phase %s", req.Target, req.Phase),
				map[string]any{"ref": ref.String(), "target": req.Target, "phase": string(req.Phase)})
		}
	}
	p.requirements = append(p.requirements, req)
	return nil
}

// SetProperty records an exported property for the pending export of ref.
// Each key may be set once.
func (l *Local) SetProperty(ctx context.Context, ref Ref, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ref.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid package reference", err)
	}
	if key == "" {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "property key is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.pendingFor(ref)
	for _, existing := range p.properties {
		if existing.Key == key {
			return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("property %q is already set", key),
				map[string]any{"ref": ref.String(), "key": key})
		}
	}
	p.properties = append(p.properties, recipe.Property{Key: key, Value: value})
	return nil
}

// Commit writes the pending export of info.Ref together with info. Any
// previously committed package with the same ref is replaced.
func (l *Local) Commit(ctx context.Context, info PackageInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref := info.Ref
	if err := ref.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid package reference", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.pending[ref]
	if p == nil {
		p = &pendingExport{}
	}

	info.Header = header.New(header.KindPackageInfo)
	info.Requirements = append([]recipe.Requirement(nil), p.requirements...)
	info.Properties = append([]recipe.Property(nil), p.properties...)
	info.CommittedAt = l.now().UTC()

	path := filepath.Join(ref.dir(l.root), InfoFileName)
	if err := serializer.WriteFile(path, serializer.FormatYAML, info); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInternal,
			"failed to commit package", err, map[string]any{"ref": ref.String(), "path": path})
	}
	delete(l.pending, ref)

	slog.Info("package committed",
		"ref", ref.String(),
		"requirements", len(info.Requirements),
		"properties", len(info.Properties))
	return nil
}

// Discard drops the pending export of ref.
func (l *Local) Discard(ref Ref) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, ref)
}

// Lookup returns the committed package for ref, or a NOT_FOUND error.
func (l *Local) Lookup(ctx context.Context, ref Ref) (*PackageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ref.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid package reference", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	path := filepath.Join(ref.dir(l.root), InfoFileName)
	info, err := readInfo(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeNotFound,
				"package not found", map[string]any{"ref": ref.String()})
		}
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInternal,
			"failed to read package info", err, map[string]any{"path": path})
	}
	return info, nil
}

// List returns every committed package of name, sorted by version then id.
func (l *Local) List(ctx context.Context, name string) ([]PackageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !refComponent.MatchString(name) {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid package name", map[string]any{"name": name})
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	pattern := filepath.Join(l.root, name, "*", "*", InfoFileName)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid package name", err)
	}

	out := make([]PackageInfo, 0, len(matches))
	for _, m := range matches {
		info, err := readInfo(m)
		if err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeInternal,
				"failed to read package info", err, map[string]any{"path": m})
		}
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version < out[j].Version
		}
		return out[i].PackageID < out[j].PackageID
	})
	return out, nil
}

func (l *Local) pendingFor(ref Ref) *pendingExport {
	p, ok := l.pending[ref]
	if !ok {
		p = &pendingExport{}
		l.pending[ref] = p
	}
	return p
}

func readInfo(path string) (*PackageInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	info, err := serializer.FromFile[PackageInfo](path)
	if err != nil {
		return nil, err
	}
	if err := info.Header.Expect(header.KindPackageInfo); err != nil {
		return nil, err
	}
	return info, nil
}
