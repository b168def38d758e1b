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

package checksum

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"lukechampine.com/blake3"

	"github.com/dice-group/recipectl/pkg/serializer"
)

// FileName is the standard name for sha256 checksum files.
const FileName = "checksums.txt"

// Algorithm selects the digest written to a checksum file.
type Algorithm string

const (
	// SHA256 writes checksums.txt, readable by sha256sum -c.
	SHA256 Algorithm = "sha256"
	// BLAKE3 writes checksums.b3, readable by b3sum -c.
	BLAKE3 Algorithm = "blake3"
)

// SupportedAlgorithms lists the accepted algorithms.
func SupportedAlgorithms() []Algorithm {
	return []Algorithm{SHA256, BLAKE3}
}

// IsValid reports whether a is a supported algorithm.
func (a Algorithm) IsValid() bool {
	return a == SHA256 || a == BLAKE3
}

// FileName returns the checksum file name for a.
func (a Algorithm) FileName() string {
	if a == BLAKE3 {
		return "checksums.b3"
	}
	return FileName
}

func (a Algorithm) newHash() hash.Hash {
	if a == BLAKE3 {
		return blake3.New(32, nil)
	}
	return sha256.New()
}

type options struct {
	algorithm Algorithm
}

// Option configures checksum generation and verification.
type Option func(*options)

// WithAlgorithm selects the digest algorithm. Unknown values keep SHA256.
func WithAlgorithm(a Algorithm) Option {
	return func(o *options) {
		if a.IsValid() {
			o.algorithm = a
		}
	}
}

func newOptions(opts []Option) options {
	o := options{algorithm: SHA256}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func isChecksumFile(rel string) bool {
	for _, a := range SupportedAlgorithms() {
		if rel == a.FileName() {
			return true
		}
	}
	return false
}

// Entry is one line of a checksum file.
type Entry struct {
	Digest string
	Path   string
}

// FilePath returns the path of the checksum file in dir.
func FilePath(dir string) string {
	return filepath.Join(dir, FileName)
}

// Compute hashes every regular file below dir except checksum files.
// Files are hashed in parallel; entries are sorted by path and use forward
// slashes.
func Compute(ctx context.Context, dir string, opts ...Option) ([]Entry, error) {
	o := newOptions(opts)

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if isChecksumFile(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)

	entries := make([]Entry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			digest, err := hashFile(filepath.Join(dir, rel), o.algorithm)
			if err != nil {
				return fmt.Errorf("failed to read %s for checksum: %w", rel, err)
			}
			entries[i] = Entry{Digest: digest, Path: filepath.ToSlash(rel)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Generate writes the checksum file for the contents of dir and returns
// its path.
func Generate(ctx context.Context, dir string, opts ...Option) (string, error) {
	o := newOptions(opts)
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	entries, err := Compute(ctx, dir, opts...)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s\n", e.Digest, e.Path)
	}

	path := filepath.Join(dir, o.algorithm.FileName())
	if err := serializer.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write checksums: %w", err)
	}

	slog.Debug("checksums generated",
		"file_count", len(entries),
		"algorithm", o.algorithm,
		"path", path,
	)
	return path, nil
}

// Read parses a checksum file.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}
		digest, rel, ok := strings.Cut(text, "  ")
		if !ok || len(digest) != sha256.Size*2 || rel == "" {
			return nil, fmt.Errorf("%s:%d: malformed checksum line", path, line)
		}
		entries = append(entries, Entry{Digest: digest, Path: rel})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Verify checks dir against its checksum file. Missing, extra and changed
// files are all reported as mismatches.
func Verify(ctx context.Context, dir string, opts ...Option) error {
	o := newOptions(opts)
	want, err := Read(filepath.Join(dir, o.algorithm.FileName()))
	if err != nil {
		return fmt.Errorf("failed to read checksums: %w", err)
	}
	got, err := Compute(ctx, dir, opts...)
	if err != nil {
		return err
	}

	expected := make(map[string]string, len(want))
	for _, e := range want {
		expected[e.Path] = e.Digest
	}
	var problems []string
	for _, e := range got {
		d, ok := expected[e.Path]
		switch {
		case !ok:
			problems = append(problems, "unexpected "+e.Path)
		case d != e.Digest:
			problems = append(problems, "modified "+e.Path)
		}
		delete(expected, e.Path)
	}
	for p := range expected {
		problems = append(problems, "missing "+p)
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("checksum mismatch: %s", strings.Join(problems, ", "))
	}
	return nil
}

func hashFile(path string, alg Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := alg.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
