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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dice-group/recipectl/pkg/archive"
	"github.com/dice-group/recipectl/pkg/checksum"
	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

// Config holds immutable packaging settings. Fields are read-only after
// creation; build a new Config to change them.
type Config struct {
	// stagingDir receives the installed package tree.
	stagingDir string

	// build runs Builder.Build between configure and install.
	build bool

	// force re-packages even when the registry already holds the package id.
	force bool

	// checksums writes a checksum file of the staged tree before publishing.
	checksums bool

	// checksumAlgorithm selects the digest of the checksum file.
	checksumAlgorithm checksum.Algorithm

	// archivePath, when set, receives a reproducible compressed tar of the staged tree.
	archivePath string
}

// StagingDir returns the staging directory.
func (c *Config) StagingDir() string {
	return c.stagingDir
}

// Build returns whether the build step runs.
func (c *Config) Build() bool {
	return c.build
}

// Force returns whether cache hits are ignored.
func (c *Config) Force() bool {
	return c.force
}

// Checksums returns whether checksums.txt is generated.
func (c *Config) Checksums() bool {
	return c.checksums
}

// ChecksumAlgorithm returns the checksum file digest.
func (c *Config) ChecksumAlgorithm() checksum.Algorithm {
	return c.checksumAlgorithm
}

// ArchivePath returns the archive destination, empty when disabled.
func (c *Config) ArchivePath() string {
	return c.archivePath
}

// Validate checks the Config for unusable settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.stagingDir) == "" {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "staging directory is required")
	}
	if !c.checksumAlgorithm.IsValid() {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported checksum algorithm %q", c.checksumAlgorithm),
			map[string]any{"supported": checksum.SupportedAlgorithms()})
	}
	if c.archivePath != "" && !archive.IsArchiveName(c.archivePath) {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"archive path must end in .tgz, .tar.gz, .txz or .tar.xz", map[string]any{"path": c.archivePath})
	}
	return nil
}

// ConfigOption sets a Config field.
type ConfigOption func(*Config)

// WithStagingDir sets the directory the package is installed into.
func WithStagingDir(dir string) ConfigOption {
	return func(c *Config) {
		if dir != "" {
			c.stagingDir = filepath.Clean(dir)
		}
	}
}

// WithBuild enables the build step.
func WithBuild(enabled bool) ConfigOption {
	return func(c *Config) {
		c.build = enabled
	}
}

// WithForce re-packages on a cache hit.
func WithForce(enabled bool) ConfigOption {
	return func(c *Config) {
		c.force = enabled
	}
}

// WithChecksums enables checksums.txt generation.
func WithChecksums(enabled bool) ConfigOption {
	return func(c *Config) {
		c.checksums = enabled
	}
}

// WithChecksumAlgorithm selects the checksum file digest.
func WithChecksumAlgorithm(a checksum.Algorithm) ConfigOption {
	return func(c *Config) {
		if a != "" {
			c.checksumAlgorithm = a
		}
	}
}

// WithArchive sets the archive destination.
func WithArchive(path string) ConfigOption {
	return func(c *Config) {
		c.archivePath = path
	}
}

// NewConfig returns a Config with default values.
func NewConfig(options ...ConfigOption) *Config {
	c := &Config{
		stagingDir: "package",
		build:      false,
		force:      false,
		checksums:  false,

		checksumAlgorithm: checksum.SHA256,
	}
	for _, opt := range options {
		opt(c)
	}
	// Builders run in their own working directory, so every path handed
	// out must already be absolute.
	c.stagingDir = absPath(c.stagingDir)
	if c.archivePath != "" {
		c.archivePath = absPath(c.archivePath)
	}
	return c
}

func absPath(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
