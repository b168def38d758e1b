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

package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultCMake is the cmake executable looked up on PATH.
const DefaultCMake = "cmake"

// CMake drives a CMake project through configure, build and install.
type CMake struct {
	sourceDir  string
	buildDir   string
	executable string
	generator  string
	buildType  string
	extraArgs  []string
	runner     Runner
}

// CMakeOption configures a CMake builder.
type CMakeOption func(*CMake)

// WithExecutable overrides the cmake binary. Paths with a separator are
// made absolute; bare names are looked up on PATH.
func WithExecutable(path string) CMakeOption {
	return func(c *CMake) {
		if path == "" {
			return
		}
		if strings.ContainsAny(path, "/"+string(filepath.Separator)) {
			path = absPath(path)
		}
		c.executable = path
	}
}

// WithGenerator selects a CMake generator, e.g. "Ninja".
func WithGenerator(g string) CMakeOption {
	return func(c *CMake) {
		c.generator = g
	}
}

// WithBuildType sets CMAKE_BUILD_TYPE and the --config of multi-config generators.
func WithBuildType(bt string) CMakeOption {
	return func(c *CMake) {
		c.buildType = bt
	}
}

// WithConfigureArgs appends raw arguments to the configure command.
func WithConfigureArgs(args ...string) CMakeOption {
	return func(c *CMake) {
		c.extraArgs = append(c.extraArgs, args...)
	}
}

// WithRunner replaces the command runner.
func WithRunner(r Runner) CMakeOption {
	return func(c *CMake) {
		if r != nil {
			c.runner = r
		}
	}
}

// NewCMake creates a CMake builder for the project in sourceDir. When
// buildDir is empty, "<sourceDir>/build" is used. Both directories are made
// absolute against the process working directory, since cmake runs inside
// sourceDir.
func NewCMake(sourceDir, buildDir string, opts ...CMakeOption) *CMake {
	sourceDir = absPath(sourceDir)
	if buildDir == "" {
		buildDir = filepath.Join(sourceDir, "build")
	}
	buildDir = absPath(buildDir)
	c := &CMake{
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		executable: DefaultCMake,
		runner:     ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Builder = (*CMake)(nil)

// Configure runs "cmake -S <src> -B <build> -D<VAR>=ON|OFF ...".
func (c *CMake) Configure(ctx context.Context, vars map[string]bool) error {
	args := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	if c.buildType != "" {
		args = append(args, "-DCMAKE_BUILD_TYPE="+c.buildType)
	}
	for _, name := range SortedNames(vars) {
		args = append(args, fmt.Sprintf("-D%s=%s", name, onOff(vars[name])))
	}
	args = append(args, c.extraArgs...)
	return c.runner.Run(ctx, c.sourceDir, c.executable, args...)
}

// Build runs "cmake --build <build>".
func (c *CMake) Build(ctx context.Context) error {
	args := []string{"--build", c.buildDir}
	if c.buildType != "" {
		args = append(args, "--config", c.buildType)
	}
	return c.runner.Run(ctx, c.sourceDir, c.executable, args...)
}

// Install runs "cmake --install <build> --prefix <destination>".
func (c *CMake) Install(ctx context.Context, destination string) error {
	if destination == "" {
		return fmt.Errorf("install destination is required")
	}
	args := []string{"--install", c.buildDir, "--prefix", absPath(destination)}
	if c.buildType != "" {
		args = append(args, "--config", c.buildType)
	}
	return c.runner.Run(ctx, c.sourceDir, c.executable, args...)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
