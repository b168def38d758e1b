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

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/dice-group/recipectl/pkg/logging"
)

const (
	name           = "recipectl"
	versionDefault = "dev"
	envPrefix      = "RECIPECTL"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitCanceled = 2
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Execute runs the CLI with the process arguments and exits. SIGINT and
// SIGTERM cancel the running command.
func Execute() {
	// LOG_LEVEL applies until the root command installs the configured level.
	logging.SetDefaultStructuredLogger(name, version)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.Writer = stdout
	cmd.ErrWriter = stderr

	err := cmd.Run(ctx, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
	}
	return ExitCode(err)
}

// ExitCode maps a command error to an exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	default:
		return ExitError
	}
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Resolve and package declarative C++ package recipes",
		Version:               fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		EnableShellCompletion: true,
		Description: `recipectl resolves a package recipe for one configuration: it reads the
package identity from the build manifest, applies option overrides and build
settings, composes the dependency requirements and computes the package id.

The package command then drives the build tool to install the package into a
staging directory and exports it to a local package registry.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Config file (default: .recipectl.yaml in the working or home directory)",
				Sources: cli.EnvVars(envPrefix + "_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars(envPrefix+"_LOG_LEVEL", logging.EnvLogLevel),
			},
		},
		Before: before,
		Commands: []*cli.Command{
			resolveCmd(),
			packageIDCmd(),
			packageCmd(),
			pushCmd(),
			revisionsCmd(),
			listCmd(),
		},
	}
}

// before loads the config file and installs the logger ahead of any
// subcommand.
func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	v, err := loadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	level := stringSetting(cmd, v, "log-level")
	logging.SetDefaultStructuredLoggerWithLevel(name, version, level)
	slog.Debug("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
		"config", v.ConfigFileUsed(),
		"logLevel", level)

	return withConfig(ctx, v), nil
}
