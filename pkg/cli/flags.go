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
	"fmt"
	"io"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v3"

	"github.com/dice-group/recipectl/pkg/serializer"
)

const (
	defaultSourceDir   = "."
	defaultRegistryDir = ".recipectl/registry"
	defaultStagingDir  = "package"
)

// recipeFlags are shared by every command that resolves a recipe. Flags
// keep parse state, so each command gets fresh instances.
func recipeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "recipe",
			Aliases: []string{"r"},
			Usage:   "Path to a recipe definition file (default: a builtin revision)",
		},
		&cli.IntFlag{
			Name:  "revision",
			Usage: "Builtin recipe revision when --recipe is not set (default: latest)",
		},
		&cli.StringFlag{
			Name:  "source",
			Value: defaultSourceDir,
			Usage: "Source directory holding the build manifest and license",
		},
		&cli.StringSliceFlag{
			Name:    "option",
			Aliases: []string{"o"},
			Usage:   "Option override as name=value (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "setting",
			Aliases: []string{"s"},
			Usage:   "Build setting as key=value, e.g. compiler.cppstd=20 (repeatable)",
		},
	}
}

func registryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "registry-dir",
			Usage: "Local package registry directory",
		},
		&cli.BoolFlag{
			Name:  "header-only",
			Value: true,
			Usage: "Registry accepts canonical package ids for header-only packages",
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"t"},
			Value:   string(serializer.FormatYAML),
			Usage:   fmt.Sprintf("Output format (supported: %v)", serializer.SupportedFormats()),
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output file (default: stdout)",
		},
	}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String("format"))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", f)
	}
	return f, nil
}

// writeOutput serializes v to --output or the command's stdout.
func writeOutput(ctx context.Context, cmd *cli.Command, v *viper.Viper, value any) (err error) {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	var w *serializer.Writer
	path := stringSetting(cmd, v, "output")
	if path == "" || path == "-" {
		w = serializer.NewWriter(format, stdout(cmd))
	} else if w, err = serializer.NewFileWriterOrStdout(format, path); err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return w.Serialize(ctx, value)
}

func stdout(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return cmd.Writer
}
