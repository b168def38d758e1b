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
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/dice-group/recipectl/pkg/builder"
	"github.com/dice-group/recipectl/pkg/checksum"
	"github.com/dice-group/recipectl/pkg/packager"
)

func packageCmd() *cli.Command {
	return &cli.Command{
		Name:  "package",
		Usage: "Resolve the recipe, install the package and export it to the registry",
		Description: `Runs the build tool against the source directory, installs into the
staging directory, prunes it, copies the license and commits the package to
the local registry. A package id already in the registry is skipped unless
--force is given.

Examples:

  recipectl package --source ./dice-template-library --staging out/package
  recipectl package -o with_svector=true --checksums --archive out/dtl.tgz`,
		Flags: flags(recipeFlags(), registryFlags(), outputFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "staging",
				Value: defaultStagingDir,
				Usage: "Directory the package is installed into",
			},
			&cli.StringFlag{
				Name:  "build-dir",
				Usage: "Build tree directory (default: <source>/build)",
			},
			&cli.StringFlag{
				Name:  "cmake",
				Value: builder.DefaultCMake,
				Usage: "CMake executable",
			},
			&cli.StringFlag{
				Name:  "generator",
				Usage: "CMake generator, e.g. Ninja",
			},
			&cli.StringFlag{
				Name:  "build-type",
				Usage: "CMake build type, e.g. Release",
			},
			&cli.BoolFlag{
				Name:  "build",
				Usage: "Run the build step before installing",
			},
			&cli.BoolFlag{
				Name:  "checksums",
				Usage: "Write a checksum file of the staged package",
			},
			&cli.StringFlag{
				Name:  "checksum-algorithm",
				Value: string(checksum.SHA256),
				Usage: fmt.Sprintf("Checksum algorithm (%s)", strings.Join(checksumAlgorithms(), ", ")),
			},
			&cli.StringFlag{
				Name:  "archive",
				Usage: "Write a reproducible .tgz or .tar.xz of the staged package to this path",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Package even when the registry already holds the package id",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics in text format to this file on exit",
			},
		}),
		Action: runPackage,
	}
}

func runPackage(ctx context.Context, cmd *cli.Command) (err error) {
	v := configFrom(ctx)

	if path := stringSetting(cmd, v, "metrics-file"); path != "" {
		defer func() {
			if werr := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); werr != nil {
				slog.Warn("failed to write metrics file", "path", path, "error", werr)
			}
		}()
	}

	reg, err := openRegistry(cmd, v, true)
	if err != nil {
		return err
	}
	r, err := resolveRecipe(ctx, cmd, v, reg)
	if err != nil {
		return err
	}

	cmake := builder.NewCMake(r.Packaging.SourceDir, stringSetting(cmd, v, "build-dir"),
		builder.WithExecutable(stringSetting(cmd, v, "cmake")),
		builder.WithGenerator(stringSetting(cmd, v, "generator")),
		builder.WithBuildType(stringSetting(cmd, v, "build-type")),
	)

	p, err := packager.New(cmake, reg, packager.WithConfig(packager.NewConfig(
		packager.WithStagingDir(stringSetting(cmd, v, "staging")),
		packager.WithBuild(boolSetting(cmd, v, "build")),
		packager.WithChecksums(boolSetting(cmd, v, "checksums")),
		packager.WithChecksumAlgorithm(checksum.Algorithm(stringSetting(cmd, v, "checksum-algorithm"))),
		packager.WithArchive(stringSetting(cmd, v, "archive")),
		packager.WithForce(boolSetting(cmd, v, "force")),
	)))
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, r)
	if err != nil {
		return err
	}
	return writeOutput(ctx, cmd, v, res)
}

func checksumAlgorithms() []string {
	algs := checksum.SupportedAlgorithms()
	names := make([]string, 0, len(algs))
	for _, a := range algs {
		names = append(names, string(a))
	}
	return names
}
