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
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dice-group/recipectl/pkg/archive"
	"github.com/dice-group/recipectl/pkg/checksum"
	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/oci"
)

func pushCmd() *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Push a staged package to an OCI registry",
		ArgsUsage: "oci://registry/repository[:tag]",
		Description: `Packs the staging directory as an OCI artifact annotated with the package
name, version and package id, and pushes it. The tag defaults to the package
version. --staging may also name a .tgz or .tar.xz written by package
--archive. A checksum file in the staged tree is verified before packing.

Examples:

  recipectl push --staging out/package oci://ghcr.io/dice-group/dice-template-library
  recipectl push --plain-http oci://localhost:5000/dtl:dev`,
		Flags: flags(recipeFlags(), registryFlags(), outputFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "staging",
				Value: defaultStagingDir,
				Usage: "Staged package directory or package archive to push",
			},
			&cli.StringFlag{
				Name:  "oci-dir",
				Usage: "Directory for the local OCI image layout (default: temporary)",
			},
			&cli.StringFlag{
				Name:  "created",
				Usage: "Fixed created annotation (RFC 3339) for reproducible manifests",
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "Use HTTP instead of HTTPS",
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "Skip TLS certificate verification",
			},
		}),
		Action: runPush,
	}
}

func runPush(ctx context.Context, cmd *cli.Command) error {
	v := configFrom(ctx)

	if cmd.Args().Len() != 1 {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "push requires exactly one oci:// target")
	}
	ref, err := oci.ParseReference(cmd.Args().First())
	if err != nil {
		return err
	}

	staging, cleanup, err := stagedDir(ctx, stringSetting(cmd, v, "staging"))
	if err != nil {
		return err
	}
	defer cleanup()
	if err := verifyStaged(ctx, staging); err != nil {
		return err
	}

	reg, err := openRegistry(cmd, v, false)
	if err != nil {
		return err
	}
	r, err := resolveRecipe(ctx, cmd, v, reg)
	if err != nil {
		return err
	}
	if ref.Tag == "" {
		ref = ref.WithTag(r.Identity.Version.String())
	}

	outDir := stringSetting(cmd, v, "oci-dir")
	if outDir == "" {
		tmp, tmpErr := os.MkdirTemp("", "recipectl-oci-*")
		if tmpErr != nil {
			return fmt.Errorf("failed to create temporary directory: %w", tmpErr)
		}
		defer os.RemoveAll(tmp)
		outDir = tmp
	}

	res, err := oci.PackageAndPush(ctx, oci.OutputConfig{
		SourceDir:             staging,
		OutputDir:             outDir,
		Reference:             ref,
		Annotations:           oci.Annotations(r.Identity.Name, r.Identity.Version.String(), r.PackageID),
		ReproducibleTimestamp: stringSetting(cmd, v, "created"),
		PlainHTTP:             boolSetting(cmd, v, "plain-http"),
		InsecureTLS:           boolSetting(cmd, v, "insecure-tls"),
	})
	if err != nil {
		return err
	}
	return writeOutput(ctx, cmd, v, res)
}

// stagedDir returns the directory to push. A package archive is extracted
// into a temporary directory that cleanup removes.
func stagedDir(ctx context.Context, path string) (string, func(), error) {
	noop := func() {}
	info, err := os.Stat(path)
	if err != nil {
		return "", noop, apperrors.NewWithContext(apperrors.ErrCodeNotFound,
			"staged package not found, run package first", map[string]any{"path": path})
	}
	if info.IsDir() {
		return path, noop, nil
	}
	if !archive.IsArchiveName(path) {
		return "", noop, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"staged package must be a directory or a package archive", map[string]any{"path": path})
	}

	tmp, err := os.MkdirTemp("", "recipectl-staged-*")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmp) }
	if err := archive.Extract(ctx, path, tmp); err != nil {
		cleanup()
		return "", noop, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"failed to extract package archive", err, map[string]any{"path": path})
	}
	slog.Debug("extracted package archive", "archive", path, "dir", tmp)
	return tmp, cleanup, nil
}

// verifyStaged checks dir against every checksum file present in it.
func verifyStaged(ctx context.Context, dir string) error {
	for _, alg := range checksum.SupportedAlgorithms() {
		if _, err := os.Stat(filepath.Join(dir, alg.FileName())); err != nil {
			continue
		}
		if err := checksum.Verify(ctx, dir, checksum.WithAlgorithm(alg)); err != nil {
			return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
				"staged package does not match its checksums", err,
				map[string]any{"path": dir, "algorithm": string(alg)})
		}
		slog.Debug("staged package verified", "path", dir, "algorithm", alg)
	}
	return nil
}
