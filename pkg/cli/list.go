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
	"time"

	"github.com/urfave/cli/v3"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

// packageEntry is one row of the list output.
type packageEntry struct {
	Ref         string            `json:"ref" yaml:"ref"`
	Revision    int               `json:"revision" yaml:"revision"`
	Mode        string            `json:"mode" yaml:"mode"`
	Options     map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	CommittedAt time.Time         `json:"committedAt" yaml:"committedAt"`
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List the packages committed to the local registry",
		ArgsUsage: "[name]",
		Description: `Lists every committed package of name, sorted by version and package id.
Without a name, the package name is resolved from the recipe and manifest.

Examples:

  recipectl list dice-template-library
  recipectl list --registry-dir .cache/registry --format table`,
		Flags:  flags(recipeFlags(), registryFlags(), outputFlags()),
		Action: runList,
	}
}

func runList(ctx context.Context, cmd *cli.Command) error {
	v := configFrom(ctx)

	if cmd.Args().Len() > 1 {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "list takes at most one package name")
	}
	reg, err := openRegistry(cmd, v, true)
	if err != nil {
		return err
	}

	name := cmd.Args().First()
	if name == "" {
		r, resolveErr := resolveRecipe(ctx, cmd, v, reg)
		if resolveErr != nil {
			return resolveErr
		}
		name = r.Identity.Name
	}

	infos, err := reg.List(ctx, name)
	if err != nil {
		return err
	}
	out := make([]packageEntry, 0, len(infos))
	for _, info := range infos {
		out = append(out, packageEntry{
			Ref:         info.Ref.String(),
			Revision:    info.Revision,
			Mode:        info.Mode,
			Options:     info.Options,
			CommittedAt: info.CommittedAt,
		})
	}
	return writeOutput(ctx, cmd, v, out)
}
