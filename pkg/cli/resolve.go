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
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v3"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
	"github.com/dice-group/recipectl/pkg/recipe"
	"github.com/dice-group/recipectl/pkg/registry"
)

func resolveCmd() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve the recipe for one configuration and print it",
		Description: `Resolves identity, options, settings, requirements and package id and
prints the resulting recipe.

Examples:

  recipectl resolve --source ./dice-template-library -o with_boost=true
  recipectl resolve --recipe recipe.yaml -s compiler.cppstd=20 --format json`,
		Flags: flags(recipeFlags(), registryFlags(), outputFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			v := configFrom(ctx)
			reg, err := openRegistry(cmd, v, false)
			if err != nil {
				return err
			}
			r, err := resolveRecipe(ctx, cmd, v, reg)
			if err != nil {
				return err
			}
			return writeOutput(ctx, cmd, v, r)
		},
	}
}

func packageIDCmd() *cli.Command {
	return &cli.Command{
		Name:  "package-id",
		Usage: "Print the package id of one configuration",
		Flags: flags(recipeFlags(), registryFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			v := configFrom(ctx)
			reg, err := openRegistry(cmd, v, false)
			if err != nil {
				return err
			}
			r, err := resolveRecipe(ctx, cmd, v, reg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout(cmd), r.PackageID)
			return err
		},
	}
}

// revisionEntry is one row of the revisions listing.
type revisionEntry struct {
	Revision int      `json:"revision" yaml:"revision"`
	Latest   bool     `json:"latest" yaml:"latest"`
	Options  []string `json:"options" yaml:"options"`
}

func revisionsCmd() *cli.Command {
	return &cli.Command{
		Name:  "revisions",
		Usage: "List the builtin recipe revisions and their options",
		Flags: outputFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			latest := recipe.LatestBuiltinRevision()
			var out []revisionEntry
			for _, rev := range recipe.BuiltinRevisions() {
				def, err := recipe.BuiltinDefinition(rev, defaultSourceDir)
				if err != nil {
					return err
				}
				entry := revisionEntry{Revision: rev, Latest: rev == latest}
				for _, o := range def.Options {
					entry.Options = append(entry.Options, o.Name)
				}
				out = append(out, entry)
			}
			return writeOutput(ctx, cmd, configFrom(ctx), out)
		},
	}
}

// loadDefinition returns the definition named by --recipe, or the builtin
// revision rooted at --source.
func loadDefinition(cmd *cli.Command, v *viper.Viper) (*recipe.Definition, error) {
	source, err := filepath.Abs(stringSetting(cmd, v, "source"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid source directory", err)
	}

	if path := stringSetting(cmd, v, "recipe"); path != "" {
		def, err := recipe.LoadDefinition(path)
		if err != nil {
			return nil, err
		}
		if isSet(cmd, v, "source") {
			def = def.WithBaseDir(source)
		}
		return def, nil
	}

	rev := intSetting(cmd, v, "revision")
	if rev == 0 {
		rev = recipe.LatestBuiltinRevision()
	}
	return recipe.BuiltinDefinition(rev, source)
}

// openRegistry opens the local registry. Without --registry-dir it returns
// nil unless required, in which case the default directory is used.
func openRegistry(cmd *cli.Command, v *viper.Viper, required bool) (*registry.Local, error) {
	dir := stringSetting(cmd, v, "registry-dir")
	if dir == "" {
		if !required {
			return nil, nil
		}
		dir = defaultRegistryDir
	}
	return registry.NewLocal(dir, registry.WithHeaderOnly(boolSetting(cmd, v, "header-only")))
}

func resolveRecipe(ctx context.Context, cmd *cli.Command, v *viper.Viper, reg *registry.Local) (*recipe.Recipe, error) {
	def, err := loadDefinition(cmd, v)
	if err != nil {
		return nil, err
	}
	overrides, err := mapSetting(cmd, v, "options", "option")
	if err != nil {
		return nil, err
	}
	settings, err := mapSetting(cmd, v, "settings", "setting")
	if err != nil {
		return nil, err
	}

	var opts []recipe.Option
	if reg != nil {
		opts = append(opts, recipe.WithRegistry(reg))
	} else if !boolSetting(cmd, v, "header-only") {
		opts = append(opts, recipe.WithRegistry(noHeaderOnly{}))
	}

	resolver, err := recipe.NewResolver(def, opts...)
	if err != nil {
		return nil, err
	}

	slog.Debug("resolving recipe",
		"revision", def.Revision,
		"overrides", sortedKeys(overrides),
		"settings", sortedKeys(settings))
	return resolver.Resolve(ctx, overrides, recipe.Settings(settings))
}

// noHeaderOnly reports no header-only support when no registry is open
// and --header-only=false was given.
type noHeaderOnly struct{}

func (noHeaderOnly) SupportsHeaderOnly() bool { return false }
