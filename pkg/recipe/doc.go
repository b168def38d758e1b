// Package recipe resolves a recipe definition into a concrete, immutable
// Recipe for one invocation.
//
// # Overview
//
// A Definition is one revision of a package recipe. It declares the
// package metadata, the feature options of that revision and a table that
// maps option values to requirements. Definitions are YAML documents:
//
//	apiVersion: recipectl/v1
//	kind: RecipeDefinition
//	revision: 3
//	packageType: header-library
//	options:
//	  - name: with_boost
//	    type: bool
//	    default: "false"
//	optionRequires:
//	  with_boost:
//	    - target: boost
//	      version: 1.84.0
//
// Three revisions of the dice-template-library recipe are embedded and
// available through BuiltinDefinition.
//
// # Resolution
//
// Resolver.Resolve runs the stages in a fixed order:
//
//  1. Identity: explicit name, version and description win; missing fields
//     come from the single project() declaration of the build manifest,
//     which is read at most once.
//  2. Options: every declared option gets a value. Overrides for options the
//     revision does not declare fail with UNKNOWN_OPTION.
//  3. Settings: compiler.cppstd is checked against minCppStd.
//  4. Requirements: unconditional requirements, then the option table in
//     declaration order. A repeated (target, phase) pair fails with
//     DUPLICATE_REQUIREMENT.
//  5. Package id: canonical or full, see package packageid. A canonical
//     request falls back to full when the registry cannot store
//     header-only packages.
//
// Resolution has no side effects outside the process. Packaging is done
// by package packager.
//
// # Usage
//
//	def, err := recipe.BuiltinDefinition(3, srcDir)
//	if err != nil {
//		return err
//	}
//	res, err := recipe.NewResolver(def, recipe.WithRegistry(reg))
//	if err != nil {
//		return err
//	}
//	rec, err := res.Resolve(ctx, map[string]string{"with_boost": "true"}, recipe.Settings{"os": "Linux"})
package recipe
