// Package cli implements the recipectl command-line interface.
//
// # Commands
//
// resolve - Resolve one configuration and print the recipe:
//
//	recipectl resolve [--recipe FILE | --revision N] [--source DIR]
//	    [-o name=value]... [-s key=value]... [--format yaml|json|table] [--output FILE]
//
// package-id - Print only the package id:
//
//	recipectl package-id --source DIR -o with_boost=true
//
// package - Resolve, install into the staging directory and export to the
// local registry:
//
//	recipectl package --source DIR --staging out/package --registry-dir out/registry
//	    [--build] [--checksums] [--archive out/pkg.tgz] [--force] [--metrics-file FILE]
//
// push - Push a staged package to an OCI registry, tagged with the package
// version unless the target names a tag:
//
//	recipectl push --staging out/package oci://ghcr.io/dice-group/dice-template-library
//
// revisions - List the builtin recipe revisions.
//
// # Global Flags
//
//	--config      Config file (default: .recipectl.yaml in the working or home directory)
//	--log-level   Log level: debug, info, warn, error (default: info)
//
// # Configuration
//
// Every flag can also come from the config file or a RECIPECTL_* environment
// variable (dashes become underscores). Command-line flags win over both.
// Option overrides and settings may be given as maps:
//
//	source: ./dice-template-library
//	options:
//	  with_boost: "true"
//	settings:
//	  compiler.cppstd: "20"
//
// # Exit Codes
//
//	0  success
//	1  any error
//	2  interrupted (SIGINT/SIGTERM)
package cli
