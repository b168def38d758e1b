// Package packager turns a resolved recipe into an exported package.
//
// Run drives a builder.Builder and a Registry through a fixed sequence of
// steps:
//
//	configure  builder variables from bool options and fixed variables
//	build      optional, enabled with WithBuild
//	install    into the emptied staging directory
//	prune      drop lib/, res/ and share/ (or the recipe's prune list)
//	license    copy the license into <staging>/licenses/
//	checksums  optional checksum file of the staged tree
//	archive    optional reproducible .tgz or .tar.xz of the staged tree
//	publish    declare requirements, set properties, commit
//
// Any step failure aborts the run with a PACKAGING_ERROR whose "step"
// context names the step. The underlying code (CONFIGURATION_ERROR,
// BUILD_ERROR, INSTALL_ERROR, LICENSE_COPY_ERROR, ...) stays reachable
// through errors.HasCode. Publish runs last, so a failed run never leaves
// the package in the registry.
//
// Staging and archive paths are made absolute when the Config is built.
//
// A run is skipped when the registry already holds the package id, unless
// the Config forces it.
package packager
