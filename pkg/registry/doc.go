// Package registry implements the dependency registry that stores exported
// packages.
//
// Local keeps packages on disk, one directory per package id:
//
//	<root>/dice-template-library/1.9.1/<packageId>/package.yaml
//
// An export is a sequence of DeclareRequirement and SetProperty calls
// followed by Commit. Until Commit succeeds nothing is written, so a
// failed packaging run never leaves a partial package behind. Discard
// drops a pending export.
//
// Lookup is used by the packager to skip work for package ids that are
// already present.
package registry
