// Package oci publishes staged packages as OCI artifacts.
//
// A staged package directory is packed as one reproducible gzip layer with
// artifact type application/vnd.dice-research.recipectl.package. The
// manifest carries the package name, version and package id as
// annotations, so a registry listing shows which configuration a tag holds.
//
// Publishing is two steps, usable separately:
//
//	pkg, err := oci.Package(ctx, oci.PackageOptions{
//	    SourceDir:   "out/package",
//	    OutputDir:   "out",
//	    Registry:    "ghcr.io",
//	    Repository:  "dice-group/dice-template-library",
//	    Tag:         "1.9.1",
//	    Annotations: oci.Annotations("dice-template-library", "1.9.1", id),
//	})
//
//	res, err := oci.PushFromStore(ctx, pkg.StorePath, oci.PushOptions{
//	    Registry:   "ghcr.io",
//	    Repository: "dice-group/dice-template-library",
//	    Tag:        "1.9.1",
//	})
//
// PackageAndPush combines both. Push targets are written as
// oci://registry/repository[:tag] and parsed with ParseReference.
//
// Registry credentials come from the Docker configuration
// (~/.docker/config.json) through the ORAS credentials package.
package oci
