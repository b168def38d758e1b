// Package version parses the project versions declared in build manifests.
//
// Manifests written against early recipe revisions may omit the patch
// component ("1.2"); later ones always carry it ("1.2.3"). Both forms are
// accepted and normalized to a full triple with the patch defaulting to 0:
//
//	v, err := version.ParseVersion("1.2")
//	fmt.Println(v.Normalize()) // 1.2.0
//
// Versions marshal to and from text, so they can be used directly in YAML
// and JSON documents.
package version
