// Package packageid computes package ids, the cache keys that decide whether
// two builds of a package are interchangeable.
//
// Two modes exist:
//
//   - ModeFull hashes the package identity, every setting, every resolved
//     option and the set of identity-relevant requirements. Equal inputs
//     always give the same id and any single difference gives a new one.
//   - ModeCanonical hashes the identity (name, version and description)
//     only. It is used for header-only packages whose contents do not
//     depend on how they are consumed.
//
// Ids are lowercase hex sha256 digests. Map and requirement ordering never
// affects the result.
package packageid
