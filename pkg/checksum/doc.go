// Package checksum writes and verifies the checksum file of a staged
// package.
//
// The default file is checksums.txt in sha256sum format, one file per line,
// sorted by path:
//
//	<sha256-hex>  include/dice/template-library/switch_cases.hpp
//
// WithAlgorithm(BLAKE3) writes checksums.b3 in the same layout, readable by
// b3sum -c.
//
// Files are hashed concurrently with a bounded errgroup, but the output does
// not depend on scheduling. Verify re-hashes a directory and reports every
// missing, extra or modified file.
package checksum
