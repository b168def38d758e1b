// Package archive packs a staged package directory into a reproducible
// compressed tar file.
//
// Create sorts entries, clears ownership and pins every timestamp to the
// Unix epoch, so two archives of identical trees are byte for byte equal
// and share a digest. The file name picks the compression: .tgz and .tar.gz
// use klauspost/pgzip, which compresses blocks in parallel, while .txz and
// .tar.xz use ulikunitz/xz.
//
// Extract is the inverse and rejects entries that would escape the target
// directory.
package archive
