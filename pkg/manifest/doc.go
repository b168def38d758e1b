// Package manifest reads project identity out of a CMake build manifest.
//
// The manifest is the single authoritative place where a library declares
// its name, version and description. Recipes read it instead of repeating
// those values, so the packaged identity can never drift from the project.
//
// The parser is deliberately narrow. It recognizes command invocations at
// statement level, ignores comments, and inspects only project():
//
//	project(dice-template-library
//	        VERSION 1.9.1
//	        DESCRIPTION "C++ template utilities"
//	        LANGUAGES CXX)
//
// Exactly one project() command must be present. A missing, duplicated or
// malformed declaration fails with ErrCodeIdentityExtraction rather than
// guessing; an unreadable file fails with ErrCodeManifestNotFound.
package manifest
