// Package logging provides structured logging utilities for recipectl.
//
// # Overview
//
// This package wraps the standard library slog package with the defaults used
// across the tool: JSON records on stderr, module/version attributes on every
// record, and source locations when running at debug level.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: builder command lines, manifest parsing, per-step timing
//   - INFO: resolution results and packaging progress (default)
//   - WARN/WARNING: recoverable conditions such as a canonical id fallback
//   - ERROR: failures that abort the invocation
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("recipectl", version)
//	    slog.Info("resolved recipe", "name", name, "package_id", id)
//	}
//
// The LOG_LEVEL environment variable controls verbosity when no explicit
// level is given:
//
//	LOG_LEVEL=debug recipectl package --recipe recipe.yaml
package logging
