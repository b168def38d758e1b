// Package errors provides structured error types for better observability
// and programmatic error handling across recipectl.
//
// Every failure the resolution engine can produce maps to one ErrorCode:
// manifest and identity problems, unknown options, duplicate requirements,
// and the install/export step failures. Packaging failures are wrapped in
// ErrCodePackaging with the failing step name under the "step" context key,
// so callers can check both the outer and inner classification:
//
//	if errors.HasCode(err, errors.ErrCodeLicenseCopy) {
//	    step, _ := errors.ContextValue(err, "step")
//	    ...
//	}
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeManifestNotFound,
//	    "failed to read manifest",
//	    cause,
//	    map[string]any{
//	        "path": path,
//	    },
//	)
package errors
