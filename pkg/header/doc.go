// Package header provides the common document header for recipectl files.
//
// Recipe definitions, resolved recipes and published package info documents
// all start with the same Kubernetes-style fields:
//
//	apiVersion: recipectl/v1
//	kind: RecipeDefinition
//	metadata:
//	  timestamp: "2025-01-15T10:30:00Z"
//
// Readers call Expect to reject documents of the wrong kind or of an
// unsupported schema version before decoding the rest.
package header
