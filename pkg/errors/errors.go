// Copyright (c) 2025, DICE Research Group.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an internal system error.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeInvalidRequest indicates malformed or invalid input.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeManifestNotFound indicates the build manifest could not be read.
	ErrCodeManifestNotFound ErrorCode = "MANIFEST_NOT_FOUND"
	// ErrCodeIdentityExtraction indicates the package identity could not be
	// derived from the manifest (missing, malformed or ambiguous declaration).
	ErrCodeIdentityExtraction ErrorCode = "IDENTITY_EXTRACTION_ERROR"
	// ErrCodeUnknownOption indicates an override names an option the recipe
	// revision does not declare.
	ErrCodeUnknownOption ErrorCode = "UNKNOWN_OPTION"
	// ErrCodeDuplicateRequirement indicates two requirements share a target within one phase.
	ErrCodeDuplicateRequirement ErrorCode = "DUPLICATE_REQUIREMENT"
	// ErrCodeConfiguration indicates the builder configure step failed.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeBuild indicates the builder build step failed.
	ErrCodeBuild ErrorCode = "BUILD_ERROR"
	// ErrCodeInstall indicates the builder install step failed.
	ErrCodeInstall ErrorCode = "INSTALL_ERROR"
	// ErrCodeLicenseCopy indicates the license artifact could not be copied.
	ErrCodeLicenseCopy ErrorCode = "LICENSE_COPY_ERROR"
	// ErrCodePackaging wraps any install/export step failure. The failing
	// step is recorded under the "step" context key.
	ErrCodePackaging ErrorCode = "PACKAGING_ERROR"
)

// StructuredError provides structured error information for better observability.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// HasCode reports whether any StructuredError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// ContextValue returns the value stored under key by the first
// StructuredError in err's chain that carries it.
func ContextValue(err error, key string) (any, bool) {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return nil, false
		}
		if v, ok := se.Context[key]; ok {
			return v, true
		}
		err = se.Cause
	}
	return nil, false
}
