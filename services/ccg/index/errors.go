// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the element index.
var (
	// ErrInvalidElement indicates the element failed validation.
	ErrInvalidElement = errors.New("invalid element")

	// ErrDuplicateElement indicates an element with the same ID already exists.
	ErrDuplicateElement = errors.New("duplicate element")

	// ErrMaxElementsExceeded indicates the index is at capacity.
	ErrMaxElementsExceeded = errors.New("maximum element count exceeded")

	// ErrIndexFrozen indicates a write was attempted after Freeze.
	ErrIndexFrozen = errors.New("index is frozen")
)

// BatchError aggregates all errors from a batch add so the caller sees every
// problem at once instead of fixing them one at a time.
type BatchError struct {
	Errors []error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if len(e.Errors) == 0 {
		return "batch error with no details"
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("batch add failed with %d error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap returns the underlying errors for errors.Is matching.
func (e *BatchError) Unwrap() []error {
	return e.Errors
}
