// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import "errors"

// Sentinel errors returned by backends and the registry. Callers match with
// errors.Is and treat all of these as per-file, non-fatal conditions.
var (
	// ErrFileTooLarge indicates the content exceeds the backend's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidContent indicates the content is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")

	// ErrUnsupportedLanguage indicates no registered backend handles the
	// file's extension. The file is skipped, not fatal.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrSyntax indicates the parse tree could not be produced at all.
	// Partial syntax errors inside an otherwise parseable file are recorded
	// in FileResult.Errors instead.
	ErrSyntax = errors.New("syntax error")

	// ErrUnsupportedConstruct indicates the tree contained a construct the
	// extractor cannot represent. Recorded per node, never fatal.
	ErrUnsupportedConstruct = errors.New("unsupported construct")
)
