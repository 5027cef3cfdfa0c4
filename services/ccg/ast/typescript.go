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

import (
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// NewTypeScriptBackend creates a Backend for TypeScript source files.
//
// The TypeScript grammar is a superset of the JavaScript grammar for every
// node type the extractor visits, so the spec is shared with the JavaScript
// backend and extended with the TS-only declaration forms.
func NewTypeScriptBackend(opts ...BackendOption) Backend {
	spec := jsSpec("typescript", []string{".ts", ".tsx"}, typescript.GetLanguage())
	spec.elementTypes["abstract_class_declaration"] = ElementKindClass
	return newBackend(spec, opts...)
}
