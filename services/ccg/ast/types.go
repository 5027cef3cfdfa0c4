// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast parses source files with tree-sitter and extracts normalized
// code elements plus the raw reference candidates (calls, imports, inherits,
// variable uses, attribute accesses) that the resolver later turns into
// graph relationships.
package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Default parser limits.
const (
	// DefaultMaxFileSize is the maximum file size accepted by a backend (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the size above which a warning is logged (1MB).
	WarnFileSize = 1024 * 1024

	// MaxTraversalDepth bounds the recursive tree walk. Prevents stack
	// exhaustion on pathologically nested sources.
	MaxTraversalDepth = 512
)

// ElementKind classifies a code element.
type ElementKind string

// Element kinds. These are the only kinds the graph stores; containment
// (a method inside a class) is expressed via Element.ParentID, never as a
// separate kind or relationship.
const (
	ElementKindModule   ElementKind = "module"
	ElementKindClass    ElementKind = "class"
	ElementKindFunction ElementKind = "function"
	ElementKindMethod   ElementKind = "method"
	ElementKindVariable ElementKind = "variable"
)

// Valid reports whether k is a known element kind.
func (k ElementKind) Valid() bool {
	switch k {
	case ElementKindModule, ElementKindClass, ElementKindFunction,
		ElementKindMethod, ElementKindVariable:
		return true
	}
	return false
}

// Location identifies where a construct appears in source.
type Location struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	StartCol  int    `json:"start_col"`
	EndCol    int    `json:"end_col"`
}

// Element is the normalized representation of a named source construct.
//
// Description:
//
//	Elements are created during the extraction phase and are immutable
//	afterwards, with one documented exception: ComplexityScore is written
//	exactly once by the metrics engine after the graph is assembled.
//
// Thread Safety:
//
//	Elements must not be mutated after being handed to an index or graph.
type Element struct {
	// ID uniquely identifies the element. Derived deterministically from
	// (FilePath, Name, StartLine) by GenerateID, so duplicate names in
	// different files never collide.
	ID string `json:"id"`

	// Name is the declared name of the construct.
	Name string `json:"name"`

	// Kind classifies the element.
	Kind ElementKind `json:"kind"`

	// FilePath is the file the element was extracted from, relative to the
	// analysis root, using forward slashes.
	FilePath string `json:"file_path"`

	// StartLine and EndLine are the 1-based line span.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Language is the canonical language name ("python", "go", ...).
	Language string `json:"language"`

	// ParentID references the containing element (method → class,
	// class → module). Containment is a reference, not a relationship edge.
	ParentID string `json:"parent_id,omitempty"`

	// Exported reports whether the element is visible outside its module,
	// per language convention (capitalized in Go, no leading underscore in
	// Python, and so on).
	Exported bool `json:"exported"`

	// Documentation is the doc comment or docstring, if any.
	Documentation string `json:"documentation,omitempty"`

	// SourceSnippet is the element's source text, truncated to SnippetLimit.
	SourceSnippet string `json:"source_snippet,omitempty"`

	// DecisionPoints counts branching constructs inside the element's body
	// (if/for/while/case/&&/||/catch, per language). The metrics engine
	// turns this into the cyclomatic complexity score.
	DecisionPoints int `json:"decision_points"`

	// ComplexityScore is the cyclomatic complexity. Zero until the metrics
	// engine sets it; always >= 1 afterwards.
	ComplexityScore float64 `json:"complexity_score"`
}

// SnippetLimit is the maximum length of a stored source snippet.
const SnippetLimit = 2048

// Validate checks the element's structural invariants.
func (e *Element) Validate() error {
	if e == nil {
		return fmt.Errorf("element must not be nil")
	}
	if e.ID == "" {
		return fmt.Errorf("element %q: missing id", e.Name)
	}
	if e.Name == "" {
		return fmt.Errorf("element %s: missing name", e.ID)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("element %s: invalid kind %q", e.ID, e.Kind)
	}
	if e.FilePath == "" {
		return fmt.Errorf("element %s: missing file path", e.ID)
	}
	if e.StartLine <= 0 || e.EndLine < e.StartLine {
		return fmt.Errorf("element %s: invalid line span %d-%d", e.ID, e.StartLine, e.EndLine)
	}
	if e.DecisionPoints < 0 {
		return fmt.Errorf("element %s: negative decision points", e.ID)
	}
	return nil
}

// Location returns the element's span as a Location.
func (e *Element) Location() Location {
	return Location{
		FilePath:  e.FilePath,
		StartLine: e.StartLine,
		EndLine:   e.EndLine,
	}
}

// ReferenceKind classifies a reference candidate captured during extraction.
type ReferenceKind string

// Reference kinds, mirroring the relationship kinds the resolver emits.
const (
	RefCall            ReferenceKind = "calls"
	RefImport          ReferenceKind = "imports"
	RefInherit         ReferenceKind = "inherits"
	RefUsesVariable    ReferenceKind = "uses_variable"
	RefAccessAttribute ReferenceKind = "accesses_attribute"
)

// Reference is an unresolved reference candidate: the enclosing element
// mentions Target by name. References are resolved to relationships only
// after the full element index exists, so cross-file forward references
// work regardless of file order.
type Reference struct {
	// Kind classifies the reference.
	Kind ReferenceKind `json:"kind"`

	// FromID is the ID of the enclosing element the reference occurs in.
	FromID string `json:"from_id"`

	// Target is the referenced identifier as written in source. For method
	// calls this is the method name without the receiver.
	Target string `json:"target"`

	// Receiver is the receiver expression for method calls and attribute
	// accesses ("self", "obj"), empty otherwise.
	Receiver string `json:"receiver,omitempty"`

	// Context is a short source snippet of the reference site.
	Context string `json:"context,omitempty"`

	// Location is where the reference appears.
	Location Location `json:"location"`
}

// FileResult holds everything extracted from a single file.
type FileResult struct {
	// FilePath is the analyzed file path.
	FilePath string `json:"file_path"`

	// Language is the canonical language name.
	Language string `json:"language"`

	// Hash is the hex-encoded SHA-256 of the file content.
	Hash string `json:"hash"`

	// ParsedAtMilli is the Unix timestamp in milliseconds of the parse.
	ParsedAtMilli int64 `json:"parsed_at_milli"`

	// Elements are the extracted code elements, module element first.
	Elements []*Element `json:"elements"`

	// References are the unresolved reference candidates.
	References []Reference `json:"references"`

	// Errors holds non-fatal extraction problems (syntax errors, skipped
	// malformed nodes). A file with errors still contributes whatever was
	// successfully extracted.
	Errors []string `json:"errors,omitempty"`
}

// ModuleElement returns the file's module element, or nil if extraction
// produced none.
func (r *FileResult) ModuleElement() *Element {
	for _, e := range r.Elements {
		if e != nil && e.Kind == ElementKindModule {
			return e
		}
	}
	return nil
}

// Validate checks the result's structural invariants.
func (r *FileResult) Validate() error {
	if r == nil {
		return fmt.Errorf("file result must not be nil")
	}
	if r.FilePath == "" {
		return fmt.Errorf("file result: missing file path")
	}
	seen := make(map[string]struct{}, len(r.Elements))
	for _, e := range r.Elements {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("file result %s: duplicate element id %s", r.FilePath, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// GenerateID derives a deterministic element ID from the file path, start
// line, and name. Two elements can only collide if they share all three,
// which the extractor prevents.
func GenerateID(filePath string, startLine int, name string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", filePath, startLine, name)))
	return hex.EncodeToString(sum[:8])
}
