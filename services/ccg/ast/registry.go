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
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// Backend parses one language's source files into FileResults.
//
// Thread Safety:
//
//	Backends must be safe for concurrent use; each Parse call creates its
//	own tree-sitter parser instance internally.
type Backend interface {
	// Language returns the canonical language name ("python", "go", ...).
	Language() string

	// Extensions returns the file extensions the backend handles,
	// including the leading dot.
	Extensions() []string

	// Parse extracts elements and reference candidates from content.
	// Returns a non-nil FileResult with partial results for syntactically
	// invalid code; returns an error only for complete failures
	// (ErrFileTooLarge, ErrInvalidContent, context cancellation).
	Parse(ctx context.Context, content []byte, filePath string) (*FileResult, error)
}

// Registry maps file extensions to language backends.
//
// Description:
//
//	The registry is an explicit value passed into the analyzer, never
//	process-global state, so multiple analyses can run concurrently with
//	independently configured backend sets.
//
// Thread Safety:
//
//	Registry is immutable after construction and safe for concurrent reads.
//	Register must not be called concurrently with Select.
type Registry struct {
	byExt     map[string]Backend
	languages []string
}

// NewRegistry creates a registry holding the given backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{byExt: make(map[string]Backend)}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// DefaultRegistry returns a registry with all built-in backends
// (Python, JavaScript, TypeScript, Go). Options apply to every backend.
func DefaultRegistry(opts ...BackendOption) *Registry {
	return NewRegistry(
		NewPythonBackend(opts...),
		NewJavaScriptBackend(opts...),
		NewTypeScriptBackend(opts...),
		NewGoBackend(opts...),
	)
}

// RegistryForLanguages returns a registry restricted to the named built-in
// languages. Unknown names are ignored. Options apply to every backend.
func RegistryForLanguages(languages []string, opts ...BackendOption) *Registry {
	r := NewRegistry()
	for _, lang := range languages {
		switch strings.ToLower(lang) {
		case "python":
			r.Register(NewPythonBackend(opts...))
		case "javascript":
			r.Register(NewJavaScriptBackend(opts...))
		case "typescript":
			r.Register(NewTypeScriptBackend(opts...))
		case "go", "golang":
			r.Register(NewGoBackend(opts...))
		}
	}
	return r
}

// Register adds a backend, claiming all of its extensions. A later backend
// claiming an already-registered extension wins.
func (r *Registry) Register(b Backend) {
	if b == nil {
		return
	}
	for _, ext := range b.Extensions() {
		r.byExt[strings.ToLower(ext)] = b
	}
	for _, known := range r.languages {
		if known == b.Language() {
			return
		}
	}
	r.languages = append(r.languages, b.Language())
	sort.Strings(r.languages)
}

// Select returns the backend for the file's extension, or false when the
// extension is unsupported. Unsupported files are the caller's to skip and
// count; Select never fails the run.
func (r *Registry) Select(filePath string) (Backend, bool) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == "" {
		return nil, false
	}
	b, ok := r.byExt[ext]
	return b, ok
}

// Languages returns the sorted canonical names of all registered languages.
func (r *Registry) Languages() []string {
	out := make([]string, len(r.languages))
	copy(out, r.languages)
	return out
}

// Len returns the number of registered languages.
func (r *Registry) Len() int {
	return len(r.languages)
}
