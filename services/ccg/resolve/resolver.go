// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve turns reference candidates into confidence-scored
// relationships by matching them against the frozen element index.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
	"github.com/AleutianAI/codegraph/services/ccg/graph"
	"github.com/AleutianAI/codegraph/services/ccg/index"
)

var resolverTracer = otel.Tracer("ccg.resolve")

// Base confidence per reference kind. A unique resolution gets the base;
// N candidates divide it by N.
const (
	DefaultCallConfidence      = 0.9
	DefaultImportConfidence    = 0.9
	DefaultInheritConfidence   = 0.95
	DefaultUsesConfidence      = 0.7
	DefaultAttributeConfidence = 0.7

	// PythonCallConfidence is the base for Python call edges. Dynamic
	// dispatch makes name-based call resolution less certain than in the
	// statically typed languages.
	PythonCallConfidence = 0.8
)

// ErrIndexNotFrozen indicates Resolve was called before the extraction
// barrier. Resolution against a still-mutating index would miss forward
// references nondeterministically.
var ErrIndexNotFrozen = errors.New("element index is not frozen")

// Dropped records a reference that resolved to no element. Dropped
// references never become edges; the graph has no placeholder nodes.
type Dropped struct {
	// Ref is the unresolved reference.
	Ref ast.Reference

	// Reason describes why no edge was produced.
	Reason string
}

// Stats summarizes a resolution pass.
type Stats struct {
	// References is the number of input reference candidates.
	References int

	// Edges is the number of relationships produced.
	Edges int

	// Dropped is the number of references that resolved to nothing.
	Dropped int

	// ByKind counts produced edges per relation kind.
	ByKind map[graph.RelationKind]int
}

// Options configures resolution confidence scoring.
type Options struct {
	// BaseConfidence maps each reference kind to its base confidence.
	BaseConfidence map[ast.ReferenceKind]float64

	// CallConfidenceByLanguage overrides the calls base per source language
	// of the referencing element.
	CallConfidenceByLanguage map[string]float64

	// MaxCandidates caps how many same-named elements one reference may fan
	// out to. References with more candidates than this are dropped as too
	// ambiguous to be useful. Default: 32.
	MaxCandidates int
}

// DefaultOptions returns the default confidence configuration.
func DefaultOptions() Options {
	return Options{
		BaseConfidence: map[ast.ReferenceKind]float64{
			ast.RefCall:            DefaultCallConfidence,
			ast.RefImport:          DefaultImportConfidence,
			ast.RefInherit:         DefaultInheritConfidence,
			ast.RefUsesVariable:    DefaultUsesConfidence,
			ast.RefAccessAttribute: DefaultAttributeConfidence,
		},
		CallConfidenceByLanguage: map[string]float64{
			"python": PythonCallConfidence,
		},
		MaxCandidates: 32,
	}
}

// Option is a functional option for configuring the Resolver.
type Option func(*Options)

// WithBaseConfidence overrides the base confidence for one reference kind.
func WithBaseConfidence(kind ast.ReferenceKind, confidence float64) Option {
	return func(o *Options) {
		if confidence > 0 && confidence <= 1 {
			o.BaseConfidence[kind] = confidence
		}
	}
}

// WithCallConfidenceForLanguage overrides the calls base for one language.
func WithCallConfidenceForLanguage(language string, confidence float64) Option {
	return func(o *Options) {
		if confidence > 0 && confidence <= 1 {
			o.CallConfidenceByLanguage[language] = confidence
		}
	}
}

// WithMaxCandidates sets the candidate fan-out cap.
func WithMaxCandidates(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxCandidates = n
		}
	}
}

// Resolver matches reference candidates against a frozen element index.
//
// Description:
//
//	Resolution is name-based with scope preference: candidates in the same
//	file win over candidates in the same module directory, which win over
//	repo-wide exported candidates. Within the winning scope every candidate
//	gets an edge, with the base confidence divided by the candidate count.
//	References that match nothing are dropped with a diagnostic.
//
// Thread Safety:
//
//	Resolver is safe for concurrent use; it only reads the frozen index.
type Resolver struct {
	idx     *index.ElementIndex
	options Options
}

// NewResolver creates a Resolver over the given index. The index must be
// frozen before Resolve is called.
func NewResolver(idx *index.ElementIndex, opts ...Option) *Resolver {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Resolver{idx: idx, options: options}
}

// Resolve turns reference candidates into relationships.
//
// Inputs:
//   - ctx: Checked periodically; resolution of a large repo is O(refs).
//   - refs: Reference candidates, typically one file's worth.
//
// Outputs:
//   - []graph.Relationship: Produced edges. Both endpoints exist in the index.
//   - []Dropped: References that resolved to nothing.
//   - error: ErrIndexNotFrozen or a context error.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (r *Resolver) Resolve(ctx context.Context, refs []ast.Reference) ([]graph.Relationship, []Dropped, error) {
	ctx, span := resolverTracer.Start(ctx, "resolve.Resolver.Resolve",
		trace.WithAttributes(attribute.Int("ccg.references", len(refs))))
	defer span.End()

	if !r.idx.Frozen() {
		return nil, nil, ErrIndexNotFrozen
	}

	var (
		edges   []graph.Relationship
		dropped []Dropped
	)

	for i, ref := range refs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("resolve canceled: %w", err)
			}
		}

		from, ok := r.idx.GetByID(ref.FromID)
		if !ok {
			dropped = append(dropped, Dropped{Ref: ref, Reason: "referencing element not in index"})
			continue
		}

		kind, ok := graph.KindFromReference(ref.Kind)
		if !ok {
			dropped = append(dropped, Dropped{Ref: ref, Reason: fmt.Sprintf("unknown reference kind %q", ref.Kind)})
			continue
		}

		candidates := r.candidates(from, ref)
		if len(candidates) == 0 {
			dropped = append(dropped, Dropped{Ref: ref, Reason: "no matching element"})
			continue
		}
		if len(candidates) > r.options.MaxCandidates {
			dropped = append(dropped, Dropped{
				Ref:    ref,
				Reason: fmt.Sprintf("too ambiguous: %d candidates", len(candidates)),
			})
			continue
		}

		confidence := r.baseConfidence(ref.Kind, from.Language) / float64(len(candidates))
		for _, target := range candidates {
			edges = append(edges, graph.Relationship{
				FromID:     ref.FromID,
				ToID:       target.ID,
				Kind:       kind,
				Confidence: confidence,
				Context:    ref.Context,
				Location:   ref.Location,
			})
		}
	}

	span.SetAttributes(
		attribute.Int("ccg.edges", len(edges)),
		attribute.Int("ccg.dropped", len(dropped)),
	)

	return edges, dropped, nil
}

// baseConfidence returns the base confidence for a reference kind, applying
// the per-language calls override.
func (r *Resolver) baseConfidence(kind ast.ReferenceKind, language string) float64 {
	if kind == ast.RefCall {
		if c, ok := r.options.CallConfidenceByLanguage[language]; ok {
			return c
		}
	}
	if c, ok := r.options.BaseConfidence[kind]; ok {
		return c
	}
	return DefaultUsesConfidence
}

// candidates returns the target elements for a reference, narrowed to the
// closest scope that matches anything.
func (r *Resolver) candidates(from *ast.Element, ref ast.Reference) []*ast.Element {
	if ref.Kind == ast.RefImport {
		return r.importCandidates(ref)
	}

	all := r.idx.GetByName(ref.Target)
	matched := all[:0:0]
	for _, elem := range all {
		// A call resolving to its own element is recursion, a real edge.
		// For every other kind a self match is noise.
		if elem.ID == from.ID && ref.Kind != ast.RefCall {
			continue
		}
		if !kindMatches(ref.Kind, elem.Kind) {
			continue
		}
		matched = append(matched, elem)
	}
	if len(matched) == 0 {
		return nil
	}

	// Scope preference: same file, then same module directory, then
	// repo-wide exported elements.
	var sameFile, sameModule, exported []*ast.Element
	fromDir := index.ModuleDir(from.FilePath)
	for _, elem := range matched {
		switch {
		case elem.FilePath == from.FilePath:
			sameFile = append(sameFile, elem)
		case index.ModuleDir(elem.FilePath) == fromDir:
			sameModule = append(sameModule, elem)
		case elem.Exported:
			exported = append(exported, elem)
		}
	}
	if len(sameFile) > 0 {
		return sameFile
	}
	if len(sameModule) > 0 {
		return sameModule
	}
	return exported
}

// importCandidates matches an import path against module elements. The last
// path segment must equal the module name ("pkg/utils" matches the module
// element of utils.py and utils/... files).
func (r *Resolver) importCandidates(ref ast.Reference) []*ast.Element {
	target := ref.Target
	if i := strings.LastIndexAny(target, "./"); i >= 0 {
		target = target[i+1:]
	}
	if target == "" {
		return nil
	}

	var out []*ast.Element
	for _, elem := range r.idx.GetByName(target) {
		if elem.Kind == ast.ElementKindModule {
			out = append(out, elem)
		}
	}
	return out
}

// kindMatches reports whether an element kind is a plausible target for a
// reference kind.
func kindMatches(ref ast.ReferenceKind, kind ast.ElementKind) bool {
	switch ref {
	case ast.RefCall:
		// Calling a class name is constructing it.
		return kind == ast.ElementKindFunction || kind == ast.ElementKindMethod ||
			kind == ast.ElementKindClass
	case ast.RefInherit:
		return kind == ast.ElementKindClass
	case ast.RefUsesVariable:
		return kind == ast.ElementKindVariable
	case ast.RefAccessAttribute:
		return kind == ast.ElementKindMethod || kind == ast.ElementKindVariable
	case ast.RefImport:
		return kind == ast.ElementKindModule
	}
	return false
}
