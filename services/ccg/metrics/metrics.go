// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics computes per-element and graph-wide code metrics:
// cyclomatic complexity, maintainability, documentation coverage, and
// hotspot flags.
package metrics

import (
	"math"
	"sort"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
	"github.com/AleutianAI/codegraph/services/ccg/graph"
)

// Default complexity band thresholds. An element is low below Medium,
// medium in [Medium, High], high above High.
const (
	DefaultMediumComplexity = 7
	DefaultHighComplexity   = 10
)

// ComplexityBand classifies an element's cyclomatic complexity.
type ComplexityBand string

// Complexity bands.
const (
	BandLow    ComplexityBand = "low"
	BandMedium ComplexityBand = "medium"
	BandHigh   ComplexityBand = "high"
)

// ElementMetrics holds the computed metrics for one element.
type ElementMetrics struct {
	// ID and Name identify the element.
	ID   string `json:"id"`
	Name string `json:"name"`

	// Kind is the element kind.
	Kind ast.ElementKind `json:"kind"`

	// FilePath locates the element.
	FilePath string `json:"file_path"`

	// Complexity is the cyclomatic complexity (1 + decision points).
	Complexity float64 `json:"complexity"`

	// Band is the complexity classification.
	Band ComplexityBand `json:"band"`

	// Lines is the element's source line span.
	Lines int `json:"lines"`

	// InDegree and OutDegree count all incoming and outgoing edges.
	InDegree  int `json:"in_degree"`
	OutDegree int `json:"out_degree"`

	// Documented reports whether the element has a doc comment.
	Documented bool `json:"documented"`

	// Maintainability is a normalized score in [0, 100]; higher is easier
	// to maintain.
	Maintainability float64 `json:"maintainability"`

	// Hotspot marks highly complex, highly connected elements.
	Hotspot bool `json:"hotspot"`
}

// Snapshot is the graph-wide metrics summary.
type Snapshot struct {
	// TotalElements and TotalRelationships are the graph sizes.
	TotalElements      int `json:"total_elements"`
	TotalRelationships int `json:"total_relationships"`

	// ComplexityDistribution counts callable elements per band.
	ComplexityDistribution map[ComplexityBand]int `json:"complexity_distribution"`

	// LanguageDistribution counts elements per language.
	LanguageDistribution map[string]int `json:"language_distribution"`

	// AverageComplexity and MaxComplexity cover callable elements only.
	AverageComplexity float64 `json:"average_complexity"`
	MaxComplexity     float64 `json:"max_complexity"`

	// DocumentationCoverage is the documented fraction of documentable
	// elements (functions, methods, classes), in [0, 1].
	DocumentationCoverage float64 `json:"documentation_coverage"`

	// PerElement holds metrics for every element, sorted by ID.
	PerElement []ElementMetrics `json:"per_element"`
}

// Options configures the metrics engine.
type Options struct {
	// MediumComplexity is the lower bound of the medium band. Default: 7.
	MediumComplexity float64

	// HighComplexity is the upper bound of the medium band; anything above
	// is high. Default: 10.
	HighComplexity float64
}

// DefaultOptions returns the default thresholds.
func DefaultOptions() Options {
	return Options{
		MediumComplexity: DefaultMediumComplexity,
		HighComplexity:   DefaultHighComplexity,
	}
}

// Option is a functional option for configuring the Engine.
type Option func(*Options)

// WithComplexityThresholds sets the medium and high band boundaries.
func WithComplexityThresholds(medium, high float64) Option {
	return func(o *Options) {
		if medium > 0 && high >= medium {
			o.MediumComplexity = medium
			o.HighComplexity = high
		}
	}
}

// Engine computes metrics over a frozen graph.
//
// Thread Safety:
//
//	Engine is stateless after construction and safe for concurrent use.
type Engine struct {
	options Options
}

// NewEngine creates a metrics engine.
func NewEngine(opts ...Option) *Engine {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Engine{options: options}
}

// Annotate writes ComplexityScore on every element.
//
// Description:
//
//	ComplexityScore = 1 + DecisionPoints, the standard cyclomatic count.
//	This is the single sanctioned mutation of elements after extraction;
//	call it exactly once, before any reader consumes the scores.
func (e *Engine) Annotate(elements []*ast.Element) {
	for _, elem := range elements {
		elem.ComplexityScore = 1 + float64(elem.DecisionPoints)
	}
}

// Compute builds the graph-wide metrics snapshot.
//
// Inputs:
//   - g: A frozen graph whose elements have been annotated.
//
// Outputs:
//   - Snapshot: Deterministic (PerElement sorted by ID).
func (e *Engine) Compute(g *graph.Graph) Snapshot {
	elements := g.Elements()
	sort.Slice(elements, func(i, j int) bool {
		return elements[i].ID < elements[j].ID
	})

	snap := Snapshot{
		TotalElements:          len(elements),
		TotalRelationships:     g.RelationCount(),
		ComplexityDistribution: map[ComplexityBand]int{BandLow: 0, BandMedium: 0, BandHigh: 0},
		LanguageDistribution:   make(map[string]int),
		PerElement:             make([]ElementMetrics, 0, len(elements)),
	}

	var (
		complexitySum   float64
		callableCount   int
		documentable    int
		documentedCount int
	)

	for _, elem := range elements {
		snap.LanguageDistribution[elem.Language]++

		inDegree := 0
		outDegree := 0
		for _, kind := range graph.AllRelationKinds {
			inDegree += g.InDegree(elem.ID, kind)
			outDegree += g.OutDegree(elem.ID, kind)
		}

		em := ElementMetrics{
			ID:         elem.ID,
			Name:       elem.Name,
			Kind:       elem.Kind,
			FilePath:   elem.FilePath,
			Complexity: elem.ComplexityScore,
			Band:       e.band(elem.ComplexityScore),
			Lines:      elem.EndLine - elem.StartLine + 1,
			InDegree:   inDegree,
			OutDegree:  outDegree,
			Documented: elem.Documentation != "",
		}
		em.Maintainability = maintainability(em.Complexity, em.Lines, em.Documented)
		em.Hotspot = em.Band == BandHigh && inDegree > 0

		if callable(elem.Kind) {
			callableCount++
			complexitySum += elem.ComplexityScore
			if elem.ComplexityScore > snap.MaxComplexity {
				snap.MaxComplexity = elem.ComplexityScore
			}
			snap.ComplexityDistribution[em.Band]++
		}
		if documentableKind(elem.Kind) {
			documentable++
			if em.Documented {
				documentedCount++
			}
		}

		snap.PerElement = append(snap.PerElement, em)
	}

	if callableCount > 0 {
		snap.AverageComplexity = complexitySum / float64(callableCount)
	}
	if documentable > 0 {
		snap.DocumentationCoverage = float64(documentedCount) / float64(documentable)
	}

	return snap
}

// band classifies a complexity score.
func (e *Engine) band(complexity float64) ComplexityBand {
	switch {
	case complexity > e.options.HighComplexity:
		return BandHigh
	case complexity >= e.options.MediumComplexity:
		return BandMedium
	default:
		return BandLow
	}
}

// callable reports whether complexity is meaningful for the kind.
func callable(kind ast.ElementKind) bool {
	return kind == ast.ElementKindFunction || kind == ast.ElementKindMethod
}

// documentableKind reports whether the kind is expected to carry docs.
func documentableKind(kind ast.ElementKind) bool {
	return kind == ast.ElementKindFunction || kind == ast.ElementKindMethod ||
		kind == ast.ElementKindClass
}

// maintainability is a normalized [0, 100] score. Complexity and length
// lower it; documentation raises it slightly. The shape follows the usual
// maintainability-index curve without the Halstead volume term, which
// name-level extraction cannot supply.
func maintainability(complexity float64, lines int, documented bool) float64 {
	if lines < 1 {
		lines = 1
	}
	score := 100 - 4*(complexity-1) - 10*math.Log(float64(lines))
	if documented {
		score += 5
	}
	return math.Max(0, math.Min(100, score))
}
