// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
)

var builderTracer = otel.Tracer("ccg.graph")

// EdgeError records a relationship that could not be added to the graph.
// Edge errors are accumulated, never fatal: a bad edge costs one edge, not
// the build.
type EdgeError struct {
	FromID string
	ToID   string
	Kind   RelationKind
	Err    error
}

// Error implements the error interface.
func (e EdgeError) Error() string {
	return fmt.Sprintf("edge %s -> %s (%s): %v", e.FromID, e.ToID, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e EdgeError) Unwrap() error {
	return e.Err
}

// BuildStats summarizes a build.
type BuildStats struct {
	// Elements is the number of elements added to the arena.
	Elements int

	// Relations is the number of edges added (after deduplication).
	Relations int

	// EdgeErrors lists edges that failed to add.
	EdgeErrors []EdgeError

	// Cycles is the number of non-trivial strongly connected components
	// found among calls and imports edges. Informational only: cycles are
	// legal graph states.
	Cycles int

	// Duration is the wall-clock build time.
	Duration time.Duration
}

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// ProjectRoot is recorded on the built graph for provenance.
	ProjectRoot string

	// MaxElements and MaxRelations are passed to the Graph.
	MaxElements  int
	MaxRelations int

	// DetectCycles enables the strongly-connected-component pass over calls
	// and imports edges after the graph is frozen. Default: true.
	DetectCycles bool
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		MaxElements:  DefaultMaxElements,
		MaxRelations: DefaultMaxRelations,
		DetectCycles: true,
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithProjectRoot sets the project root recorded on built graphs.
func WithProjectRoot(root string) BuilderOption {
	return func(o *BuilderOptions) {
		o.ProjectRoot = root
	}
}

// WithBuilderMaxElements sets the maximum number of elements.
func WithBuilderMaxElements(n int) BuilderOption {
	return func(o *BuilderOptions) {
		if n > 0 {
			o.MaxElements = n
		}
	}
}

// WithBuilderMaxRelations sets the maximum number of edges.
func WithBuilderMaxRelations(n int) BuilderOption {
	return func(o *BuilderOptions) {
		if n > 0 {
			o.MaxRelations = n
		}
	}
}

// WithCycleDetection toggles the SCC diagnostic pass.
func WithCycleDetection(enabled bool) BuilderOption {
	return func(o *BuilderOptions) {
		o.DetectCycles = enabled
	}
}

// Builder assembles frozen graphs from elements and resolved relationships.
//
// The builder is stateless and reusable; each Build call produces an
// independent graph.
//
// Thread Safety:
//
//	Builder is safe for concurrent use.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder.
//
// Example:
//
//	builder := NewBuilder(WithProjectRoot("/path/to/project"))
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{options: options}
}

// Build assembles and freezes a graph.
//
// Description:
//
//	Adds every element to the arena, then every relationship. Element
//	failures are fatal (they indicate a bug upstream: elements were already
//	validated at extraction); relationship failures are accumulated as
//	EdgeErrors and the build continues. The returned graph is frozen.
//
// Inputs:
//   - ctx: Checked between phases.
//   - elements: The full element arena, typically index.All().
//   - relations: Resolved relationships. Both endpoints must be in elements.
//
// Outputs:
//   - *Graph: The frozen graph. Nil only when err is non-nil.
//   - BuildStats: Counts, edge errors, and cycle diagnostics.
//   - error: Fatal build failure (bad element, capacity, cancellation).
func (b *Builder) Build(ctx context.Context, elements []*ast.Element, relations []Relationship) (*Graph, BuildStats, error) {
	ctx, span := builderTracer.Start(ctx, "graph.Builder.Build",
		trace.WithAttributes(
			attribute.Int("ccg.elements", len(elements)),
			attribute.Int("ccg.relations", len(relations)),
		))
	defer span.End()

	start := time.Now()
	stats := BuildStats{}

	g := NewGraph(b.options.ProjectRoot,
		WithMaxElements(b.options.MaxElements),
		WithMaxRelations(b.options.MaxRelations))

	for _, elem := range elements {
		if err := g.AddElement(elem); err != nil {
			return nil, stats, fmt.Errorf("adding element %s: %w", elem.ID, err)
		}
	}
	stats.Elements = g.ElementCount()

	if err := ctx.Err(); err != nil {
		return nil, stats, fmt.Errorf("build canceled after elements: %w", err)
	}

	for _, rel := range relations {
		if err := g.AddRelation(rel); err != nil {
			stats.EdgeErrors = append(stats.EdgeErrors, EdgeError{
				FromID: rel.FromID,
				ToID:   rel.ToID,
				Kind:   rel.Kind,
				Err:    err,
			})
		}
	}
	stats.Relations = g.RelationCount()

	if err := ctx.Err(); err != nil {
		return nil, stats, fmt.Errorf("build canceled after relations: %w", err)
	}

	g.Freeze()

	if b.options.DetectCycles {
		stats.Cycles = countCycles(g)
		if stats.Cycles > 0 {
			slog.Debug("dependency cycles present",
				slog.Int("cycles", stats.Cycles))
		}
	}

	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("ccg.edges_added", stats.Relations),
		attribute.Int("ccg.edge_errors", len(stats.EdgeErrors)),
		attribute.Int("ccg.cycles", stats.Cycles),
	)

	if len(stats.EdgeErrors) > 0 {
		slog.Warn("graph built with edge errors",
			slog.Int("edge_errors", len(stats.EdgeErrors)),
			slog.Int("edges", stats.Relations))
	}

	return g, stats, nil
}

// countCycles returns the number of non-trivial strongly connected
// components over the calls and imports subgraph, using an iterative
// Tarjan's algorithm. Self-loops count as cycles.
func countCycles(g *Graph) int {
	// Adjacency over calls+imports only; uses_variable and attribute edges
	// do not express dependency ordering.
	adj := make(map[string][]string)
	for _, rel := range g.Relations() {
		if rel.Kind != RelationCalls && rel.Kind != RelationImports {
			continue
		}
		adj[rel.FromID] = append(adj[rel.FromID], rel.ToID)
	}

	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	cycles := 0

	type frame struct {
		node string
		next int
	}

	strongconnect := func(root string) {
		frames := []frame{{node: root}}
		indices[root] = index
		lowlink[root] = index
		index++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			neighbors := adj[f.node]

			advanced := false
			for f.next < len(neighbors) {
				w := neighbors[f.next]
				f.next++
				if _, seen := indices[w]; !seen {
					indices[w] = index
					lowlink[w] = index
					index++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{node: w})
					advanced = true
					break
				}
				if onStack[w] && indices[w] < lowlink[f.node] {
					lowlink[f.node] = indices[w]
				}
			}
			if advanced {
				continue
			}

			// f.node is complete: pop its SCC if it is a root.
			if lowlink[f.node] == indices[f.node] {
				size := 0
				selfLoop := false
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					size++
					if w == f.node {
						for _, n := range adj[w] {
							if n == w {
								selfLoop = true
							}
						}
						break
					}
				}
				if size > 1 || selfLoop {
					cycles++
				}
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[f.node] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[f.node]
				}
			}
		}
	}

	for node := range adj {
		if _, seen := indices[node]; !seen {
			strongconnect(node)
		}
	}
	return cycles
}
