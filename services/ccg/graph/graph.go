// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph holds the code context graph: an arena of code elements plus
// typed, confidence-scored relationship edges with forward and reverse
// adjacency indexes per kind.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
)

// Default graph capacity limits.
const (
	// DefaultMaxElements is the default maximum number of elements (1M).
	DefaultMaxElements = 1_000_000

	// DefaultMaxRelations is the default maximum number of edges (10M).
	DefaultMaxRelations = 10_000_000
)

// Sentinel errors returned by graph mutation.
var (
	// ErrGraphFrozen indicates a mutation was attempted after Freeze.
	ErrGraphFrozen = errors.New("graph is frozen")

	// ErrUnknownElement indicates an edge referenced an element ID that is
	// not in the arena. Edges never dangle; the resolver must drop
	// unresolved references instead of adding them.
	ErrUnknownElement = errors.New("unknown element")

	// ErrMaxElementsExceeded indicates the element arena is at capacity.
	ErrMaxElementsExceeded = errors.New("maximum element count exceeded")

	// ErrMaxRelationsExceeded indicates the edge list is at capacity.
	ErrMaxRelationsExceeded = errors.New("maximum relationship count exceeded")
)

// GraphOptions configures Graph capacity limits.
type GraphOptions struct {
	// MaxElements is the maximum number of elements. Default: 1,000,000.
	MaxElements int

	// MaxRelations is the maximum number of edges. Default: 10,000,000.
	MaxRelations int
}

// DefaultGraphOptions returns the default options.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxElements:  DefaultMaxElements,
		MaxRelations: DefaultMaxRelations,
	}
}

// GraphOption is a functional option for configuring a Graph.
type GraphOption func(*GraphOptions)

// WithMaxElements sets the maximum number of elements.
func WithMaxElements(n int) GraphOption {
	return func(o *GraphOptions) {
		if n > 0 {
			o.MaxElements = n
		}
	}
}

// WithMaxRelations sets the maximum number of relationship edges.
func WithMaxRelations(n int) GraphOption {
	return func(o *GraphOptions) {
		if n > 0 {
			o.MaxRelations = n
		}
	}
}

// Graph is the code context graph.
//
// Description:
//
//	Elements live in an arena keyed by ID; relationships are stored once in
//	insertion order and indexed by kind in forward (FromID → edges) and
//	reverse (ToID → edges) adjacency maps. The graph has two states:
//	building (mutable, single producer) and frozen (immutable, safe for
//	concurrent readers). Duplicate edges (same from, to, kind) are
//	suppressed, keeping the occurrence with the higher confidence.
//
// Thread Safety:
//
//	Mutations are serialized internally; reads on a frozen graph are safe
//	for unlimited concurrency.
type Graph struct {
	mu sync.RWMutex

	// ProjectRoot is the analyzed project root, recorded for provenance.
	ProjectRoot string

	// BuiltAtMilli is the Unix timestamp in milliseconds when the graph was
	// frozen.
	BuiltAtMilli int64

	elements  map[string]*ast.Element
	relations []Relationship

	// byKey maps dedupeKey → index into relations, for duplicate suppression.
	byKey map[string]int

	// forward and reverse are per-kind adjacency indexes holding indices
	// into relations.
	forward map[RelationKind]map[string][]int
	reverse map[RelationKind]map[string][]int

	// byName maps element name → IDs, for name-based queries.
	byName map[string][]string

	frozen  bool
	options GraphOptions
}

// NewGraph creates a new empty graph in building state.
func NewGraph(projectRoot string, opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	g := &Graph{
		ProjectRoot: projectRoot,
		elements:    make(map[string]*ast.Element),
		byKey:       make(map[string]int),
		forward:     make(map[RelationKind]map[string][]int, len(AllRelationKinds)),
		reverse:     make(map[RelationKind]map[string][]int, len(AllRelationKinds)),
		byName:      make(map[string][]string),
		options:     options,
	}
	for _, kind := range AllRelationKinds {
		g.forward[kind] = make(map[string][]int)
		g.reverse[kind] = make(map[string][]int)
	}
	return g
}

// AddElement adds an element to the arena.
//
// Outputs:
//
//	error - ErrGraphFrozen, ErrMaxElementsExceeded, or a validation error.
//	        Adding the same ID twice is an error; element IDs are
//	        deterministic and the builder adds each exactly once.
func (g *Graph) AddElement(elem *ast.Element) error {
	if err := elem.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return ErrGraphFrozen
	}
	if len(g.elements) >= g.options.MaxElements {
		return ErrMaxElementsExceeded
	}
	if _, exists := g.elements[elem.ID]; exists {
		return fmt.Errorf("duplicate element %s", elem.ID)
	}

	g.elements[elem.ID] = elem
	g.byName[elem.Name] = append(g.byName[elem.Name], elem.ID)
	return nil
}

// AddRelation adds a relationship edge.
//
// Description:
//
//	Both endpoints must already be in the arena; an edge to a missing
//	element fails with ErrUnknownElement. A duplicate of an existing edge
//	(same from, to, kind) is not added; instead the stored edge keeps the
//	maximum of the two confidences.
//
// Outputs:
//
//	error - ErrGraphFrozen, ErrUnknownElement, ErrMaxRelationsExceeded, or
//	        a validation error.
func (g *Graph) AddRelation(rel Relationship) error {
	if err := rel.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return ErrGraphFrozen
	}
	if _, ok := g.elements[rel.FromID]; !ok {
		return fmt.Errorf("%w: from %s", ErrUnknownElement, rel.FromID)
	}
	if _, ok := g.elements[rel.ToID]; !ok {
		return fmt.Errorf("%w: to %s", ErrUnknownElement, rel.ToID)
	}

	key := rel.dedupeKey()
	if i, exists := g.byKey[key]; exists {
		if rel.Confidence > g.relations[i].Confidence {
			g.relations[i].Confidence = rel.Confidence
		}
		return nil
	}

	if len(g.relations) >= g.options.MaxRelations {
		return ErrMaxRelationsExceeded
	}

	i := len(g.relations)
	g.relations = append(g.relations, rel)
	g.byKey[key] = i
	g.forward[rel.Kind][rel.FromID] = append(g.forward[rel.Kind][rel.FromID], i)
	g.reverse[rel.Kind][rel.ToID] = append(g.reverse[rel.Kind][rel.ToID], i)
	return nil
}

// Freeze transitions the graph to the immutable read-only state. Freezing
// an already frozen graph is a no-op.
func (g *Graph) Freeze() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.frozen {
		return
	}
	g.frozen = true
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// Frozen reports whether the graph is in the read-only state.
func (g *Graph) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frozen
}

// Element retrieves an element by ID.
func (g *Graph) Element(id string) (*ast.Element, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	elem, ok := g.elements[id]
	return elem, ok
}

// ElementsByName retrieves all elements with the given name.
func (g *Graph) ElementsByName(name string) []*ast.Element {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.byName[name]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*ast.Element, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.elements[id])
	}
	return out
}

// Elements returns every element, in unspecified order.
func (g *Graph) Elements() []*ast.Element {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*ast.Element, 0, len(g.elements))
	for _, elem := range g.elements {
		out = append(out, elem)
	}
	return out
}

// Outgoing returns the edges of the given kind leaving the element.
func (g *Graph) Outgoing(id string, kind RelationKind) []Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collect(g.forward[kind][id])
}

// Incoming returns the edges of the given kind arriving at the element.
func (g *Graph) Incoming(id string, kind RelationKind) []Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collect(g.reverse[kind][id])
}

// OutgoingAll returns all edges leaving the element, across kinds.
func (g *Graph) OutgoingAll(id string) []Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Relationship
	for _, kind := range AllRelationKinds {
		out = append(out, g.collect(g.forward[kind][id])...)
	}
	return out
}

// IncomingAll returns all edges arriving at the element, across kinds.
func (g *Graph) IncomingAll(id string) []Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Relationship
	for _, kind := range AllRelationKinds {
		out = append(out, g.collect(g.reverse[kind][id])...)
	}
	return out
}

// InDegree returns the number of incoming edges of the given kind.
func (g *Graph) InDegree(id string, kind RelationKind) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.reverse[kind][id])
}

// OutDegree returns the number of outgoing edges of the given kind.
func (g *Graph) OutDegree(id string, kind RelationKind) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.forward[kind][id])
}

// Relations returns a copy of all edges in insertion order.
func (g *Graph) Relations() []Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Relationship, len(g.relations))
	copy(out, g.relations)
	return out
}

// ElementCount returns the number of elements in the arena.
func (g *Graph) ElementCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.elements)
}

// RelationCount returns the number of relationship edges.
func (g *Graph) RelationCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.relations)
}

// Hash returns a deterministic hex digest of the graph structure. Two
// graphs built from the same elements and edges hash identically regardless
// of insertion order.
func (g *Graph) Hash() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.elements))
	for id := range g.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	keys := make([]string, 0, len(g.relations))
	for i := range g.relations {
		keys = append(keys, g.relations[i].dedupeKey())
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, key := range keys {
		h.Write([]byte(key))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// collect materializes relationship values from edge indices. Caller must
// hold at least a read lock.
func (g *Graph) collect(indices []int) []Relationship {
	if len(indices) == 0 {
		return nil
	}
	out := make([]Relationship, 0, len(indices))
	for _, i := range indices {
		out = append(out, g.relations[i])
	}
	return out
}
