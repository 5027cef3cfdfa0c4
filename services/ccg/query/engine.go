// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query answers structural questions over a frozen code context
// graph: dependencies, dependents, call graphs, inheritance trees, hotspots,
// and dead code candidates.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gobwas/glob"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
	"github.com/AleutianAI/codegraph/services/ccg/graph"
)

// Default query parameters.
const (
	// DefaultMaxDepth bounds call graph traversal.
	DefaultMaxDepth = 5

	// DefaultTopN is the default hotspot count.
	DefaultTopN = 10
)

// Sentinel errors returned by queries.
var (
	// ErrNotFound indicates no element with the requested name exists.
	ErrNotFound = errors.New("element not found")

	// ErrInvalidParams indicates a malformed query parameter.
	ErrInvalidParams = errors.New("invalid query parameters")
)

// ElementRef is a compact reference to an element in query results.
type ElementRef struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      ast.ElementKind `json:"kind"`
	FilePath  string          `json:"file_path"`
	StartLine int             `json:"start_line"`
}

func refOf(e *ast.Element) ElementRef {
	return ElementRef{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		FilePath:  e.FilePath,
		StartLine: e.StartLine,
	}
}

// Engine answers queries against one frozen graph.
//
// Thread Safety:
//
//	Engine only reads the frozen graph and is safe for concurrent use.
type Engine struct {
	g *graph.Graph
}

// NewEngine creates a query engine over a frozen graph. An empty graph is a
// valid input: every query answers with empty results rather than errors,
// except name lookups, which return ErrNotFound.
func NewEngine(g *graph.Graph) *Engine {
	return &Engine{g: g}
}

// DependencyInfo is one edge in a dependency or dependent listing.
type DependencyInfo struct {
	Element    ElementRef         `json:"element"`
	Relation   graph.RelationKind `json:"relation"`
	Confidence float64            `json:"confidence"`
}

// Dependencies lists everything the named element depends on.
//
// Description:
//
//	When several elements share the name, their outgoing edges are merged.
//	Duplicate (target, relation) pairs keep the highest confidence. Results
//	below minConfidence are filtered out, then sorted by confidence
//	descending with name ascending as the tiebreaker.
//
// Outputs:
//   - []DependencyInfo: May be empty for a known element with no edges.
//   - error: ErrNotFound when the name matches no element.
func (e *Engine) Dependencies(name string, minConfidence float64) ([]DependencyInfo, error) {
	sources, err := e.byName(name)
	if err != nil {
		return nil, err
	}

	var edges []graph.Relationship
	for _, src := range sources {
		edges = append(edges, e.g.OutgoingAll(src.ID)...)
	}
	return e.collectDeps(edges, minConfidence, func(rel graph.Relationship) string {
		return rel.ToID
	}), nil
}

// Dependents lists everything that depends on the named element: the
// reverse of Dependencies.
func (e *Engine) Dependents(name string, minConfidence float64) ([]DependencyInfo, error) {
	targets, err := e.byName(name)
	if err != nil {
		return nil, err
	}

	var edges []graph.Relationship
	for _, t := range targets {
		edges = append(edges, e.g.IncomingAll(t.ID)...)
	}
	return e.collectDeps(edges, minConfidence, func(rel graph.Relationship) string {
		return rel.FromID
	}), nil
}

// collectDeps dedupes, filters, and sorts dependency edges. endpoint picks
// which side of the edge is reported.
func (e *Engine) collectDeps(edges []graph.Relationship, minConfidence float64, endpoint func(graph.Relationship) string) []DependencyInfo {
	type key struct {
		id   string
		kind graph.RelationKind
	}
	best := make(map[key]float64)
	for _, rel := range edges {
		if rel.Confidence < minConfidence {
			continue
		}
		k := key{id: endpoint(rel), kind: rel.Kind}
		if rel.Confidence > best[k] {
			best[k] = rel.Confidence
		}
	}

	out := make([]DependencyInfo, 0, len(best))
	for k, confidence := range best {
		elem, ok := e.g.Element(k.id)
		if !ok {
			continue
		}
		out = append(out, DependencyInfo{
			Element:    refOf(elem),
			Relation:   k.kind,
			Confidence: confidence,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].Element.Name != out[j].Element.Name {
			return out[i].Element.Name < out[j].Element.Name
		}
		return out[i].Element.ID < out[j].Element.ID
	})
	return out
}

// CallNode is one element in a call graph, annotated with its shallowest
// distance from the roots.
type CallNode struct {
	Element ElementRef `json:"element"`
	Depth   int        `json:"depth"`
}

// CallEdge is one call in a call graph result.
type CallEdge struct {
	FromID     string  `json:"from_id"`
	ToID       string  `json:"to_id"`
	Confidence float64 `json:"confidence"`
}

// CallGraphResult holds the BFS expansion of calls edges from a root name.
type CallGraphResult struct {
	Roots []ElementRef `json:"roots"`
	Nodes []CallNode   `json:"nodes"`
	Edges []CallEdge   `json:"edges"`
}

// CallGraph expands outgoing calls edges breadth-first from every element
// with the given name, up to maxDepth hops.
//
// Description:
//
//	Each reachable element appears once, at its shallowest depth; cycles
//	terminate because visited elements are never re-expanded. maxDepth <= 0
//	uses DefaultMaxDepth.
func (e *Engine) CallGraph(name string, maxDepth int) (*CallGraphResult, error) {
	roots, err := e.byName(name)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	result := &CallGraphResult{}
	depth := make(map[string]int)

	var frontier []string
	for _, root := range roots {
		result.Roots = append(result.Roots, refOf(root))
		if _, seen := depth[root.ID]; !seen {
			depth[root.ID] = 0
			frontier = append(frontier, root.ID)
		}
	}

	for d := 0; d < maxDepth && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			for _, rel := range e.g.Outgoing(id, graph.RelationCalls) {
				result.Edges = append(result.Edges, CallEdge{
					FromID:     rel.FromID,
					ToID:       rel.ToID,
					Confidence: rel.Confidence,
				})
				if _, seen := depth[rel.ToID]; !seen {
					depth[rel.ToID] = d + 1
					next = append(next, rel.ToID)
				}
			}
		}
		frontier = next
	}

	for id, d := range depth {
		elem, ok := e.g.Element(id)
		if !ok {
			continue
		}
		result.Nodes = append(result.Nodes, CallNode{Element: refOf(elem), Depth: d})
	}
	sort.Slice(result.Nodes, func(i, j int) bool {
		if result.Nodes[i].Depth != result.Nodes[j].Depth {
			return result.Nodes[i].Depth < result.Nodes[j].Depth
		}
		return result.Nodes[i].Element.ID < result.Nodes[j].Element.ID
	})
	sort.Slice(result.Edges, func(i, j int) bool {
		if result.Edges[i].FromID != result.Edges[j].FromID {
			return result.Edges[i].FromID < result.Edges[j].FromID
		}
		return result.Edges[i].ToID < result.Edges[j].ToID
	})

	return result, nil
}

// InheritanceResult holds the ancestry and direct descendants of a class.
type InheritanceResult struct {
	// Class is the queried element (all same-named classes merge).
	Class []ElementRef `json:"class"`

	// Ancestors lists every transitive base class, all branches of multiple
	// inheritance included, sorted by name.
	Ancestors []ElementRef `json:"ancestors"`

	// Descendants lists the direct subclasses, sorted by name.
	Descendants []ElementRef `json:"descendants"`
}

// InheritanceTree reports the ancestors and direct descendants of the named
// class.
func (e *Engine) InheritanceTree(name string) (*InheritanceResult, error) {
	elems, err := e.byName(name)
	if err != nil {
		return nil, err
	}

	var classes []*ast.Element
	for _, elem := range elems {
		if elem.Kind == ast.ElementKindClass {
			classes = append(classes, elem)
		}
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: %q is not a class", ErrNotFound, name)
	}

	result := &InheritanceResult{}
	seen := make(map[string]bool)
	var frontier []string
	for _, c := range classes {
		result.Class = append(result.Class, refOf(c))
		seen[c.ID] = true
		frontier = append(frontier, c.ID)
	}

	// Ancestors: BFS upward over outgoing inherits edges.
	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			for _, rel := range e.g.Outgoing(id, graph.RelationInherits) {
				if seen[rel.ToID] {
					continue
				}
				seen[rel.ToID] = true
				if elem, ok := e.g.Element(rel.ToID); ok {
					result.Ancestors = append(result.Ancestors, refOf(elem))
					next = append(next, rel.ToID)
				}
			}
		}
		frontier = next
	}

	// Descendants: direct subclasses only, via reverse inherits edges.
	descSeen := make(map[string]bool)
	for _, c := range classes {
		for _, rel := range e.g.Incoming(c.ID, graph.RelationInherits) {
			if descSeen[rel.FromID] {
				continue
			}
			descSeen[rel.FromID] = true
			if elem, ok := e.g.Element(rel.FromID); ok {
				result.Descendants = append(result.Descendants, refOf(elem))
			}
		}
	}

	sortRefs(result.Ancestors)
	sortRefs(result.Descendants)
	return result, nil
}

// Hotspot is one entry in a hotspot ranking.
type Hotspot struct {
	Rank       int        `json:"rank"`
	Element    ElementRef `json:"element"`
	Complexity float64    `json:"complexity"`
	InDegree   int        `json:"in_degree"`
}

// Hotspots ranks elements by complexity, in-degree breaking ties.
//
// Description:
//
//	Every element kind participates in the ranking. Returns exactly
//	min(topN, element count) entries; asking for more hotspots than the
//	graph has elements is not an error. topN <= 0 uses DefaultTopN.
func (e *Engine) Hotspots(topN int) []Hotspot {
	if topN <= 0 {
		topN = DefaultTopN
	}

	var candidates []Hotspot
	for _, elem := range e.g.Elements() {
		inDegree := 0
		for _, kind := range graph.AllRelationKinds {
			inDegree += e.g.InDegree(elem.ID, kind)
		}
		candidates = append(candidates, Hotspot{
			Element:    refOf(elem),
			Complexity: elem.ComplexityScore,
			InDegree:   inDegree,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Complexity != candidates[j].Complexity {
			return candidates[i].Complexity > candidates[j].Complexity
		}
		if candidates[i].InDegree != candidates[j].InDegree {
			return candidates[i].InDegree > candidates[j].InDegree
		}
		return candidates[i].Element.ID < candidates[j].Element.ID
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

// DeadCode lists functions, methods, and variables that nothing calls or
// uses.
//
// Description:
//
//	An element is a dead code candidate when it has zero incoming calls and
//	uses_variable edges and its name matches no entry-point pattern.
//	Attribute accesses do not count as use, so dynamically invoked code is
//	a known false-positive source. Patterns use glob syntax ("main",
//	"Test*", "handle_*"). Results are sorted by file path then line.
//
// Outputs:
//   - []ElementRef: Dead code candidates. Name-based resolution makes this
//     a review list, not a deletion list.
//   - error: ErrInvalidParams when a pattern does not compile.
func (e *Engine) DeadCode(entryPatterns []string) ([]ElementRef, error) {
	globs := make([]glob.Glob, 0, len(entryPatterns))
	for _, pattern := range entryPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: bad entry pattern %q: %v", ErrInvalidParams, pattern, err)
		}
		globs = append(globs, g)
	}

	var out []ElementRef
	for _, elem := range e.g.Elements() {
		switch elem.Kind {
		case ast.ElementKindFunction, ast.ElementKindMethod, ast.ElementKindVariable:
		default:
			continue
		}

		entry := false
		for _, g := range globs {
			if g.Match(elem.Name) {
				entry = true
				break
			}
		}
		if entry {
			continue
		}

		if e.g.InDegree(elem.ID, graph.RelationCalls) > 0 ||
			e.g.InDegree(elem.ID, graph.RelationUsesVariable) > 0 {
			continue
		}
		out = append(out, refOf(elem))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].StartLine < out[j].StartLine
	})
	return out, nil
}

// byName looks up elements by name, mapping empty results to ErrNotFound.
func (e *Engine) byName(name string) ([]*ast.Element, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidParams)
	}
	elems := e.g.ElementsByName(name)
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return elems, nil
}

func sortRefs(refs []ElementRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].ID < refs[j].ID
	})
}
