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
	"fmt"
	"sort"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
)

// GraphSchemaVersion is the version of the serialization schema.
// Increment when the serialization format changes in a breaking way.
const GraphSchemaVersion = "1.0"

// SerializableGraph is the JSON-serializable representation of a Graph.
//
// Description:
//
//	Contains all data needed to reconstruct a Graph from JSON. Elements are
//	sorted by ID and edges by (from, to, kind) for deterministic output,
//	enabling reliable diffing and content hashing.
//
// Thread Safety: SerializableGraph is a value type with no internal state.
type SerializableGraph struct {
	// SchemaVersion identifies the serialization format version.
	SchemaVersion string `json:"schema_version"`

	// ProjectRoot is the analyzed project root directory.
	ProjectRoot string `json:"project_root"`

	// BuiltAtMilli is the Unix timestamp in milliseconds when the graph was
	// frozen.
	BuiltAtMilli int64 `json:"built_at_milli"`

	// GraphHash is the deterministic hash of the graph structure.
	GraphHash string `json:"graph_hash"`

	// Elements contains all elements, sorted by ID.
	Elements []*ast.Element `json:"elements"`

	// Relationships contains all edges, sorted by (from, to, kind).
	Relationships []Relationship `json:"relationships"`
}

// ToSerializable converts a Graph to its JSON-serializable representation.
//
// Complexity:
//
//	O(V log V + E log E). Sorting dominates.
//
// Thread Safety:
//
//	Safe for concurrent use on frozen graphs.
func (g *Graph) ToSerializable() *SerializableGraph {
	if g == nil {
		return &SerializableGraph{
			SchemaVersion: GraphSchemaVersion,
			Elements:      []*ast.Element{},
			Relationships: []Relationship{},
		}
	}

	elements := g.Elements()
	sort.Slice(elements, func(i, j int) bool {
		return elements[i].ID < elements[j].ID
	})

	relationships := g.Relations()
	sort.Slice(relationships, func(i, j int) bool {
		if relationships[i].FromID != relationships[j].FromID {
			return relationships[i].FromID < relationships[j].FromID
		}
		if relationships[i].ToID != relationships[j].ToID {
			return relationships[i].ToID < relationships[j].ToID
		}
		return relationships[i].Kind < relationships[j].Kind
	})

	return &SerializableGraph{
		SchemaVersion: GraphSchemaVersion,
		ProjectRoot:   g.ProjectRoot,
		BuiltAtMilli:  g.BuiltAtMilli,
		GraphHash:     g.Hash(),
		Elements:      elements,
		Relationships: relationships,
	}
}

// FromSerializable reconstructs a Graph from its serializable representation.
//
// Description:
//
//	Creates a new Graph in building state, replays AddElement and
//	AddRelation for every entry so all adjacency indexes are rebuilt
//	through the normal construction path, then freezes it. The original
//	BuiltAtMilli is restored.
//
// Outputs:
//
//	*Graph - The reconstructed graph in read-only state.
//	error - Non-nil if sg is nil, the schema version is unsupported, or any
//	        element or edge fails to add.
func FromSerializable(sg *SerializableGraph, opts ...GraphOption) (*Graph, error) {
	if sg == nil {
		return nil, fmt.Errorf("serializable graph must not be nil")
	}
	if sg.SchemaVersion != GraphSchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %q (expected %q)",
			sg.SchemaVersion, GraphSchemaVersion)
	}

	g := NewGraph(sg.ProjectRoot, opts...)

	for i, elem := range sg.Elements {
		if err := g.AddElement(elem); err != nil {
			return nil, fmt.Errorf("adding element %d: %w", i, err)
		}
	}
	for i, rel := range sg.Relationships {
		if err := g.AddRelation(rel); err != nil {
			return nil, fmt.Errorf("adding relationship %d (%s -> %s): %w",
				i, rel.FromID, rel.ToID, err)
		}
	}

	g.Freeze()
	g.BuiltAtMilli = sg.BuiltAtMilli

	return g, nil
}
