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
	"encoding/json"
	"testing"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
)

func buildTestGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph("/proj")
	foo := testElement("a.py", 1, "foo", ast.ElementKindFunction)
	bar := testElement("b.py", 1, "bar", ast.ElementKindFunction)
	base := testElement("b.py", 10, "Base", ast.ElementKindClass)

	for _, e := range []*ast.Element{foo, bar, base} {
		if err := g.AddElement(e); err != nil {
			t.Fatalf("AddElement: %v", err)
		}
	}
	if err := g.AddRelation(callEdge(foo, bar, 0.9)); err != nil {
		t.Fatalf("AddRelation: %v", err)
	}
	if err := g.AddRelation(Relationship{
		FromID: foo.ID, ToID: base.ID, Kind: RelationUsesVariable, Confidence: 0.7,
	}); err != nil {
		t.Fatalf("AddRelation: %v", err)
	}
	g.Freeze()
	return g
}

func TestSerialization_RoundTrip(t *testing.T) {
	g := buildTestGraph(t)

	data, err := json.Marshal(g.ToSerializable())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var sg SerializableGraph
	if err := json.Unmarshal(data, &sg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	restored, err := FromSerializable(&sg)
	if err != nil {
		t.Fatalf("FromSerializable: %v", err)
	}

	if !restored.Frozen() {
		t.Error("restored graph should be frozen")
	}
	if restored.ElementCount() != g.ElementCount() {
		t.Errorf("ElementCount = %d, want %d", restored.ElementCount(), g.ElementCount())
	}
	if restored.RelationCount() != g.RelationCount() {
		t.Errorf("RelationCount = %d, want %d", restored.RelationCount(), g.RelationCount())
	}
	if restored.Hash() != g.Hash() {
		t.Error("restored graph hash differs")
	}
	if restored.BuiltAtMilli != g.BuiltAtMilli {
		t.Error("BuiltAtMilli not preserved")
	}

	// The restored graph answers adjacency queries identically.
	for _, elem := range g.Elements() {
		for _, kind := range AllRelationKinds {
			if got, want := len(restored.Outgoing(elem.ID, kind)), len(g.Outgoing(elem.ID, kind)); got != want {
				t.Errorf("Outgoing(%s, %s) = %d, want %d", elem.Name, kind, got, want)
			}
			if got, want := restored.InDegree(elem.ID, kind), g.InDegree(elem.ID, kind); got != want {
				t.Errorf("InDegree(%s, %s) = %d, want %d", elem.Name, kind, got, want)
			}
		}
	}
}

func TestSerialization_Deterministic(t *testing.T) {
	sg := buildTestGraph(t).ToSerializable()

	for i := 1; i < len(sg.Elements); i++ {
		if sg.Elements[i-1].ID >= sg.Elements[i].ID {
			t.Fatal("elements not sorted by ID")
		}
	}
	for i := 1; i < len(sg.Relationships); i++ {
		prev, cur := sg.Relationships[i-1], sg.Relationships[i]
		if prev.FromID > cur.FromID {
			t.Fatal("relationships not sorted")
		}
	}
	if sg.SchemaVersion != GraphSchemaVersion {
		t.Errorf("schema version = %q", sg.SchemaVersion)
	}
	if sg.GraphHash == "" {
		t.Error("missing graph hash")
	}
}

func TestFromSerializable_RejectsBadSchema(t *testing.T) {
	sg := buildTestGraph(t).ToSerializable()
	sg.SchemaVersion = "99.0"
	if _, err := FromSerializable(sg); err == nil {
		t.Error("expected schema version mismatch error")
	}
}

func TestFromSerializable_NilInput(t *testing.T) {
	if _, err := FromSerializable(nil); err == nil {
		t.Error("expected error for nil input")
	}
}
