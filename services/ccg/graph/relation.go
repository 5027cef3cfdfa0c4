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

	"github.com/AleutianAI/codegraph/services/ccg/ast"
)

// RelationKind classifies a relationship edge.
type RelationKind string

// Relationship kinds. The set mirrors ast.ReferenceKind: every resolved
// reference candidate becomes an edge of the matching kind.
const (
	RelationCalls           RelationKind = "calls"
	RelationImports         RelationKind = "imports"
	RelationInherits        RelationKind = "inherits"
	RelationUsesVariable    RelationKind = "uses_variable"
	RelationAccessAttribute RelationKind = "accesses_attribute"
)

// AllRelationKinds lists every valid relation kind, in stable order.
var AllRelationKinds = []RelationKind{
	RelationCalls,
	RelationImports,
	RelationInherits,
	RelationUsesVariable,
	RelationAccessAttribute,
}

// Valid reports whether k is a known relation kind.
func (k RelationKind) Valid() bool {
	switch k {
	case RelationCalls, RelationImports, RelationInherits,
		RelationUsesVariable, RelationAccessAttribute:
		return true
	}
	return false
}

// KindFromReference maps a reference kind to its relation kind.
func KindFromReference(rk ast.ReferenceKind) (RelationKind, bool) {
	k := RelationKind(rk)
	return k, k.Valid()
}

// Relationship is a directed, confidence-scored edge between two elements.
//
// Description:
//
//	Both endpoints always exist in the graph's element arena: unresolved
//	references are dropped during resolution with a diagnostic, never
//	represented as edges to placeholder nodes.
type Relationship struct {
	// FromID and ToID reference elements in the graph. Self-edges are legal
	// (recursion); cycles are legal and expected.
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`

	// Kind classifies the edge.
	Kind RelationKind `json:"kind"`

	// Confidence is the resolution confidence in (0.0, 1.0]. A unique
	// resolution keeps the kind's base confidence; N candidates divide it
	// by N.
	Confidence float64 `json:"confidence"`

	// Context is a short source snippet of the reference site.
	Context string `json:"context,omitempty"`

	// Location is where the relationship is expressed in code.
	Location ast.Location `json:"location"`
}

// Validate checks the relationship's structural invariants.
func (r *Relationship) Validate() error {
	if r == nil {
		return fmt.Errorf("relationship must not be nil")
	}
	if r.FromID == "" || r.ToID == "" {
		return fmt.Errorf("relationship %s->%s: missing endpoint", r.FromID, r.ToID)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("relationship %s->%s: invalid kind %q", r.FromID, r.ToID, r.Kind)
	}
	if r.Confidence <= 0 || r.Confidence > 1 {
		return fmt.Errorf("relationship %s->%s: confidence %f out of range (0,1]",
			r.FromID, r.ToID, r.Confidence)
	}
	return nil
}

// dedupeKey identifies an edge for duplicate suppression. Two references to
// the same target from the same element collapse into one edge.
func (r *Relationship) dedupeKey() string {
	return r.FromID + "|" + r.ToID + "|" + string(r.Kind)
}
