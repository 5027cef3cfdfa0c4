// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
	"github.com/AleutianAI/codegraph/services/ccg/graph"
)

func element(name string, kind ast.ElementKind, decisions int, doc string) *ast.Element {
	return &ast.Element{
		ID:             ast.GenerateID("a.py", 1+decisions, name),
		Name:           name,
		Kind:           kind,
		FilePath:       "a.py",
		StartLine:      1,
		EndLine:        10,
		Language:       "python",
		DecisionPoints: decisions,
		Documentation:  doc,
	}
}

func TestEngine_AnnotateComplexity(t *testing.T) {
	engine := NewEngine()
	elems := []*ast.Element{
		element("straight", ast.ElementKindFunction, 0, ""),
		element("branchy", ast.ElementKindFunction, 11, ""),
	}
	engine.Annotate(elems)

	assert.Equal(t, 1.0, elems[0].ComplexityScore, "no branches means complexity 1")
	assert.Equal(t, 12.0, elems[1].ComplexityScore)
}

func TestEngine_Snapshot(t *testing.T) {
	simple := element("simple", ast.ElementKindFunction, 0, "documented")
	medium := element("medium", ast.ElementKindFunction, 7, "")
	hairy := element("hairy", ast.ElementKindMethod, 14, "")
	class := element("Thing", ast.ElementKindClass, 0, "")

	g := graph.NewGraph("")
	for _, e := range []*ast.Element{simple, medium, hairy, class} {
		require.NoError(t, g.AddElement(e))
	}
	require.NoError(t, g.AddRelation(graph.Relationship{
		FromID: simple.ID, ToID: hairy.ID, Kind: graph.RelationCalls, Confidence: 0.9,
	}))
	g.Freeze()

	engine := NewEngine()
	engine.Annotate(g.Elements())
	snap := engine.Compute(g)

	assert.Equal(t, 4, snap.TotalElements)
	assert.Equal(t, 1, snap.TotalRelationships)
	assert.Equal(t, 4, snap.LanguageDistribution["python"])

	t.Run("complexity bands", func(t *testing.T) {
		assert.Equal(t, 1, snap.ComplexityDistribution[BandLow])
		assert.Equal(t, 1, snap.ComplexityDistribution[BandMedium], "complexity 8 is medium")
		assert.Equal(t, 1, snap.ComplexityDistribution[BandHigh], "complexity 15 is high")
	})

	t.Run("aggregates cover callables only", func(t *testing.T) {
		assert.Equal(t, 15.0, snap.MaxComplexity)
		assert.InDelta(t, (1.0+8.0+15.0)/3, snap.AverageComplexity, 1e-9)
	})

	t.Run("documentation coverage", func(t *testing.T) {
		// simple documented; medium, hairy, Thing not: 1 of 4 documentable.
		assert.InDelta(t, 0.25, snap.DocumentationCoverage, 1e-9)
	})

	t.Run("hotspot needs high complexity and callers", func(t *testing.T) {
		byName := make(map[string]ElementMetrics)
		for _, em := range snap.PerElement {
			byName[em.Name] = em
		}
		assert.True(t, byName["hairy"].Hotspot, "high complexity with one caller")
		assert.False(t, byName["medium"].Hotspot)
		assert.False(t, byName["simple"].Hotspot)
	})

	t.Run("maintainability bounded", func(t *testing.T) {
		for _, em := range snap.PerElement {
			assert.GreaterOrEqual(t, em.Maintainability, 0.0)
			assert.LessOrEqual(t, em.Maintainability, 100.0)
		}
	})
}

func TestEngine_CustomThresholds(t *testing.T) {
	engine := NewEngine(WithComplexityThresholds(3, 5))
	assert.Equal(t, BandLow, engine.band(2))
	assert.Equal(t, BandMedium, engine.band(3))
	assert.Equal(t, BandMedium, engine.band(5))
	assert.Equal(t, BandHigh, engine.band(6))
}

func TestEngine_EmptyGraph(t *testing.T) {
	g := graph.NewGraph("")
	g.Freeze()

	snap := NewEngine().Compute(g)
	assert.Zero(t, snap.TotalElements)
	assert.Zero(t, snap.AverageComplexity)
	assert.Zero(t, snap.DocumentationCoverage)
	assert.Empty(t, snap.PerElement)
}
