// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
	"github.com/AleutianAI/codegraph/services/ccg/graph"
)

func element(filePath string, line int, name string, kind ast.ElementKind, complexity float64) *ast.Element {
	return &ast.Element{
		ID:              ast.GenerateID(filePath, line, name),
		Name:            name,
		Kind:            kind,
		FilePath:        filePath,
		StartLine:       line,
		EndLine:         line + 1,
		Language:        "python",
		Exported:        true,
		ComplexityScore: complexity,
	}
}

func edge(from, to *ast.Element, kind graph.RelationKind, confidence float64) graph.Relationship {
	return graph.Relationship{
		FromID:     from.ID,
		ToID:       to.ID,
		Kind:       kind,
		Confidence: confidence,
		Location:   from.Location(),
	}
}

// fixture: foo -> bar -> baz with a back edge baz -> foo (a call cycle),
// plus class B inheriting A, and an orphan function nothing touches.
func fixtureEngine(t *testing.T) (*Engine, map[string]*ast.Element) {
	t.Helper()
	elems := map[string]*ast.Element{
		"foo":    element("a.py", 1, "foo", ast.ElementKindFunction, 3),
		"bar":    element("a.py", 10, "bar", ast.ElementKindFunction, 12),
		"baz":    element("b.py", 1, "baz", ast.ElementKindFunction, 15),
		"orphan": element("b.py", 20, "orphan", ast.ElementKindFunction, 1),
		"A":      element("c.py", 1, "A", ast.ElementKindClass, 1),
		"B":      element("c.py", 10, "B", ast.ElementKindClass, 1),
		"main":   element("main.py", 1, "main", ast.ElementKindFunction, 1),
	}

	g := graph.NewGraph("/proj")
	for _, e := range elems {
		require.NoError(t, g.AddElement(e))
	}
	require.NoError(t, g.AddRelation(edge(elems["foo"], elems["bar"], graph.RelationCalls, 0.9)))
	require.NoError(t, g.AddRelation(edge(elems["bar"], elems["baz"], graph.RelationCalls, 0.45)))
	require.NoError(t, g.AddRelation(edge(elems["baz"], elems["foo"], graph.RelationCalls, 0.9)))
	require.NoError(t, g.AddRelation(edge(elems["B"], elems["A"], graph.RelationInherits, 0.95)))
	require.NoError(t, g.AddRelation(edge(elems["main"], elems["foo"], graph.RelationCalls, 0.9)))
	g.Freeze()

	return NewEngine(g), elems
}

func TestEngine_Dependencies(t *testing.T) {
	engine, elems := fixtureEngine(t)

	deps, err := engine.Dependencies("foo", 0)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, elems["bar"].ID, deps[0].Element.ID)
	assert.Equal(t, graph.RelationCalls, deps[0].Relation)
	assert.InDelta(t, 0.9, deps[0].Confidence, 1e-9)
}

func TestEngine_DependenciesThreshold(t *testing.T) {
	engine, _ := fixtureEngine(t)

	deps, err := engine.Dependencies("bar", 0.5)
	require.NoError(t, err)
	assert.Empty(t, deps, "bar->baz at 0.45 is below the threshold")

	deps, err = engine.Dependencies("bar", 0.4)
	require.NoError(t, err)
	assert.Len(t, deps, 1)
}

func TestEngine_Dependents(t *testing.T) {
	engine, elems := fixtureEngine(t)

	deps, err := engine.Dependents("foo", 0)
	require.NoError(t, err)
	require.Len(t, deps, 2, "baz and main both call foo")

	ids := []string{deps[0].Element.ID, deps[1].Element.ID}
	assert.Contains(t, ids, elems["baz"].ID)
	assert.Contains(t, ids, elems["main"].ID)
}

func TestEngine_DependenciesSorted(t *testing.T) {
	// One caller with edges at different confidences: sorted descending.
	caller := element("s.py", 1, "caller", ast.ElementKindFunction, 1)
	low := element("s.py", 10, "alpha", ast.ElementKindFunction, 1)
	high := element("s.py", 20, "zeta", ast.ElementKindFunction, 1)

	g := graph.NewGraph("")
	for _, e := range []*ast.Element{caller, low, high} {
		require.NoError(t, g.AddElement(e))
	}
	require.NoError(t, g.AddRelation(edge(caller, low, graph.RelationCalls, 0.45)))
	require.NoError(t, g.AddRelation(edge(caller, high, graph.RelationCalls, 0.9)))
	g.Freeze()

	deps, err := NewEngine(g).Dependencies("caller", 0)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "zeta", deps[0].Element.Name, "higher confidence first")
	assert.Equal(t, "alpha", deps[1].Element.Name)
}

func TestEngine_NotFound(t *testing.T) {
	engine, _ := fixtureEngine(t)

	_, err := engine.Dependencies("ghost", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = engine.CallGraph("ghost", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_CallGraphTerminatesOnCycle(t *testing.T) {
	engine, elems := fixtureEngine(t)

	result, err := engine.CallGraph("foo", 10)
	require.NoError(t, err)

	// foo -> bar -> baz -> foo terminates; each node appears once at its
	// shallowest depth.
	depths := make(map[string]int)
	for _, n := range result.Nodes {
		_, dup := depths[n.Element.ID]
		assert.False(t, dup, "node %s appears twice", n.Element.Name)
		depths[n.Element.ID] = n.Depth
	}
	assert.Equal(t, 0, depths[elems["foo"].ID])
	assert.Equal(t, 1, depths[elems["bar"].ID])
	assert.Equal(t, 2, depths[elems["baz"].ID])
	assert.Len(t, result.Edges, 3, "cycle edge back to foo is reported once")
}

func TestEngine_CallGraphDepthLimit(t *testing.T) {
	engine, elems := fixtureEngine(t)

	result, err := engine.CallGraph("foo", 1)
	require.NoError(t, err)

	depths := make(map[string]int)
	for _, n := range result.Nodes {
		depths[n.Element.ID] = n.Depth
	}
	assert.Contains(t, depths, elems["bar"].ID)
	assert.NotContains(t, depths, elems["baz"].ID, "depth 2 exceeds maxDepth 1")
}

func TestEngine_InheritanceTree(t *testing.T) {
	engine, _ := fixtureEngine(t)

	result, err := engine.InheritanceTree("B")
	require.NoError(t, err)
	require.Len(t, result.Ancestors, 1)
	assert.Equal(t, "A", result.Ancestors[0].Name)
	assert.Empty(t, result.Descendants)

	result, err = engine.InheritanceTree("A")
	require.NoError(t, err)
	assert.Empty(t, result.Ancestors)
	require.Len(t, result.Descendants, 1)
	assert.Equal(t, "B", result.Descendants[0].Name)
}

func TestEngine_InheritanceTreeRejectsNonClass(t *testing.T) {
	engine, _ := fixtureEngine(t)
	_, err := engine.InheritanceTree("foo")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_Hotspots(t *testing.T) {
	engine, _ := fixtureEngine(t)

	hotspots := engine.Hotspots(2)
	require.Len(t, hotspots, 2)
	assert.Equal(t, "baz", hotspots[0].Element.Name)
	assert.Equal(t, 1, hotspots[0].Rank)
	assert.Equal(t, "bar", hotspots[1].Element.Name)
}

func TestEngine_HotspotsClampedToPopulation(t *testing.T) {
	engine, _ := fixtureEngine(t)

	// Seven elements in the fixture; asking for 50 returns all seven.
	hotspots := engine.Hotspots(50)
	assert.Len(t, hotspots, 7)
}

func TestEngine_HotspotsRankAllKinds(t *testing.T) {
	// Non-callable kinds participate in the ranking too.
	hairyClass := element("m.py", 1, "God", ast.ElementKindClass, 20)
	fn := element("m.py", 30, "tiny", ast.ElementKindFunction, 1)

	g := graph.NewGraph("")
	require.NoError(t, g.AddElement(hairyClass))
	require.NoError(t, g.AddElement(fn))
	g.Freeze()

	hotspots := NewEngine(g).Hotspots(5)
	require.Len(t, hotspots, 2, "min(5, total elements) = 2")
	assert.Equal(t, "God", hotspots[0].Element.Name)
	assert.Equal(t, 1, hotspots[0].Rank)
}

func TestEngine_HotspotsExactlyMinOfTopNAndTotal(t *testing.T) {
	g := graph.NewGraph("")
	total := 150
	for i := 0; i < total; i++ {
		e := element("big.py", i+1, fmt.Sprintf("fn%03d", i), ast.ElementKindFunction, float64(i))
		require.NoError(t, g.AddElement(e))
	}
	g.Freeze()
	engine := NewEngine(g)

	for _, topN := range []int{1, 10, total, 200} {
		want := topN
		if want > total {
			want = total
		}
		hotspots := engine.Hotspots(topN)
		require.Len(t, hotspots, want, "hotspots(%d)", topN)
		for i := 1; i < len(hotspots); i++ {
			assert.GreaterOrEqual(t, hotspots[i-1].Complexity, hotspots[i].Complexity,
				"complexity must be non-increasing")
		}
	}
}

func TestEngine_DeadCode(t *testing.T) {
	engine, _ := fixtureEngine(t)

	dead, err := engine.DeadCode([]string{"main"})
	require.NoError(t, err)
	require.Len(t, dead, 1, "only orphan has no callers and is not an entry point")
	assert.Equal(t, "orphan", dead[0].Name)
}

func TestEngine_DeadCodeIgnoresAttributeAccess(t *testing.T) {
	// Only incoming calls and uses_variable edges keep an element alive;
	// an attribute access alone does not.
	user := element("a.py", 1, "user", ast.ElementKindFunction, 1)
	accessed := element("a.py", 10, "handler", ast.ElementKindMethod, 1)

	g := graph.NewGraph("")
	require.NoError(t, g.AddElement(user))
	require.NoError(t, g.AddElement(accessed))
	require.NoError(t, g.AddRelation(edge(user, accessed, graph.RelationAccessAttribute, 0.7)))
	g.Freeze()

	dead, err := NewEngine(g).DeadCode([]string{"user"})
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "handler", dead[0].Name)
}

func TestEngine_DeadCodeGlobPatterns(t *testing.T) {
	engine, _ := fixtureEngine(t)

	dead, err := engine.DeadCode([]string{"main", "orph*"})
	require.NoError(t, err)
	assert.Empty(t, dead, "glob pattern excludes orphan")

	_, err = engine.DeadCode([]string{"[bad"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestEngine_EmptyGraph(t *testing.T) {
	g := graph.NewGraph("")
	g.Freeze()
	engine := NewEngine(g)

	assert.Empty(t, engine.Hotspots(10))

	dead, err := engine.DeadCode(nil)
	require.NoError(t, err)
	assert.Empty(t, dead)

	_, err = engine.Dependencies("anything", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_ExecuteEnvelope(t *testing.T) {
	engine, _ := fixtureEngine(t)

	t.Run("success", func(t *testing.T) {
		resp := engine.Execute(Request{Kind: QueryDependencies, Name: "foo"})
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.NotNil(t, resp.Result)
		assert.Nil(t, resp.Error)
	})

	t.Run("not found", func(t *testing.T) {
		resp := engine.Execute(Request{Kind: QueryDependencies, Name: "ghost"})
		assert.Equal(t, StatusError, resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "not_found", resp.Error.Kind)
	})

	t.Run("unknown kind", func(t *testing.T) {
		resp := engine.Execute(Request{Kind: "explode"})
		assert.Equal(t, StatusError, resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "invalid_params", resp.Error.Kind)
	})
}

func TestEngine_MergesSameNamedElements(t *testing.T) {
	// Two functions named "handler" in different files; dependencies of the
	// name merge both elements' edges.
	h1 := element("x.py", 1, "handler", ast.ElementKindFunction, 1)
	h2 := element("y.py", 1, "handler", ast.ElementKindFunction, 1)
	var targets []*ast.Element
	g := graph.NewGraph("")
	require.NoError(t, g.AddElement(h1))
	require.NoError(t, g.AddElement(h2))
	for i := 0; i < 2; i++ {
		tgt := element("z.py", 10*(i+1), fmt.Sprintf("dep%d", i), ast.ElementKindFunction, 1)
		targets = append(targets, tgt)
		require.NoError(t, g.AddElement(tgt))
	}
	require.NoError(t, g.AddRelation(edge(h1, targets[0], graph.RelationCalls, 0.9)))
	require.NoError(t, g.AddRelation(edge(h2, targets[1], graph.RelationCalls, 0.9)))
	g.Freeze()

	deps, err := NewEngine(g).Dependencies("handler", 0)
	require.NoError(t, err)
	assert.Len(t, deps, 2)
}
