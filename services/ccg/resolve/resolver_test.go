// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
	"github.com/AleutianAI/codegraph/services/ccg/graph"
	"github.com/AleutianAI/codegraph/services/ccg/index"
)

func elem(filePath string, line int, name string, kind ast.ElementKind, language string) *ast.Element {
	return &ast.Element{
		ID:        ast.GenerateID(filePath, line, name),
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		StartLine: line,
		EndLine:   line + 1,
		Language:  language,
		Exported:  true,
	}
}

func frozenIndex(t *testing.T, elems ...*ast.Element) *index.ElementIndex {
	t.Helper()
	idx := index.NewElementIndex()
	require.NoError(t, idx.AddBatch(elems))
	idx.Freeze()
	return idx
}

func callRef(from *ast.Element, target string) ast.Reference {
	return ast.Reference{
		Kind:     ast.RefCall,
		FromID:   from.ID,
		Target:   target,
		Location: from.Location(),
	}
}

func TestResolver_UniqueResolution(t *testing.T) {
	caller := elem("a.py", 1, "caller", ast.ElementKindFunction, "python")
	target := elem("b.py", 1, "target", ast.ElementKindFunction, "python")
	r := NewResolver(frozenIndex(t, caller, target))

	edges, dropped, err := r.Resolve(context.Background(), []ast.Reference{callRef(caller, "target")})
	require.NoError(t, err)
	assert.Empty(t, dropped)
	require.Len(t, edges, 1)
	assert.Equal(t, caller.ID, edges[0].FromID)
	assert.Equal(t, target.ID, edges[0].ToID)
	assert.Equal(t, graph.RelationCalls, edges[0].Kind)
	// Python calls use the dynamic-dispatch base.
	assert.InDelta(t, PythonCallConfidence, edges[0].Confidence, 1e-9)
}

func TestResolver_CollisionDividesConfidence(t *testing.T) {
	caller := elem("main.go", 1, "caller", ast.ElementKindFunction, "go")
	t1 := elem("pkg/a/x.go", 1, "process", ast.ElementKindFunction, "go")
	t2 := elem("pkg/b/y.go", 1, "process", ast.ElementKindFunction, "go")
	r := NewResolver(frozenIndex(t, caller, t1, t2))

	edges, dropped, err := r.Resolve(context.Background(), []ast.Reference{callRef(caller, "process")})
	require.NoError(t, err)
	assert.Empty(t, dropped)
	require.Len(t, edges, 2, "ambiguous reference fans out to every candidate")
	for _, e := range edges {
		assert.InDelta(t, DefaultCallConfidence/2, e.Confidence, 1e-9)
	}
}

func TestResolver_ScopePreference(t *testing.T) {
	caller := elem("pkg/a.py", 1, "caller", ast.ElementKindFunction, "python")
	sameFile := elem("pkg/a.py", 20, "helper", ast.ElementKindFunction, "python")
	sameModule := elem("pkg/b.py", 1, "helper", ast.ElementKindFunction, "python")
	elsewhere := elem("other/c.py", 1, "helper", ast.ElementKindFunction, "python")
	r := NewResolver(frozenIndex(t, caller, sameFile, sameModule, elsewhere))

	edges, _, err := r.Resolve(context.Background(), []ast.Reference{callRef(caller, "helper")})
	require.NoError(t, err)
	require.Len(t, edges, 1, "same-file candidate shadows the others")
	assert.Equal(t, sameFile.ID, edges[0].ToID)
	assert.InDelta(t, PythonCallConfidence, edges[0].Confidence, 1e-9,
		"unique in-scope resolution keeps the full base confidence")
}

func TestResolver_UnresolvedIsDropped(t *testing.T) {
	caller := elem("a.py", 1, "caller", ast.ElementKindFunction, "python")
	r := NewResolver(frozenIndex(t, caller))

	edges, dropped, err := r.Resolve(context.Background(), []ast.Reference{callRef(caller, "ghost")})
	require.NoError(t, err)
	assert.Empty(t, edges, "no placeholder edges for unresolved references")
	require.Len(t, dropped, 1)
	assert.Equal(t, "ghost", dropped[0].Ref.Target)
}

func TestResolver_KindFiltering(t *testing.T) {
	caller := elem("a.py", 1, "caller", ast.ElementKindFunction, "python")
	variable := elem("b.py", 1, "thing", ast.ElementKindVariable, "python")
	class := elem("c.py", 1, "Thing", ast.ElementKindClass, "python")
	r := NewResolver(frozenIndex(t, caller, variable, class))

	t.Run("inherits only matches classes", func(t *testing.T) {
		edges, dropped, err := r.Resolve(context.Background(), []ast.Reference{{
			Kind: ast.RefInherit, FromID: caller.ID, Target: "thing",
		}})
		require.NoError(t, err)
		assert.Empty(t, edges)
		assert.Len(t, dropped, 1)
	})

	t.Run("calling a class is construction", func(t *testing.T) {
		edges, _, err := r.Resolve(context.Background(), []ast.Reference{callRef(caller, "Thing")})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, class.ID, edges[0].ToID)
	})

	t.Run("uses_variable only matches variables", func(t *testing.T) {
		edges, _, err := r.Resolve(context.Background(), []ast.Reference{{
			Kind: ast.RefUsesVariable, FromID: caller.ID, Target: "thing",
		}})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, variable.ID, edges[0].ToID)
		assert.InDelta(t, DefaultUsesConfidence, edges[0].Confidence, 1e-9)
	})
}

func TestResolver_ImportsMatchModules(t *testing.T) {
	mainMod := elem("main.py", 1, "main", ast.ElementKindModule, "python")
	utilsMod := elem("pkg/utils.py", 1, "utils", ast.ElementKindModule, "python")
	r := NewResolver(frozenIndex(t, mainMod, utilsMod))

	edges, _, err := r.Resolve(context.Background(), []ast.Reference{{
		Kind: ast.RefImport, FromID: mainMod.ID, Target: "pkg.utils",
	}})
	require.NoError(t, err)
	require.Len(t, edges, 1, "last path segment matches the module name")
	assert.Equal(t, utilsMod.ID, edges[0].ToID)
	assert.Equal(t, graph.RelationImports, edges[0].Kind)
	assert.InDelta(t, DefaultImportConfidence, edges[0].Confidence, 1e-9)
}

func TestResolver_InheritConfidence(t *testing.T) {
	child := elem("a.py", 1, "Child", ast.ElementKindClass, "python")
	base := elem("b.py", 1, "Base", ast.ElementKindClass, "python")
	r := NewResolver(frozenIndex(t, child, base))

	edges, _, err := r.Resolve(context.Background(), []ast.Reference{{
		Kind: ast.RefInherit, FromID: child.ID, Target: "Base",
	}})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.InDelta(t, DefaultInheritConfidence, edges[0].Confidence, 1e-9)
}

func TestResolver_RequiresFrozenIndex(t *testing.T) {
	idx := index.NewElementIndex()
	r := NewResolver(idx)
	_, _, err := r.Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrIndexNotFrozen)
}

func TestResolver_RecursionProducesSelfEdge(t *testing.T) {
	recurse := elem("a.py", 1, "work", ast.ElementKindFunction, "python")
	r := NewResolver(frozenIndex(t, recurse))

	edges, dropped, err := r.Resolve(context.Background(), []ast.Reference{callRef(recurse, "work")})
	require.NoError(t, err)
	assert.Empty(t, dropped)
	require.Len(t, edges, 1)
	assert.Equal(t, recurse.ID, edges[0].ToID, "a recursive call is a self edge")
}
