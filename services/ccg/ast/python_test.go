// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const pythonSample = `GLOBAL_LIMIT = 10

def bar(x):
    """Bar docstring."""
    if x > GLOBAL_LIMIT:
        return x
    return 0

class A(Base):
    def foo(self):
        return bar(1)
`

func parsePython(t *testing.T, source string) *FileResult {
	t.Helper()
	backend := NewPythonBackend()
	result, err := backend.Parse(context.Background(), []byte(source), "pkg/main.py")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return result
}

func findElement(t *testing.T, result *FileResult, name string) *Element {
	t.Helper()
	for _, e := range result.Elements {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("element %q not found; have %d elements", name, len(result.Elements))
	return nil
}

func TestPythonBackend_Elements(t *testing.T) {
	result := parsePython(t, pythonSample)

	t.Run("module element", func(t *testing.T) {
		module := result.ModuleElement()
		if module == nil {
			t.Fatal("no module element")
		}
		if module.Name != "main" {
			t.Errorf("module name = %q, want %q", module.Name, "main")
		}
		if module.StartLine != 1 {
			t.Errorf("module start line = %d, want 1", module.StartLine)
		}
	})

	t.Run("top-level variable", func(t *testing.T) {
		v := findElement(t, result, "GLOBAL_LIMIT")
		if v.Kind != ElementKindVariable {
			t.Errorf("kind = %q, want variable", v.Kind)
		}
		if !v.Exported {
			t.Error("GLOBAL_LIMIT should be exported")
		}
	})

	t.Run("function with docstring and decision point", func(t *testing.T) {
		bar := findElement(t, result, "bar")
		if bar.Kind != ElementKindFunction {
			t.Errorf("kind = %q, want function", bar.Kind)
		}
		if bar.Documentation != "Bar docstring." {
			t.Errorf("documentation = %q", bar.Documentation)
		}
		if bar.DecisionPoints != 1 {
			t.Errorf("decision points = %d, want 1 (one if)", bar.DecisionPoints)
		}
	})

	t.Run("method inside class", func(t *testing.T) {
		a := findElement(t, result, "A")
		if a.Kind != ElementKindClass {
			t.Errorf("A kind = %q, want class", a.Kind)
		}
		foo := findElement(t, result, "foo")
		if foo.Kind != ElementKindMethod {
			t.Errorf("foo kind = %q, want method", foo.Kind)
		}
		if foo.ParentID != a.ID {
			t.Errorf("foo parent = %q, want class A (%q)", foo.ParentID, a.ID)
		}
	})

	t.Run("ids are deterministic", func(t *testing.T) {
		again := parsePython(t, pythonSample)
		for _, e := range result.Elements {
			match := false
			for _, f := range again.Elements {
				if f.ID == e.ID {
					match = true
					break
				}
			}
			if !match {
				t.Errorf("element %q id %q missing on re-parse", e.Name, e.ID)
			}
		}
	})
}

func TestPythonBackend_References(t *testing.T) {
	result := parsePython(t, pythonSample)
	foo := findElement(t, result, "foo")
	bar := findElement(t, result, "bar")

	hasRef := func(kind ReferenceKind, fromID, target string) bool {
		for _, r := range result.References {
			if r.Kind == kind && r.FromID == fromID && r.Target == target {
				return true
			}
		}
		return false
	}

	if !hasRef(RefCall, foo.ID, "bar") {
		t.Error("missing call reference foo -> bar")
	}
	a := findElement(t, result, "A")
	if !hasRef(RefInherit, a.ID, "Base") {
		t.Error("missing inherit reference A -> Base")
	}
	if !hasRef(RefUsesVariable, bar.ID, "GLOBAL_LIMIT") {
		t.Error("missing uses_variable reference bar -> GLOBAL_LIMIT")
	}
}

func TestPythonBackend_Imports(t *testing.T) {
	result := parsePython(t, "import os.path\nfrom pkg.utils import helper\n")
	module := result.ModuleElement()

	var targets []string
	for _, r := range result.References {
		if r.Kind == RefImport {
			if r.FromID != module.ID {
				t.Errorf("import reference from %q, want module %q", r.FromID, module.ID)
			}
			targets = append(targets, r.Target)
		}
	}
	if len(targets) != 2 {
		t.Fatalf("import targets = %v, want 2", targets)
	}
	if targets[0] != "os.path" || targets[1] != "pkg.utils" {
		t.Errorf("import targets = %v", targets)
	}
}

func TestPythonBackend_SyntaxErrorsArePartial(t *testing.T) {
	result := parsePython(t, "def ok():\n    return 1\n\ndef broken(:\n")
	if len(result.Errors) == 0 {
		t.Error("expected syntax errors to be recorded")
	}
	// The valid function still comes through.
	findElement(t, result, "ok")
}

func TestPythonBackend_RejectsOversizedFile(t *testing.T) {
	backend := NewPythonBackend(WithMaxFileSize(16))
	_, err := backend.Parse(context.Background(), []byte(strings.Repeat("x = 1\n", 10)), "big.py")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestPythonBackend_RejectsInvalidUTF8(t *testing.T) {
	backend := NewPythonBackend()
	_, err := backend.Parse(context.Background(), []byte{0xff, 0xfe, 0x00}, "bad.py")
	if !errors.Is(err, ErrInvalidContent) {
		t.Errorf("err = %v, want ErrInvalidContent", err)
	}
}

func TestPythonBackend_PrivateNamesUnexported(t *testing.T) {
	result := parsePython(t, "def _hidden():\n    pass\n")
	hidden := findElement(t, result, "_hidden")
	if hidden.Exported {
		t.Error("_hidden should not be exported")
	}
}
