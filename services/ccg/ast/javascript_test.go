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
	"testing"
)

const jsSample = `import { helper } from "./util";

const LIMIT = 5;

class Worker extends Base {
  run(task) {
    return task ? helper(task) : null;
  }
}

function main() {
  const w = new Worker();
  w.run(LIMIT);
}
`

func TestJavaScriptBackend_Extraction(t *testing.T) {
	backend := NewJavaScriptBackend()
	result, err := backend.Parse(context.Background(), []byte(jsSample), "src/worker.js")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	worker := findElement(t, result, "Worker")
	if worker.Kind != ElementKindClass {
		t.Errorf("Worker kind = %q, want class", worker.Kind)
	}
	run := findElement(t, result, "run")
	if run.Kind != ElementKindMethod {
		t.Errorf("run kind = %q, want method", run.Kind)
	}
	if run.DecisionPoints != 1 {
		t.Errorf("run decision points = %d, want 1 (ternary)", run.DecisionPoints)
	}
	limit := findElement(t, result, "LIMIT")
	if limit.Kind != ElementKindVariable {
		t.Errorf("LIMIT kind = %q, want variable", limit.Kind)
	}

	module := result.ModuleElement()
	var inheritSeen, importSeen, ctorSeen, methodCallSeen bool
	for _, r := range result.References {
		switch {
		case r.Kind == RefInherit && r.FromID == worker.ID && r.Target == "Base":
			inheritSeen = true
		case r.Kind == RefImport && r.FromID == module.ID && r.Target == "./util":
			importSeen = true
		case r.Kind == RefCall && r.Target == "Worker":
			ctorSeen = true
		case r.Kind == RefCall && r.Target == "run" && r.Receiver == "w":
			methodCallSeen = true
		}
	}
	if !inheritSeen {
		t.Error("missing inherit reference Worker -> Base")
	}
	if !importSeen {
		t.Error("missing import reference to ./util")
	}
	if !ctorSeen {
		t.Error("missing constructor call reference to Worker")
	}
	if !methodCallSeen {
		t.Error("missing method call reference w.run")
	}
}

func TestTypeScriptBackend_AbstractClass(t *testing.T) {
	backend := NewTypeScriptBackend()
	source := "abstract class Shape {\n  abstract area(): number;\n}\n" +
		"class Circle extends Shape {\n  area(): number { return 3; }\n}\n"
	result, err := backend.Parse(context.Background(), []byte(source), "src/shapes.ts")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	shape := findElement(t, result, "Shape")
	if shape.Kind != ElementKindClass {
		t.Errorf("Shape kind = %q, want class", shape.Kind)
	}
	circle := findElement(t, result, "Circle")

	inheritSeen := false
	for _, r := range result.References {
		if r.Kind == RefInherit && r.FromID == circle.ID && r.Target == "Shape" {
			inheritSeen = true
		}
	}
	if !inheritSeen {
		t.Error("missing inherit reference Circle -> Shape")
	}
}
