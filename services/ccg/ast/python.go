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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// NewPythonBackend creates a Backend for Python source files.
//
// Description:
//
//	Extracts functions, classes, methods (functions nested in classes), and
//	top-level variables. Reference candidates come from call expressions,
//	import statements (including from-imports), class superclass lists, and
//	attribute accesses. Decision points: if/elif/for/while/except/case,
//	conditional expressions, and boolean operators.
//
// Thread Safety:
//
//	The returned backend is safe for concurrent use.
func NewPythonBackend(opts ...BackendOption) Backend {
	return newBackend(languageSpec{
		name:       "python",
		extensions: []string{".py", ".pyi"},
		language:   python.GetLanguage(),
		elementTypes: map[string]ElementKind{
			"function_definition": ElementKindFunction,
			"class_definition":    ElementKindClass,
		},
		variableTypes: map[string]bool{
			"assignment": true,
		},
		decisionTypes: map[string]bool{
			"if_statement":           true,
			"elif_clause":            true,
			"for_statement":          true,
			"while_statement":        true,
			"except_clause":          true,
			"case_clause":            true,
			"conditional_expression": true,
		},
		boolOperatorTypes: map[string]bool{
			"boolean_operator": true,
		},
		callTypes: map[string]bool{
			"call": true,
		},
		importTypes: map[string]bool{
			"import_statement":      true,
			"import_from_statement": true,
		},
		attributeTypes: map[string]bool{
			"attribute": true,
		},
		identifierType: "identifier",
		nameOf:         namedChildText("name"),
		variableName:   pythonAssignmentTarget,
		callTarget:     pythonCallTarget,
		importPaths:    pythonImportPaths,
		attribute:      pythonAttribute,
		superclasses:   pythonSuperclasses,
		docComment:     pythonDocstring,
		exported:       pythonExported,
	}, opts...)
}

// namedChildText returns a nameOf helper reading the given field.
func namedChildText(field string) func(*sitter.Node, []byte) string {
	return func(node *sitter.Node, content []byte) string {
		return nodeText(node.ChildByFieldName(field), content)
	}
}

// pythonAssignmentTarget extracts the left-hand identifier of an assignment.
// Tuple targets and attribute targets are skipped.
func pythonAssignmentTarget(node *sitter.Node, content []byte) string {
	left := node.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return ""
	}
	return nodeText(left, content)
}

// pythonCallTarget extracts (target, receiver) from a call node.
// foo() → ("foo", ""); obj.method() → ("method", "obj").
func pythonCallTarget(node *sitter.Node, content []byte) (string, string) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return "", ""
	}
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, content), ""
	case "attribute":
		return nodeText(fn.ChildByFieldName("attribute"), content),
			nodeText(fn.ChildByFieldName("object"), content)
	}
	return "", ""
}

// pythonImportPaths extracts module paths from import statements.
//
// Handles 'import a.b', 'import a as b', 'from x import y', and relative
// 'from .x import y' forms. For from-imports only the module path is
// recorded; the imported names narrow resolution later, not here.
func pythonImportPaths(node *sitter.Node, content []byte) []string {
	var paths []string
	switch node.Type() {
	case "import_statement":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "dotted_name":
				paths = append(paths, nodeText(child, content))
			case "aliased_import":
				if name := child.ChildByFieldName("name"); name != nil {
					paths = append(paths, nodeText(name, content))
				}
			}
		}
	case "import_from_statement":
		if mod := node.ChildByFieldName("module_name"); mod != nil {
			paths = append(paths, strings.TrimLeft(nodeText(mod, content), "."))
		}
	}
	return paths
}

// pythonAttribute extracts (property, receiver) from an attribute node.
func pythonAttribute(node *sitter.Node, content []byte) (string, string) {
	return nodeText(node.ChildByFieldName("attribute"), content),
		nodeText(node.ChildByFieldName("object"), content)
}

// pythonSuperclasses lists the base class names of a class definition.
// Supports multiple inheritance; keyword arguments (metaclass=...) are
// skipped, and dotted bases keep only the final segment.
func pythonSuperclasses(node *sitter.Node, content []byte) []string {
	args := node.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var bases []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		switch child.Type() {
		case "identifier":
			bases = append(bases, nodeText(child, content))
		case "attribute":
			bases = append(bases, nodeText(child.ChildByFieldName("attribute"), content))
		}
	}
	return bases
}

// pythonDocstring extracts the docstring of a function or class body.
func pythonDocstring(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return strings.Trim(nodeText(str, content), "\"' \n")
}

// pythonExported follows the underscore convention.
func pythonExported(name string) bool {
	return !strings.HasPrefix(name, "_")
}
