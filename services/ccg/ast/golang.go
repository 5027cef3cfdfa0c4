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
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// NewGoBackend creates a Backend for Go source files.
//
// Description:
//
//	Type declarations map to the class kind, since the graph model has no
//	separate type kind; methods attach via their declaration, not a class
//	body, so the parent of a Go method is the module element. Go has no
//	inheritance, so no inherits references are produced.
//
// Thread Safety:
//
//	The returned backend is safe for concurrent use.
func NewGoBackend(opts ...BackendOption) Backend {
	return newBackend(languageSpec{
		name:       "go",
		extensions: []string{".go"},
		language:   golang.GetLanguage(),
		elementTypes: map[string]ElementKind{
			"function_declaration": ElementKindFunction,
			"method_declaration":   ElementKindMethod,
			"type_spec":            ElementKindClass,
		},
		variableTypes: map[string]bool{
			"var_spec":   true,
			"const_spec": true,
		},
		decisionTypes: map[string]bool{
			"if_statement":       true,
			"for_statement":      true,
			"expression_case":    true,
			"type_case":          true,
			"communication_case": true,
		},
		boolOperatorTypes: map[string]bool{
			"binary_expression": true,
		},
		callTypes: map[string]bool{
			"call_expression": true,
		},
		importTypes: map[string]bool{
			"import_spec": true,
		},
		attributeTypes: map[string]bool{
			"selector_expression": true,
		},
		identifierType: "identifier",
		nameOf:         namedChildText("name"),
		variableName:   goVariableName,
		callTarget:     goCallTarget,
		importPaths:    goImportPaths,
		attribute:      goAttribute,
		docComment:     leadingComments,
		exported:       goExported,
	}, opts...)
}

// goVariableName extracts the first declared name of a var or const spec.
func goVariableName(node *sitter.Node, content []byte) string {
	name := node.ChildByFieldName("name")
	if name == nil || name.Type() != "identifier" {
		return ""
	}
	return nodeText(name, content)
}

// goCallTarget extracts (target, receiver) from a call expression.
// foo() → ("foo", ""); pkg.Fn() and recv.Method() → ("Fn", "pkg").
func goCallTarget(node *sitter.Node, content []byte) (string, string) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return "", ""
	}
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, content), ""
	case "selector_expression":
		return nodeText(fn.ChildByFieldName("field"), content),
			nodeText(fn.ChildByFieldName("operand"), content)
	}
	return "", ""
}

// goImportPaths extracts the quoted path of an import spec.
func goImportPaths(node *sitter.Node, content []byte) []string {
	path := node.ChildByFieldName("path")
	if path == nil {
		return nil
	}
	trimmed := strings.Trim(nodeText(path, content), "\"`")
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}

// goAttribute extracts (field, operand) from a selector expression.
func goAttribute(node *sitter.Node, content []byte) (string, string) {
	return nodeText(node.ChildByFieldName("field"), content),
		nodeText(node.ChildByFieldName("operand"), content)
}

// goExported reports whether a name starts with an upper-case letter.
func goExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
