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
	"github.com/smacker/go-tree-sitter/javascript"
)

// NewJavaScriptBackend creates a Backend for JavaScript source files.
func NewJavaScriptBackend(opts ...BackendOption) Backend {
	return newBackend(jsSpec("javascript", []string{".js", ".jsx", ".mjs", ".cjs"}, javascript.GetLanguage()), opts...)
}

// jsSpec builds the shared JavaScript/TypeScript languageSpec. The two
// grammars share node type names for everything this extractor visits.
func jsSpec(name string, extensions []string, language *sitter.Language) languageSpec {
	return languageSpec{
		name:       name,
		extensions: extensions,
		language:   language,
		elementTypes: map[string]ElementKind{
			"function_declaration":           ElementKindFunction,
			"generator_function_declaration": ElementKindFunction,
			"class_declaration":              ElementKindClass,
			"method_definition":              ElementKindMethod,
		},
		variableTypes: map[string]bool{
			"variable_declarator": true,
		},
		decisionTypes: map[string]bool{
			"if_statement":       true,
			"for_statement":      true,
			"for_in_statement":   true,
			"while_statement":    true,
			"do_statement":       true,
			"switch_case":        true,
			"catch_clause":       true,
			"ternary_expression": true,
		},
		boolOperatorTypes: map[string]bool{
			"binary_expression": true,
		},
		callTypes: map[string]bool{
			"call_expression": true,
			"new_expression":  true,
		},
		importTypes: map[string]bool{
			"import_statement": true,
		},
		attributeTypes: map[string]bool{
			"member_expression": true,
		},
		identifierType: "identifier",
		nameOf:         namedChildText("name"),
		variableName:   jsVariableName,
		callTarget:     jsCallTarget,
		importPaths:    jsImportPaths,
		attribute:      jsAttribute,
		superclasses:   jsSuperclasses,
		docComment:     leadingComments,
		exported:       jsExported,
	}
}

// jsVariableName extracts the declared identifier of a variable declarator.
// Destructuring patterns are skipped.
func jsVariableName(node *sitter.Node, content []byte) string {
	name := node.ChildByFieldName("name")
	if name == nil || name.Type() != "identifier" {
		return ""
	}
	return nodeText(name, content)
}

// jsCallTarget extracts (target, receiver) from call and new expressions.
// foo() → ("foo", ""); obj.method() → ("method", "obj"); new Foo() → ("Foo", "").
func jsCallTarget(node *sitter.Node, content []byte) (string, string) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		fn = node.ChildByFieldName("constructor")
	}
	if fn == nil {
		return "", ""
	}
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, content), ""
	case "member_expression":
		return nodeText(fn.ChildByFieldName("property"), content),
			nodeText(fn.ChildByFieldName("object"), content)
	}
	return "", ""
}

// jsImportPaths extracts the module specifier of an import statement.
func jsImportPaths(node *sitter.Node, content []byte) []string {
	source := node.ChildByFieldName("source")
	if source == nil {
		return nil
	}
	path := strings.Trim(nodeText(source, content), "\"'`")
	if path == "" {
		return nil
	}
	return []string{path}
}

// jsAttribute extracts (property, receiver) from a member expression.
func jsAttribute(node *sitter.Node, content []byte) (string, string) {
	return nodeText(node.ChildByFieldName("property"), content),
		nodeText(node.ChildByFieldName("object"), content)
}

// jsSuperclasses lists the extends target of a class declaration.
// JavaScript has single inheritance; implements clauses (TypeScript) are
// not inheritance and are skipped.
func jsSuperclasses(node *sitter.Node, content []byte) []string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "class_heritage" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			base := child.NamedChild(j)
			switch base.Type() {
			case "identifier":
				return []string{nodeText(base, content)}
			case "member_expression":
				return []string{nodeText(base.ChildByFieldName("property"), content)}
			case "extends_clause":
				// TypeScript wraps the extends target in an extends_clause.
				for k := 0; k < int(base.NamedChildCount()); k++ {
					target := base.NamedChild(k)
					if target.Type() == "identifier" {
						return []string{nodeText(target, content)}
					}
				}
			}
		}
	}
	return nil
}

// jsExported treats private-convention names (leading _ or #) as unexported.
func jsExported(name string) bool {
	return !strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "#")
}
