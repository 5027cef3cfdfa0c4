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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// referenceContextLimit is the maximum length of a reference context snippet.
const referenceContextLimit = 200

// languageSpec describes how to extract elements and references from one
// language's syntax tree. All built-in backends share the same walk; only
// the node-type tables and the small helper functions differ per language.
type languageSpec struct {
	name       string
	extensions []string
	language   *sitter.Language

	// elementTypes maps defining node types to the element kind they produce.
	// Function kinds are promoted to method when the enclosing element is a
	// class.
	elementTypes map[string]ElementKind

	// variableTypes are node types that define variables. Only top-level
	// occurrences (enclosing element is the module) produce elements.
	variableTypes map[string]bool

	// decisionTypes are node types counted as decision points.
	decisionTypes map[string]bool

	// boolOperatorTypes are node types whose "operator" field may be a
	// short-circuit boolean operator (&&, ||, and, or), each counted as a
	// decision point.
	boolOperatorTypes map[string]bool

	callTypes      map[string]bool
	importTypes    map[string]bool
	attributeTypes map[string]bool

	// identifierType is the plain identifier node type, used for
	// uses_variable candidates inside function bodies.
	identifierType string

	// nameOf extracts the declared name of an element-defining node.
	// Returns "" for malformed nodes, which are skipped with a diagnostic.
	nameOf func(node *sitter.Node, content []byte) string

	// variableName extracts the name from a variable-defining node.
	variableName func(node *sitter.Node, content []byte) string

	// callTarget extracts (target, receiver) from a call node.
	callTarget func(node *sitter.Node, content []byte) (string, string)

	// importPaths extracts the module path(s) from an import node.
	importPaths func(node *sitter.Node, content []byte) []string

	// attribute extracts (property, receiver) from an attribute access node.
	attribute func(node *sitter.Node, content []byte) (string, string)

	// superclasses lists the base class names of a class-defining node.
	superclasses func(node *sitter.Node, content []byte) []string

	// docComment extracts documentation for an element-defining node.
	docComment func(node *sitter.Node, content []byte) string

	// exported reports the language's visibility convention for a name.
	exported func(name string) bool
}

// BackendOption configures a tree-sitter backend.
type BackendOption func(*treeSitterBackend)

// WithMaxFileSize sets the maximum file size the backend will accept.
func WithMaxFileSize(bytes int64) BackendOption {
	return func(b *treeSitterBackend) {
		if bytes > 0 {
			b.maxFileSize = bytes
		}
	}
}

// treeSitterBackend implements Backend for one languageSpec.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Parse call creates its own tree-sitter
//	parser instance and closes the tree before returning, so no syntax tree
//	outlives the extraction of its file.
type treeSitterBackend struct {
	spec        languageSpec
	maxFileSize int64
}

func newBackend(spec languageSpec, opts ...BackendOption) *treeSitterBackend {
	b := &treeSitterBackend{
		spec:        spec,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Language returns the canonical language name for this backend.
func (b *treeSitterBackend) Language() string {
	return b.spec.name
}

// Extensions returns the file extensions this backend handles.
func (b *treeSitterBackend) Extensions() []string {
	out := make([]string, len(b.spec.extensions))
	copy(out, b.spec.extensions)
	return out
}

// Parse extracts elements and reference candidates from source content.
//
// Description:
//
//	Parses the content with tree-sitter and walks the tree once, emitting a
//	module element for the file, an element per defining construct, and a
//	reference candidate per call/import/inherit/attribute/identifier site.
//	The parse is error-tolerant: syntactically invalid code yields partial
//	results with FileResult.Errors populated.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing;
//     tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Path relative to the analysis root, forward slashes.
//
// Outputs:
//   - *FileResult: Extracted elements and references. Never nil on success.
//   - error: ErrFileTooLarge, ErrInvalidContent, or a context error.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (b *treeSitterBackend) Parse(ctx context.Context, content []byte, filePath string) (*FileResult, error) {
	ctx, span := startParseSpan(ctx, b.spec.name, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, b.spec.name, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > b.maxFileSize {
		recordParseMetrics(ctx, b.spec.name, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), b.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordParseMetrics(ctx, b.spec.name, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: %s", ErrInvalidContent, filePath)
	}

	hash := sha256.Sum256(content)

	parser := sitter.NewParser()
	parser.SetLanguage(b.spec.language)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, b.spec.name, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: tree-sitter parse failed: %v", ErrSyntax, err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, b.spec.name, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	result := &FileResult{
		FilePath:      filePath,
		Language:      b.spec.name,
		Hash:          hex.EncodeToString(hash[:]),
		ParsedAtMilli: time.Now().UnixMilli(),
		Elements:      make([]*Element, 0),
		References:    make([]Reference, 0),
	}

	root := tree.RootNode()
	if root == nil {
		result.Errors = append(result.Errors, "tree-sitter returned nil root node")
		return result, nil
	}
	if root.HasError() {
		result.Errors = append(result.Errors, "source contains syntax errors")
	}

	st := &extractState{
		content: content,
		result:  result,
		used:    make(map[string]map[string]bool),
	}

	// Every file contributes a module element; imports and top-level calls
	// attach to it.
	module := &Element{
		ID:        GenerateID(filePath, 1, moduleName(filePath)),
		Name:      moduleName(filePath),
		Kind:      ElementKindModule,
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   bytes.Count(content, []byte("\n")) + 1,
		Language:  b.spec.name,
		Exported:  true,
	}
	result.Elements = append(result.Elements, module)

	b.walk(root, st, module, 0)

	if err := result.Validate(); err != nil {
		recordParseMetrics(ctx, b.spec.name, time.Since(start), 0, false)
		return nil, fmt.Errorf("result validation failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, b.spec.name, time.Since(start), len(result.Elements), false)
		return nil, fmt.Errorf("parse canceled after extraction: %w", err)
	}

	setParseSpanResult(span, len(result.Elements), len(result.References), len(result.Errors))
	recordParseMetrics(ctx, b.spec.name, time.Since(start), len(result.Elements), true)

	return result, nil
}

// extractState holds per-file mutable walk state.
type extractState struct {
	content []byte
	result  *FileResult

	// used dedupes uses_variable candidates per enclosing element.
	used map[string]map[string]bool

	depthExceeded bool
}

// walk visits node and its subtree, attributing decision points and
// references to encl, the nearest enclosing element.
func (b *treeSitterBackend) walk(node *sitter.Node, st *extractState, encl *Element, depth int) {
	if node == nil {
		return
	}
	if depth > MaxTraversalDepth {
		if !st.depthExceeded {
			st.depthExceeded = true
			st.result.Errors = append(st.result.Errors,
				fmt.Sprintf("traversal depth limit exceeded at line %d", node.StartPoint().Row+1))
		}
		return
	}

	spec := &b.spec
	t := node.Type()
	next := encl

	switch {
	case spec.elementTypes[t] != "":
		if elem := b.extractElement(node, st, encl, spec.elementTypes[t]); elem != nil {
			next = elem
		}

	case spec.variableTypes[t] && encl.Kind == ElementKindModule:
		b.extractVariable(node, st, encl)

	case spec.callTypes[t]:
		b.extractCall(node, st, encl)

	case spec.importTypes[t]:
		b.extractImport(node, st)

	case spec.attributeTypes[t]:
		b.extractAttribute(node, st, encl)

	case t == spec.identifierType:
		b.extractIdentifierUse(node, st, encl)
	}

	if spec.decisionTypes[t] {
		encl.DecisionPoints++
	} else if spec.boolOperatorTypes[t] {
		if op := node.ChildByFieldName("operator"); op != nil {
			switch nodeText(op, st.content) {
			case "&&", "||", "and", "or":
				encl.DecisionPoints++
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		b.walk(node.Child(i), st, next, depth+1)
	}
}

// extractElement creates an element for a defining node. Malformed nodes
// (missing name) are skipped with a diagnostic, never a fatal error.
func (b *treeSitterBackend) extractElement(node *sitter.Node, st *extractState, encl *Element, kind ElementKind) *Element {
	name := b.spec.nameOf(node, st.content)
	if name == "" {
		st.result.Errors = append(st.result.Errors,
			fmt.Sprintf("skipped unnamed %s node at line %d", node.Type(), node.StartPoint().Row+1))
		return nil
	}

	// A function defined inside a class is a method.
	if kind == ElementKindFunction && encl.Kind == ElementKindClass {
		kind = ElementKindMethod
	}

	startLine := int(node.StartPoint().Row + 1)
	elem := &Element{
		ID:            GenerateID(st.result.FilePath, startLine, name),
		Name:          name,
		Kind:          kind,
		FilePath:      st.result.FilePath,
		StartLine:     startLine,
		EndLine:       int(node.EndPoint().Row + 1),
		Language:      b.spec.name,
		ParentID:      encl.ID,
		Exported:      b.spec.exported(name),
		SourceSnippet: truncate(nodeText(node, st.content), SnippetLimit),
	}
	if b.spec.docComment != nil {
		elem.Documentation = b.spec.docComment(node, st.content)
	}
	st.result.Elements = append(st.result.Elements, elem)

	if kind == ElementKindClass && b.spec.superclasses != nil {
		for _, base := range b.spec.superclasses(node, st.content) {
			if base == "" {
				continue
			}
			st.result.References = append(st.result.References, Reference{
				Kind:     RefInherit,
				FromID:   elem.ID,
				Target:   base,
				Context:  truncate(firstLine(nodeText(node, st.content)), referenceContextLimit),
				Location: nodeLocation(node, st.result.FilePath),
			})
		}
	}

	return elem
}

// extractVariable creates a variable element for a top-level declaration.
func (b *treeSitterBackend) extractVariable(node *sitter.Node, st *extractState, encl *Element) {
	if b.spec.variableName == nil {
		return
	}
	name := b.spec.variableName(node, st.content)
	if name == "" {
		return
	}
	startLine := int(node.StartPoint().Row + 1)

	// Re-assignments of the same top-level name in one file would collide on
	// (file, name, line) only if on the same line; later duplicates by name
	// are acceptable and deduplicated by the index.
	st.result.Elements = append(st.result.Elements, &Element{
		ID:            GenerateID(st.result.FilePath, startLine, name),
		Name:          name,
		Kind:          ElementKindVariable,
		FilePath:      st.result.FilePath,
		StartLine:     startLine,
		EndLine:       int(node.EndPoint().Row + 1),
		Language:      b.spec.name,
		ParentID:      encl.ID,
		Exported:      b.spec.exported(name),
		SourceSnippet: truncate(nodeText(node, st.content), SnippetLimit),
	})
}

func (b *treeSitterBackend) extractCall(node *sitter.Node, st *extractState, encl *Element) {
	if b.spec.callTarget == nil {
		return
	}
	target, receiver := b.spec.callTarget(node, st.content)
	if target == "" {
		return
	}
	st.result.References = append(st.result.References, Reference{
		Kind:     RefCall,
		FromID:   encl.ID,
		Target:   target,
		Receiver: receiver,
		Context:  truncate(nodeText(node, st.content), referenceContextLimit),
		Location: nodeLocation(node, st.result.FilePath),
	})
}

func (b *treeSitterBackend) extractImport(node *sitter.Node, st *extractState) {
	if b.spec.importPaths == nil {
		return
	}
	module := st.result.ModuleElement()
	if module == nil {
		return
	}
	for _, path := range b.spec.importPaths(node, st.content) {
		if path == "" {
			continue
		}
		st.result.References = append(st.result.References, Reference{
			Kind:     RefImport,
			FromID:   module.ID,
			Target:   path,
			Context:  truncate(nodeText(node, st.content), referenceContextLimit),
			Location: nodeLocation(node, st.result.FilePath),
		})
	}
}

func (b *treeSitterBackend) extractAttribute(node *sitter.Node, st *extractState, encl *Element) {
	if b.spec.attribute == nil {
		return
	}
	// A member expression that is the callee of a call is a method call,
	// already captured by extractCall; counting it again would duplicate
	// the edge as an attribute access.
	if parent := node.Parent(); parent != nil && b.spec.callTypes[parent.Type()] {
		fn := parent.ChildByFieldName("function")
		if fn != nil && fn.StartByte() == node.StartByte() && fn.EndByte() == node.EndByte() {
			return
		}
	}
	property, receiver := b.spec.attribute(node, st.content)
	if property == "" {
		return
	}
	st.result.References = append(st.result.References, Reference{
		Kind:     RefAccessAttribute,
		FromID:   encl.ID,
		Target:   property,
		Receiver: receiver,
		Context:  truncate(nodeText(node, st.content), referenceContextLimit),
		Location: nodeLocation(node, st.result.FilePath),
	})
}

// extractIdentifierUse records a uses_variable candidate for a bare
// identifier inside a function or method body. Candidates are deduplicated
// per enclosing element; the resolver keeps only those that resolve to a
// known top-level variable element, which collapses the remaining noise.
func (b *treeSitterBackend) extractIdentifierUse(node *sitter.Node, st *extractState, encl *Element) {
	if encl.Kind != ElementKindFunction && encl.Kind != ElementKindMethod {
		return
	}
	parent := node.Parent()
	if parent != nil {
		pt := parent.Type()
		// Skip identifiers that are definition names, call targets, or parts
		// of attribute accesses; those are handled by their own extractors.
		if b.spec.elementTypes[pt] != "" || b.spec.callTypes[pt] ||
			b.spec.attributeTypes[pt] || b.spec.importTypes[pt] {
			return
		}
	}
	name := nodeText(node, st.content)
	if name == "" || name == encl.Name {
		return
	}
	seen := st.used[encl.ID]
	if seen == nil {
		seen = make(map[string]bool)
		st.used[encl.ID] = seen
	}
	if seen[name] {
		return
	}
	seen[name] = true

	st.result.References = append(st.result.References, Reference{
		Kind:     RefUsesVariable,
		FromID:   encl.ID,
		Target:   name,
		Context:  truncate(firstLine(nodeText(node, st.content)), referenceContextLimit),
		Location: nodeLocation(node, st.result.FilePath),
	})
}

// nodeText returns the source text of a node.
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

// nodeLocation returns the node's span as a Location.
func nodeLocation(node *sitter.Node, filePath string) Location {
	return Location{
		FilePath:  filePath,
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
		StartCol:  int(node.StartPoint().Column),
		EndCol:    int(node.EndPoint().Column),
	}
}

// leadingComments collects the run of comment nodes immediately preceding a
// declaration, joined as the doc comment. Used by the brace languages;
// Python extracts docstrings instead.
func leadingComments(node *sitter.Node, content []byte) string {
	var lines []string
	cur := node
	for {
		prev := cur.PrevNamedSibling()
		if prev == nil || prev.Type() != "comment" {
			break
		}
		// Only the contiguous run directly above the declaration counts.
		if int(cur.StartPoint().Row)-int(prev.EndPoint().Row) > 1 {
			break
		}
		lines = append([]string{nodeText(prev, content)}, lines...)
		cur = prev
	}
	return strings.Join(lines, "\n")
}

// moduleName derives a module element name from a file path (the stem).
func moduleName(filePath string) string {
	base := filepath.Base(filePath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		return filePath
	}
	return base
}

// truncate shortens s to at most limit bytes, backing up to a rune boundary
// so validated UTF-8 input stays valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
