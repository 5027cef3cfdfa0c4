// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"sort"
	"strings"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
)

// ModuleNode is one directory in the module hierarchy.
//
// The hierarchy mirrors the directory tree of the analyzed files: each node
// is a directory, its children are subdirectories, and Modules lists the
// module elements (one per source file) directly inside it.
type ModuleNode struct {
	// Name is the directory base name; "" for the root node.
	Name string `json:"name"`

	// Path is the directory path relative to the analysis root, forward
	// slashes; "." for the root node.
	Path string `json:"path"`

	// Modules are the IDs of module elements for files directly in this
	// directory, sorted by file path.
	Modules []string `json:"modules,omitempty"`

	// Children are the subdirectory nodes, sorted by name.
	Children []*ModuleNode `json:"children,omitempty"`
}

// BuildModuleTree constructs the module hierarchy from the module elements
// in a frozen index.
//
// Description:
//
//	Walks every module-kind element and inserts it under the node for its
//	file's directory, creating intermediate directory nodes as needed. The
//	output is deterministic: children and modules are sorted.
//
// Thread Safety:
//
//	Safe to call concurrently with index reads.
func BuildModuleTree(idx *ElementIndex) *ModuleNode {
	root := &ModuleNode{Name: "", Path: "."}

	modules := idx.GetByKind(ast.ElementKindModule)
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].FilePath < modules[j].FilePath
	})

	for _, m := range modules {
		node := root
		dir := ModuleDir(m.FilePath)
		if dir != "." {
			for _, part := range strings.Split(dir, "/") {
				node = node.child(part)
			}
		}
		node.Modules = append(node.Modules, m.ID)
	}

	root.sortTree()
	return root
}

// child returns the child node with the given name, creating it if needed.
func (n *ModuleNode) child(name string) *ModuleNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	childPath := name
	if n.Path != "." {
		childPath = n.Path + "/" + name
	}
	c := &ModuleNode{Name: name, Path: childPath}
	n.Children = append(n.Children, c)
	return c
}

// sortTree sorts children recursively for deterministic output.
func (n *ModuleNode) sortTree() {
	sort.Slice(n.Children, func(i, j int) bool {
		return n.Children[i].Name < n.Children[j].Name
	})
	for _, c := range n.Children {
		c.sortTree()
	}
}

// Walk visits every node depth-first, root first.
func (n *ModuleNode) Walk(visit func(*ModuleNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// Count returns the number of directory nodes in the tree, including n.
func (n *ModuleNode) Count() int {
	count := 0
	n.Walk(func(*ModuleNode) { count++ })
	return count
}
