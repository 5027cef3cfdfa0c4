// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index provides fast lookup structures over extracted code elements.
// The element index is the bridge between the extraction and resolution
// phases: extraction populates it, Freeze seals it, and the resolver reads
// it to turn reference candidates into relationships.
package index

import (
	"fmt"
	"path"
	"sync"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
)

// DefaultMaxElements is the default maximum number of elements the index
// can hold.
const DefaultMaxElements = 1_000_000

// ElementIndexOptions configures ElementIndex behavior and limits.
type ElementIndexOptions struct {
	// MaxElements is the maximum number of elements the index can hold.
	// Attempting to add more returns ErrMaxElementsExceeded.
	// Default: 1,000,000
	MaxElements int
}

// DefaultElementIndexOptions returns the default options.
func DefaultElementIndexOptions() ElementIndexOptions {
	return ElementIndexOptions{
		MaxElements: DefaultMaxElements,
	}
}

// ElementIndexOption is a functional option for configuring ElementIndex.
type ElementIndexOption func(*ElementIndexOptions)

// WithMaxElements sets the maximum number of elements the index can hold.
func WithMaxElements(max int) ElementIndexOption {
	return func(o *ElementIndexOptions) {
		if max > 0 {
			o.MaxElements = max
		}
	}
}

// IndexStats contains statistics about the element index.
type IndexStats struct {
	// TotalElements is the total number of elements in the index.
	TotalElements int

	// ByKind maps each ElementKind to the count of elements of that kind.
	ByKind map[ast.ElementKind]int

	// FileCount is the number of unique files with elements in the index.
	FileCount int

	// MaxElements is the configured maximum capacity.
	MaxElements int

	// Frozen reports whether the index has been sealed.
	Frozen bool
}

// ElementIndex provides O(1) lookups of code elements by ID, name, file,
// kind, and module directory.
//
// Description:
//
//	Extraction workers add elements concurrently; once every file has been
//	processed, Freeze seals the index and resolution begins. The freeze is
//	the barrier that makes cross-file forward references work: no resolver
//	runs until every element that could be a resolution target exists.
//
// Thread Safety:
//
//	ElementIndex is safe for concurrent use. After Freeze, all writes fail
//	with ErrIndexFrozen.
//
// Ownership:
//
//	The index stores pointers to elements but does not own them. Elements
//	must not be mutated after being added.
type ElementIndex struct {
	mu sync.RWMutex

	byID   map[string]*ast.Element
	byName map[string][]*ast.Element
	byFile map[string][]*ast.Element
	byKind map[ast.ElementKind][]*ast.Element

	// byModule groups elements by the directory of their file, the unit
	// used for module-scope resolution.
	byModule map[string][]*ast.Element

	totalCount int
	kindCounts map[ast.ElementKind]int
	frozen     bool

	options ElementIndexOptions
}

// NewElementIndex creates a new empty element index.
//
// Example:
//
//	idx := NewElementIndex()
//	idx := NewElementIndex(WithMaxElements(100_000))
func NewElementIndex(opts ...ElementIndexOption) *ElementIndex {
	options := DefaultElementIndexOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &ElementIndex{
		byID:       make(map[string]*ast.Element),
		byName:     make(map[string][]*ast.Element),
		byFile:     make(map[string][]*ast.Element),
		byKind:     make(map[ast.ElementKind][]*ast.Element),
		byModule:   make(map[string][]*ast.Element),
		kindCounts: make(map[ast.ElementKind]int),
		options:    options,
	}
}

// ModuleDir returns the module grouping key for a file path (its directory,
// "." for root-level files).
func ModuleDir(filePath string) string {
	return path.Dir(filePath)
}

// Add adds a single element to the index.
//
// Outputs:
//
//	error - ErrInvalidElement, ErrDuplicateElement, ErrMaxElementsExceeded,
//	        or ErrIndexFrozen.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (idx *ElementIndex) Add(elem *ast.Element) error {
	if elem == nil {
		return fmt.Errorf("%w: element is nil", ErrInvalidElement)
	}
	if err := elem.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidElement, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.frozen {
		return ErrIndexFrozen
	}
	if idx.totalCount >= idx.options.MaxElements {
		return ErrMaxElementsExceeded
	}
	if _, exists := idx.byID[elem.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateElement, elem.ID)
	}

	idx.addLocked(elem)
	return nil
}

// AddBatch adds all of a file's elements atomically. If any element fails
// validation or duplicates an existing ID, no element is added and the
// returned *BatchError lists every problem.
//
// Thread Safety:
//
//	Safe for concurrent use; extraction workers call this once per file.
func (idx *ElementIndex) AddBatch(elems []*ast.Element) error {
	if len(elems) == 0 {
		return nil
	}

	// Validate everything before taking the lock.
	var errs []error
	seen := make(map[string]int, len(elems))
	for i, elem := range elems {
		if elem == nil {
			errs = append(errs, fmt.Errorf("element[%d]: %w: element is nil", i, ErrInvalidElement))
			continue
		}
		if err := elem.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("element[%d]: %w: %v", i, ErrInvalidElement, err))
			continue
		}
		if first, exists := seen[elem.ID]; exists {
			errs = append(errs, fmt.Errorf("element[%d]: duplicate ID in batch (same as element[%d]): %s",
				i, first, elem.ID))
		} else {
			seen[elem.ID] = i
		}
	}
	if len(errs) > 0 {
		return &BatchError{Errors: errs}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.frozen {
		return ErrIndexFrozen
	}
	if idx.totalCount+len(elems) > idx.options.MaxElements {
		return ErrMaxElementsExceeded
	}
	for i, elem := range elems {
		if _, exists := idx.byID[elem.ID]; exists {
			errs = append(errs, fmt.Errorf("element[%d]: %w: %s", i, ErrDuplicateElement, elem.ID))
		}
	}
	if len(errs) > 0 {
		return &BatchError{Errors: errs}
	}

	for _, elem := range elems {
		idx.addLocked(elem)
	}
	return nil
}

// addLocked adds an element to all indexes. Caller must hold idx.mu.
func (idx *ElementIndex) addLocked(elem *ast.Element) {
	idx.byID[elem.ID] = elem
	idx.byName[elem.Name] = append(idx.byName[elem.Name], elem)
	idx.byFile[elem.FilePath] = append(idx.byFile[elem.FilePath], elem)
	idx.byKind[elem.Kind] = append(idx.byKind[elem.Kind], elem)
	idx.byModule[ModuleDir(elem.FilePath)] = append(idx.byModule[ModuleDir(elem.FilePath)], elem)

	idx.totalCount++
	idx.kindCounts[elem.Kind]++
}

// Freeze seals the index. All subsequent writes fail with ErrIndexFrozen.
// Freezing an already frozen index is a no-op.
func (idx *ElementIndex) Freeze() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.frozen = true
}

// Frozen reports whether the index has been sealed.
func (idx *ElementIndex) Frozen() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.frozen
}

// GetByID retrieves an element by its unique ID.
func (idx *ElementIndex) GetByID(id string) (*ast.Element, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	elem, exists := idx.byID[id]
	return elem, exists
}

// GetByName retrieves all elements with the given name. Multiple elements
// can share a name across files; the returned slice is a defensive copy.
func (idx *ElementIndex) GetByName(name string) []*ast.Element {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyElems(idx.byName[name])
}

// GetByFile retrieves all elements in the given file.
func (idx *ElementIndex) GetByFile(filePath string) []*ast.Element {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyElems(idx.byFile[filePath])
}

// GetByKind retrieves all elements of the given kind.
func (idx *ElementIndex) GetByKind(kind ast.ElementKind) []*ast.Element {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyElems(idx.byKind[kind])
}

// GetByModule retrieves all elements whose file lives in the given module
// directory (see ModuleDir).
func (idx *ElementIndex) GetByModule(moduleDir string) []*ast.Element {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyElems(idx.byModule[moduleDir])
}

// All returns every element in the index, in unspecified order.
func (idx *ElementIndex) All() []*ast.Element {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]*ast.Element, 0, idx.totalCount)
	for _, elem := range idx.byID {
		out = append(out, elem)
	}
	return out
}

// Len returns the number of elements in the index.
func (idx *ElementIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.totalCount
}

// Stats returns a snapshot of index statistics.
func (idx *ElementIndex) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	byKind := make(map[ast.ElementKind]int, len(idx.kindCounts))
	for k, v := range idx.kindCounts {
		byKind[k] = v
	}
	return IndexStats{
		TotalElements: idx.totalCount,
		ByKind:        byKind,
		FileCount:     len(idx.byFile),
		MaxElements:   idx.options.MaxElements,
		Frozen:        idx.frozen,
	}
}

// copyElems returns a defensive copy of the given slice.
func copyElems(src []*ast.Element) []*ast.Element {
	if len(src) == 0 {
		return nil
	}
	out := make([]*ast.Element, len(src))
	copy(out, src)
	return out
}
