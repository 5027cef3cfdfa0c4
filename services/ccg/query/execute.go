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
	"errors"
	"fmt"
)

// QueryKind names an operation the engine can execute.
type QueryKind string

// Supported query kinds.
const (
	QueryDependencies    QueryKind = "dependencies"
	QueryDependents      QueryKind = "dependents"
	QueryCallGraph       QueryKind = "call_graph"
	QueryInheritanceTree QueryKind = "inheritance_tree"
	QueryHotspots        QueryKind = "hotspots"
	QueryDeadCode        QueryKind = "dead_code"
)

// Request is a serializable query envelope.
type Request struct {
	// Kind selects the operation.
	Kind QueryKind `json:"kind"`

	// Name is the element name for name-based queries.
	Name string `json:"name,omitempty"`

	// MinConfidence filters dependency and dependent edges.
	MinConfidence float64 `json:"min_confidence,omitempty"`

	// MaxDepth bounds call graph traversal; 0 means the default.
	MaxDepth int `json:"max_depth,omitempty"`

	// TopN is the hotspot count; 0 means the default.
	TopN int `json:"top_n,omitempty"`

	// EntryPatterns are glob patterns naming dead-code entry points.
	EntryPatterns []string `json:"entry_patterns,omitempty"`
}

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// QueryError describes a failed query in a Response.
type QueryError struct {
	// Kind is a stable machine-readable error class: "not_found",
	// "invalid_params", or "internal".
	Kind string `json:"kind"`

	// Detail is the human-readable message.
	Detail string `json:"detail"`
}

// Response is the serializable query result envelope.
type Response struct {
	// Status is "success" or "error".
	Status string `json:"status"`

	// Result holds the query-specific payload on success.
	Result any `json:"query_result,omitempty"`

	// Error describes the failure when Status is "error".
	Error *QueryError `json:"error,omitempty"`
}

// Execute runs a request and wraps the outcome in a Response.
//
// Description:
//
//	All failures are expressed in the envelope, never as a Go error: the
//	envelope is the wire format for CLI and service consumers, and a query
//	for a missing name is an answer, not a crash.
func (e *Engine) Execute(req Request) Response {
	result, err := e.dispatch(req)
	if err != nil {
		return Response{Status: StatusError, Error: classify(err)}
	}
	return Response{Status: StatusSuccess, Result: result}
}

// dispatch routes the request to the matching engine operation.
func (e *Engine) dispatch(req Request) (any, error) {
	switch req.Kind {
	case QueryDependencies:
		return e.Dependencies(req.Name, req.MinConfidence)
	case QueryDependents:
		return e.Dependents(req.Name, req.MinConfidence)
	case QueryCallGraph:
		return e.CallGraph(req.Name, req.MaxDepth)
	case QueryInheritanceTree:
		return e.InheritanceTree(req.Name)
	case QueryHotspots:
		return e.Hotspots(req.TopN), nil
	case QueryDeadCode:
		return e.DeadCode(req.EntryPatterns)
	default:
		return nil, fmt.Errorf("%w: unknown query kind %q", ErrInvalidParams, req.Kind)
	}
}

// classify maps engine errors to stable response error kinds.
func classify(err error) *QueryError {
	switch {
	case errors.Is(err, ErrNotFound):
		return &QueryError{Kind: "not_found", Detail: err.Error()}
	case errors.Is(err, ErrInvalidParams):
		return &QueryError{Kind: "invalid_params", Detail: err.Error()}
	default:
		return &QueryError{Kind: "internal", Detail: err.Error()}
	}
}
