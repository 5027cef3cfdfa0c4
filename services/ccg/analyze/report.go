// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyze

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/AleutianAI/codegraph/services/ccg/graph"
	"github.com/AleutianAI/codegraph/services/ccg/index"
	"github.com/AleutianAI/codegraph/services/ccg/metrics"
)

// Report is the fully serializable form of a Result, with the graph in its
// versioned wire format. Reports round-trip: a graph loaded from a report
// answers queries identically to the one that produced it.
type Report struct {
	RunID       string                   `json:"run_id"`
	ProjectRoot string                   `json:"project_root"`
	Graph       *graph.SerializableGraph `json:"graph"`
	Metrics     metrics.Snapshot         `json:"metrics"`
	ModuleTree  *index.ModuleNode        `json:"module_tree"`
	Diagnostics []Diagnostic             `json:"diagnostics,omitempty"`
	Stats       RunStats                 `json:"stats"`
}

// Report converts the result to its serializable form.
func (r *Result) Report() *Report {
	return &Report{
		RunID:       r.RunID,
		ProjectRoot: r.ProjectRoot,
		Graph:       r.Graph.ToSerializable(),
		Metrics:     r.Metrics,
		ModuleTree:  r.ModuleTree,
		Diagnostics: r.Diagnostics,
		Stats:       r.Stats,
	}
}

// WriteJSON encodes the report to w with indentation.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// LoadReport decodes a report from r.
func LoadReport(r io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &report, nil
}
