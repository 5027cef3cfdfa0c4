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
	"sort"
	"sync"
)

// Stage names the analysis phase a diagnostic originated in.
type Stage string

// Analysis stages.
const (
	StageExtraction Stage = "extraction"
	StageResolution Stage = "resolution"
	StageBuild      Stage = "build"
)

// Diagnostic records one non-fatal problem encountered during analysis.
// The run continues; the diagnostic tells the caller what was skipped or
// dropped and why.
type Diagnostic struct {
	// Stage is the phase the problem occurred in.
	Stage Stage `json:"stage"`

	// FilePath is the file involved, if any.
	FilePath string `json:"file_path,omitempty"`

	// Kind is a stable machine-readable class: "unsupported_language",
	// "file_too_large", "parse_error", "file_error",
	// "unresolved_reference", "edge_error".
	Kind string `json:"kind"`

	// Detail is the human-readable message.
	Detail string `json:"detail"`
}

// diagCollector accumulates diagnostics from concurrent workers.
type diagCollector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (c *diagCollector) add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// all returns the collected diagnostics sorted by (stage, file, detail) for
// deterministic reports.
func (c *diagCollector) all() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].Detail < out[j].Detail
	})
	return out
}
