// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"testing"

	"github.com/AleutianAI/codegraph/services/ccg/config"
	"github.com/AleutianAI/codegraph/services/ccg/query"
)

func TestApplyConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.MinConfidence = 0.6
	cfg.EntryPatterns = []string{"run_*"}

	t.Run("unset flags take config values", func(t *testing.T) {
		req := query.Request{Kind: query.QueryDeadCode}
		applyConfigDefaults(&req, cfg)
		if req.MinConfidence != 0.6 {
			t.Errorf("MinConfidence = %f, want 0.6 from config", req.MinConfidence)
		}
		if len(req.EntryPatterns) != 1 || req.EntryPatterns[0] != "run_*" {
			t.Errorf("EntryPatterns = %v, want config patterns", req.EntryPatterns)
		}
	})

	t.Run("explicit flags win", func(t *testing.T) {
		req := query.Request{
			Kind:          query.QueryDependencies,
			MinConfidence: 0.3,
			EntryPatterns: []string{"main"},
		}
		applyConfigDefaults(&req, cfg)
		if req.MinConfidence != 0.3 {
			t.Errorf("MinConfidence = %f, want flag value 0.3", req.MinConfidence)
		}
		if len(req.EntryPatterns) != 1 || req.EntryPatterns[0] != "main" {
			t.Errorf("EntryPatterns = %v, want flag value", req.EntryPatterns)
		}
	})
}
