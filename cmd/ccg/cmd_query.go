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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/services/ccg/analyze"
	"github.com/AleutianAI/codegraph/services/ccg/config"
	"github.com/AleutianAI/codegraph/services/ccg/graph"
	"github.com/AleutianAI/codegraph/services/ccg/query"
)

func newQueryCommand() *cobra.Command {
	var (
		name          string
		minConfidence float64
		maxDepth      int
		topN          int
		entryPatterns []string
	)

	cmd := &cobra.Command{
		Use:   "query <report.json> <kind>",
		Short: "Run a structural query against a saved report",
		Long: "Kinds: dependencies, dependents, call_graph, inheritance_tree,\n" +
			"hotspots, dead_code. The report is produced by 'ccg analyze -o'.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(args[0], query.Request{
				Kind:          query.QueryKind(args[1]),
				Name:          name,
				MinConfidence: minConfidence,
				MaxDepth:      maxDepth,
				TopN:          topN,
				EntryPatterns: entryPatterns,
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "element name for name-based queries")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "minimum edge confidence")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "call graph depth limit")
	cmd.Flags().IntVar(&topN, "top", 0, "hotspot count")
	cmd.Flags().StringSliceVar(&entryPatterns, "entry", nil, "dead-code entry point globs")
	return cmd
}

func runQuery(reportPath string, req query.Request) error {
	f, err := os.Open(reportPath)
	if err != nil {
		return fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	report, err := analyze.LoadReport(f)
	if err != nil {
		return err
	}
	cfg, err := config.Load(report.ProjectRoot)
	if err != nil {
		return err
	}
	applyConfigDefaults(&req, cfg)

	g, err := graph.FromSerializable(report.Graph)
	if err != nil {
		return fmt.Errorf("reconstructing graph: %w", err)
	}

	resp := query.NewEngine(g).Execute(req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if resp.Status != query.StatusSuccess {
		os.Exit(1)
	}
	return nil
}

// applyConfigDefaults fills request parameters the flags left unset from the
// project's configuration, so ccg.config.yaml governs queries the same way
// it governs analysis.
func applyConfigDefaults(req *query.Request, cfg config.Config) {
	if req.MinConfidence == 0 {
		req.MinConfidence = cfg.MinConfidence
	}
	if len(req.EntryPatterns) == 0 {
		req.EntryPatterns = cfg.EntryPatterns
	}
}
