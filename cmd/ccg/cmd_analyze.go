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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/services/ccg/analyze"
	"github.com/AleutianAI/codegraph/services/ccg/ast"
	"github.com/AleutianAI/codegraph/services/ccg/config"
	"github.com/AleutianAI/codegraph/services/ccg/metrics"
)

// Directories never worth analyzing.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
}

func newAnalyzeCommand() *cobra.Command {
	var (
		outputPath string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "analyze <project-root>",
		Short: "Analyze a project into a code context graph report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], outputPath, workers)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the JSON report to a file (default stdout)")
	cmd.Flags().IntVar(&workers, "workers", 0, "extraction worker count (default NumCPU)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, projectRoot, outputPath string, workers int) error {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	registry := ast.DefaultRegistry(ast.WithMaxFileSize(cfg.MaxFileSizeBytes))
	if len(cfg.Languages) > 0 {
		registry = ast.RegistryForLanguages(cfg.Languages,
			ast.WithMaxFileSize(cfg.MaxFileSizeBytes))
	}

	files, err := collectFiles(projectRoot, registry)
	if err != nil {
		return fmt.Errorf("collecting files: %w", err)
	}

	analyzer := analyze.New(registry,
		analyze.WithWorkers(cfg.Workers),
		analyze.WithMaxElements(cfg.MaxElements),
		analyze.WithMetricsOptions(
			metrics.WithComplexityThresholds(cfg.MediumComplexity, cfg.HighComplexity)),
	)

	result, err := analyzer.Analyze(cmd.Context(), projectRoot, files)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := result.Report().WriteJSON(out); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "analyzed %d files: %d elements, %d relationships, %d diagnostics\n",
		result.Stats.FilesParsed, result.Stats.Elements, result.Stats.Relationships,
		len(result.Diagnostics))
	return nil
}

// collectFiles walks the project root and reads every file whose extension a
// registered backend handles. Paths in the result are root-relative with
// forward slashes.
func collectFiles(projectRoot string, registry *ast.Registry) ([]analyze.FileInput, error) {
	var files []analyze.FileInput

	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && path != projectRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := registry.Select(path); !ok {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return err
		}
		files = append(files, analyze.FileInput{
			Path:    filepath.ToSlash(rel),
			Content: content,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
