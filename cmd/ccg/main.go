// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// ccg analyzes a codebase into a code context graph and answers structural
// queries over it.
//
// Usage:
//
//	ccg analyze ./myproject -o graph.json
//	ccg query graph.json dependencies --name process_data
//	ccg query graph.json hotspots --top 10
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "ccg",
		Short: "Code context graph analyzer",
		Long: "ccg parses source files (Python, JavaScript, TypeScript, Go) into a\n" +
			"graph of code elements and confidence-scored relationships, computes\n" +
			"complexity metrics, and answers structural queries.",
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newQueryCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
