// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyze orchestrates the full pipeline: parallel extraction into
// the element index, the freeze barrier, parallel resolution, graph
// assembly, and metrics.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/codegraph/services/ccg/ast"
	"github.com/AleutianAI/codegraph/services/ccg/graph"
	"github.com/AleutianAI/codegraph/services/ccg/index"
	"github.com/AleutianAI/codegraph/services/ccg/metrics"
	"github.com/AleutianAI/codegraph/services/ccg/resolve"
)

var analyzerTracer = otel.Tracer("ccg.analyze")

// ErrNoBackends indicates the analyzer was constructed with an empty
// language registry. Nothing could ever be extracted, so the run aborts
// instead of silently producing an empty graph.
var ErrNoBackends = errors.New("no language backends registered")

// FileInput is one source file to analyze. Content is provided by the
// caller so the analyzer itself never touches the filesystem.
type FileInput struct {
	// Path is the file path relative to the project root, forward slashes.
	Path string

	// Content is the raw file content.
	Content []byte
}

// Result is the complete output of one analysis run.
type Result struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`

	// ProjectRoot is the analyzed root, as given.
	ProjectRoot string `json:"project_root"`

	// Graph is the frozen code context graph.
	Graph *graph.Graph `json:"-"`

	// Metrics is the graph-wide metrics snapshot.
	Metrics metrics.Snapshot `json:"metrics"`

	// ModuleTree is the directory-shaped module hierarchy.
	ModuleTree *index.ModuleNode `json:"module_tree"`

	// Diagnostics lists every non-fatal problem, sorted.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Stats summarizes the run.
	Stats RunStats `json:"stats"`
}

// RunStats summarizes an analysis run.
type RunStats struct {
	// FilesTotal is the number of input files.
	FilesTotal int `json:"files_total"`

	// FilesParsed is the number of files that produced a FileResult.
	FilesParsed int `json:"files_parsed"`

	// FilesSkipped counts unsupported-language files.
	FilesSkipped int `json:"files_skipped"`

	// FilesFailed counts files whose parse failed entirely.
	FilesFailed int `json:"files_failed"`

	// Elements and Relationships are the final graph sizes.
	Elements      int `json:"elements"`
	Relationships int `json:"relationships"`

	// DroppedReferences counts references that resolved to nothing.
	DroppedReferences int `json:"dropped_references"`

	// Cycles is the number of dependency cycles (informational).
	Cycles int `json:"cycles"`

	// Duration is the wall-clock run time.
	Duration time.Duration `json:"duration_ns"`
}

// Options configures the Analyzer.
type Options struct {
	// Workers bounds extraction and resolution parallelism.
	// Default: runtime.NumCPU().
	Workers int

	// MaxElements caps the element index and graph arena.
	MaxElements int

	// MetricsOptions are forwarded to the metrics engine.
	MetricsOptions []metrics.Option

	// ResolveOptions are forwarded to the resolver.
	ResolveOptions []resolve.Option
}

// Option is a functional option for configuring the Analyzer.
type Option func(*Options)

// WithWorkers sets the worker count for the parallel phases.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// WithMaxElements caps the element index and graph arena.
func WithMaxElements(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxElements = n
		}
	}
}

// WithMetricsOptions forwards options to the metrics engine.
func WithMetricsOptions(opts ...metrics.Option) Option {
	return func(o *Options) {
		o.MetricsOptions = append(o.MetricsOptions, opts...)
	}
}

// WithResolveOptions forwards options to the resolver.
func WithResolveOptions(opts ...resolve.Option) Option {
	return func(o *Options) {
		o.ResolveOptions = append(o.ResolveOptions, opts...)
	}
}

// Analyzer runs the extraction → resolution → build → metrics pipeline.
//
// Description:
//
//	The two-phase design is the core correctness property: extraction runs
//	in parallel and populates the element index, the index freeze is the
//	barrier, and only then does resolution read it. A reference in the
//	first file to a definition in the last file resolves identically to
//	the reverse order.
//
// Thread Safety:
//
//	Analyzer is stateless between runs and safe for concurrent use; each
//	Analyze call uses run-local state only.
type Analyzer struct {
	registry *ast.Registry
	options  Options
}

// New creates an Analyzer over the given language registry.
func New(registry *ast.Registry, opts ...Option) *Analyzer {
	options := Options{
		Workers:     runtime.NumCPU(),
		MaxElements: index.DefaultMaxElements,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Analyzer{registry: registry, options: options}
}

// Analyze runs the full pipeline over the given files.
//
// Description:
//
//	Per-file failures (unsupported language, oversized file, invalid
//	content, total parse failure) become diagnostics, not run failures:
//	one broken file costs its own contents, never the run. Only an empty
//	registry, context cancellation, or an internal build failure aborts.
//
// Outputs:
//   - *Result: The frozen graph with metrics, module tree, diagnostics,
//     and stats. Empty input yields a valid empty graph.
//   - error: ErrNoBackends, a context error, or a fatal build error.
func (a *Analyzer) Analyze(ctx context.Context, projectRoot string, files []FileInput) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := analyzerTracer.Start(ctx, "analyze.Analyzer.Analyze",
		trace.WithAttributes(
			attribute.String("ccg.run_id", runID),
			attribute.Int("ccg.files", len(files)),
		))
	defer span.End()

	if a.registry == nil || a.registry.Len() == 0 {
		return nil, ErrNoBackends
	}

	start := time.Now()
	logger := slog.With(slog.String("run_id", runID))
	logger.Info("analysis starting",
		slog.Int("files", len(files)),
		slog.Int("workers", a.options.Workers))

	diags := &diagCollector{}
	stats := RunStats{FilesTotal: len(files)}

	idx := index.NewElementIndex(index.WithMaxElements(a.options.MaxElements))
	fileResults, err := a.extract(ctx, files, idx, diags, &stats)
	if err != nil {
		return nil, err
	}

	// The barrier: every element that could be a resolution target now
	// exists. Resolution must never observe a mutating index.
	idx.Freeze()

	relations, droppedTotal, err := a.resolveAll(ctx, fileResults, idx, diags)
	if err != nil {
		return nil, err
	}
	stats.DroppedReferences = droppedTotal

	builder := graph.NewBuilder(
		graph.WithProjectRoot(projectRoot),
		graph.WithBuilderMaxElements(a.options.MaxElements),
	)
	g, buildStats, err := builder.Build(ctx, idx.All(), relations)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}
	for _, edgeErr := range buildStats.EdgeErrors {
		diags.add(Diagnostic{
			Stage:  StageBuild,
			Kind:   "edge_error",
			Detail: edgeErr.Error(),
		})
	}

	engine := metrics.NewEngine(a.options.MetricsOptions...)
	engine.Annotate(g.Elements())
	snapshot := engine.Compute(g)

	stats.Elements = g.ElementCount()
	stats.Relationships = g.RelationCount()
	stats.Cycles = buildStats.Cycles
	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("ccg.elements", stats.Elements),
		attribute.Int("ccg.relationships", stats.Relationships),
		attribute.Int("ccg.dropped_references", stats.DroppedReferences),
	)

	logger.Info("analysis complete",
		slog.Int("elements", stats.Elements),
		slog.Int("relationships", stats.Relationships),
		slog.Int("files_failed", stats.FilesFailed),
		slog.Duration("duration", stats.Duration))

	return &Result{
		RunID:       runID,
		ProjectRoot: projectRoot,
		Graph:       g,
		Metrics:     snapshot,
		ModuleTree:  index.BuildModuleTree(idx),
		Diagnostics: diags.all(),
		Stats:       stats,
	}, nil
}

// extract parses all files in parallel and populates the index.
func (a *Analyzer) extract(ctx context.Context, files []FileInput, idx *index.ElementIndex, diags *diagCollector, stats *RunStats) ([]*ast.FileResult, error) {
	resultCh := make(chan *ast.FileResult, len(files))

	var mu sync.Mutex
	counts := struct{ parsed, skipped, failed int }{}

	eg, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, a.options.Workers)

	for _, file := range files {
		f := file
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := gctx.Err(); err != nil {
				return err
			}

			backend, ok := a.registry.Select(f.Path)
			if !ok {
				diags.add(Diagnostic{
					Stage:    StageExtraction,
					FilePath: f.Path,
					Kind:     "unsupported_language",
					Detail:   "no backend for file extension",
				})
				mu.Lock()
				counts.skipped++
				mu.Unlock()
				return nil
			}

			result, err := backend.Parse(gctx, f.Content, f.Path)
			if err != nil {
				// Cancellation must stop the run; everything else costs
				// only this file.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if errors.Is(err, ast.ErrFileTooLarge) {
					diags.add(Diagnostic{
						Stage:    StageExtraction,
						FilePath: f.Path,
						Kind:     "file_too_large",
						Detail:   err.Error(),
					})
					mu.Lock()
					counts.skipped++
					mu.Unlock()
					return nil
				}
				diags.add(Diagnostic{
					Stage:    StageExtraction,
					FilePath: f.Path,
					Kind:     "parse_error",
					Detail:   err.Error(),
				})
				mu.Lock()
				counts.failed++
				mu.Unlock()
				return nil
			}

			for _, msg := range result.Errors {
				diags.add(Diagnostic{
					Stage:    StageExtraction,
					FilePath: f.Path,
					Kind:     "file_error",
					Detail:   msg,
				})
			}

			if err := idx.AddBatch(result.Elements); err != nil {
				diags.add(Diagnostic{
					Stage:    StageExtraction,
					FilePath: f.Path,
					Kind:     "file_error",
					Detail:   fmt.Sprintf("indexing failed: %v", err),
				})
				mu.Lock()
				counts.failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			counts.parsed++
			mu.Unlock()
			resultCh <- result
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}
	close(resultCh)

	stats.FilesParsed = counts.parsed
	stats.FilesSkipped = counts.skipped
	stats.FilesFailed = counts.failed

	results := make([]*ast.FileResult, 0, counts.parsed)
	for r := range resultCh {
		results = append(results, r)
	}
	return results, nil
}

// resolveAll resolves every file's references in parallel against the
// frozen index.
func (a *Analyzer) resolveAll(ctx context.Context, fileResults []*ast.FileResult, idx *index.ElementIndex, diags *diagCollector) ([]graph.Relationship, int, error) {
	resolver := resolve.NewResolver(idx, a.options.ResolveOptions...)

	var (
		mu        sync.Mutex
		relations []graph.Relationship
		dropped   int
	)

	sem := semaphore.NewWeighted(int64(a.options.Workers))
	eg, gctx := errgroup.WithContext(ctx)

	for _, fr := range fileResults {
		r := fr
		eg.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			edges, drops, err := resolver.Resolve(gctx, r.References)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", r.FilePath, err)
			}

			for _, d := range drops {
				diags.add(Diagnostic{
					Stage:    StageResolution,
					FilePath: d.Ref.Location.FilePath,
					Kind:     "unresolved_reference",
					Detail:   fmt.Sprintf("%s %q: %s", d.Ref.Kind, d.Ref.Target, d.Reason),
				})
			}

			mu.Lock()
			relations = append(relations, edges...)
			dropped += len(drops)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, 0, fmt.Errorf("resolution: %w", err)
	}
	return relations, dropped, nil
}
