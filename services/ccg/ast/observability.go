// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var parserTracer = otel.Tracer("ccg.ast")

var (
	parseMetricsOnce   sync.Once
	parseCounter       metric.Int64Counter
	parseErrorCounter  metric.Int64Counter
	parseDurationHist  metric.Float64Histogram
	parseElementsCount metric.Int64Counter
)

// initParseMetrics creates the instruments on first use. Instrument creation
// errors fall back to no-op instruments and are not worth failing a parse for.
func initParseMetrics() {
	meter := otel.Meter("ccg.ast")
	parseCounter, _ = meter.Int64Counter("ccg.parse.files",
		metric.WithDescription("Number of files parsed"))
	parseErrorCounter, _ = meter.Int64Counter("ccg.parse.errors",
		metric.WithDescription("Number of failed parses"))
	parseDurationHist, _ = meter.Float64Histogram("ccg.parse.duration_ms",
		metric.WithDescription("Per-file parse duration in milliseconds"))
	parseElementsCount, _ = meter.Int64Counter("ccg.parse.elements",
		metric.WithDescription("Number of elements extracted"))
}

// startParseSpan begins the per-file parse span.
func startParseSpan(ctx context.Context, language, filePath string, sizeBytes int) (context.Context, trace.Span) {
	return parserTracer.Start(ctx, "ast.Backend.Parse",
		trace.WithAttributes(
			attribute.String("ccg.language", language),
			attribute.String("ccg.file", filePath),
			attribute.Int("ccg.size_bytes", sizeBytes),
		))
}

// setParseSpanResult records the extraction counts on the parse span.
func setParseSpanResult(span trace.Span, elements, references, errors int) {
	span.SetAttributes(
		attribute.Int("ccg.elements", elements),
		attribute.Int("ccg.references", references),
		attribute.Int("ccg.file_errors", errors),
	)
}

// recordParseMetrics records the per-file parse counters and duration.
func recordParseMetrics(ctx context.Context, language string, elapsed time.Duration, elements int, ok bool) {
	parseMetricsOnce.Do(initParseMetrics)

	attrs := metric.WithAttributes(attribute.String("ccg.language", language))
	if parseCounter != nil {
		parseCounter.Add(ctx, 1, attrs)
	}
	if !ok && parseErrorCounter != nil {
		parseErrorCounter.Add(ctx, 1, attrs)
	}
	if parseDurationHist != nil {
		parseDurationHist.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	}
	if elements > 0 && parseElementsCount != nil {
		parseElementsCount.Add(ctx, int64(elements), attrs)
	}
}
