package indexer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("symtrail.indexer")

func startPassSpan(ctx context.Context, fileID string, version int, forced bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Indexer.Pass",
		trace.WithAttributes(
			attribute.String("index.file", fileID),
			attribute.Int("index.version", version),
			attribute.Bool("index.forced", forced),
		),
	)
}

func setPassSpanResult(span trace.Span, outcome Outcome, symbolCount int) {
	span.SetAttributes(
		attribute.String("index.outcome", string(outcome)),
		attribute.Int("index.symbols", symbolCount),
	)
}
