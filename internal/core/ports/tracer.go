package ports

import "context"

// Tracer starts spans around long-running operations.
//
//go:generate mockgen -source=tracer.go -destination=mocks/mock_tracer.go -package=mocks
type Tracer interface {
	// Start opens a span named name as a child of any span in ctx.
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Span is an open trace span.
type Span interface {
	// End completes the span.
	End()

	// SetAttribute attaches a key/value pair to the span.
	SetAttribute(key string, value any)

	// RecordError marks the span failed with err. A nil err is ignored.
	RecordError(err error)
}
