package ports

import "context"

//go:generate mockgen -source=telemetry.go -destination=mocks/telemetry_mock.go -package=mocks

// Tracer starts spans around task execution. The scheduler's control flow
// never depends on a span's content; a no-op Tracer is a valid substitute.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Span is a single traced unit of work.
type Span interface {
	End()
	RecordError(err error)
	SetAttribute(key string, value any)
}
