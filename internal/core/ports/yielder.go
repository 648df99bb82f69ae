package ports

import "github.com/taskflow/engine/internal/core/domain"

// StreamChunk is one item delivered by a Yielder. Done marks the terminal
// sentinel; when Done is true, Final carries the producer's full result and
// Output is unset.
type StreamChunk struct {
	Output map[string]any
	Done   bool
	Final  domain.Result
}

// Yielder is the single-producer, multi-consumer bounded FIFO a streaming
// task uses to emit incremental output. Yield and Complete are safe to call
// from the producer only; Chan is safe to range over from any number of
// consumers. Complete is idempotent: calls after the first are no-ops.
type Yielder interface {
	Yield(chunk map[string]any)
	Complete(final domain.Result)
	Chan() <-chan StreamChunk
}
