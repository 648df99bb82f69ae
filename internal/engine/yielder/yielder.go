// Package yielder implements the single-producer, bounded async FIFO a
// streaming task uses to emit incremental chunks before a single terminal
// sentinel carrying its final Result.
package yielder

import (
	"sync"

	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
)

// DefaultBufferSize bounds how many un-consumed chunks may queue before
// Yield blocks its caller.
const DefaultBufferSize = 16

// Yielder implements ports.Yielder. It must have exactly one producer
// (calling Yield/Complete); Chan may be ranged over by any number of
// consumers, though this engine only ever attaches one.
type Yielder struct {
	ch        chan ports.StreamChunk
	once      sync.Once
	completed bool
}

// New creates a Yielder with the given buffer size. A size of 0 or less
// uses DefaultBufferSize.
func New(bufferSize int) *Yielder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Yielder{ch: make(chan ports.StreamChunk, bufferSize)}
}

// Yield enqueues an intermediate chunk. Calls after Complete are ignored.
func (y *Yielder) Yield(chunk map[string]any) {
	if y.completed {
		return
	}
	y.ch <- ports.StreamChunk{Output: chunk}
}

// Complete enqueues the single terminal chunk and closes the channel.
// Idempotent: calls after the first are no-ops.
func (y *Yielder) Complete(final domain.Result) {
	y.once.Do(func() {
		y.completed = true
		y.ch <- ports.StreamChunk{Done: true, Final: final}
		close(y.ch)
	})
}

// Chan exposes the receive-only channel consumers range over.
func (y *Yielder) Chan() <-chan ports.StreamChunk {
	return y.ch
}
