package registry

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/taskflow/engine/internal/core/ports"
	"github.com/taskflow/engine/internal/tasks/builtin"
)

// NodeID is the unique identifier for the task registry Graft node. The
// produced Registry comes pre-populated with the builtin task types
// (echo, sleep, flaky, streaming_emitter); callers register additional
// domain-specific types on top of it before constructing a Workflow.
const NodeID graft.ID = "engine.registry"

func init() {
	graft.Register(graft.Node[ports.Registry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Registry, error) {
			reg := New()
			if err := builtin.Register(reg); err != nil {
				return nil, err
			}
			return reg, nil
		},
	})
}
