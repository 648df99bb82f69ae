package app

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/taskflow/engine/internal/adapters/logger"
	"github.com/taskflow/engine/internal/adapters/telemetry"
	"github.com/taskflow/engine/internal/core/ports"
	"github.com/taskflow/engine/internal/registry"
)

// NodeID is the unique identifier for the top-level application Graft node.
const NodeID graft.ID = "app.components"

// Components is the fully-wired set of objects the CLI entrypoint needs:
// resolving this node assembles the whole dependency graph in one call.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*Components]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{registry.NodeID, logger.NodeID, telemetry.NodeID},
		Run: func(ctx context.Context) (*Components, error) {
			reg, err := graft.Dep[ports.Registry](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: New(reg, log, tracer), Logger: log}, nil
		},
	})
}
