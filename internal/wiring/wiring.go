// Package wiring registers all Graft nodes for the application: import it
// for side effects once at program startup, before resolving any node.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/taskflow/engine/internal/adapters/logger"
	_ "github.com/taskflow/engine/internal/adapters/telemetry"
	// Register engine nodes.
	_ "github.com/taskflow/engine/internal/registry"
	// Register the top-level application node.
	_ "github.com/taskflow/engine/internal/app"
)
