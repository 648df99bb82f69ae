// Package app implements the application layer that wires a parsed
// workflow file to the engine and runs it to completion.
package app

import (
	"context"

	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
	"github.com/taskflow/engine/internal/workflowfile"
	"go.trai.ch/zerr"
)

// App ties together the task registry, logger, and tracer needed to load
// and run a workflow file.
type App struct {
	registry ports.Registry
	logger   ports.Logger
	tracer   ports.Tracer
}

// New creates an App from its resolved dependencies.
func New(reg ports.Registry, log ports.Logger, tracer ports.Tracer) *App {
	return &App{registry: reg, logger: log, tracer: tracer}
}

// RunOptions configures a single workflow run.
type RunOptions struct {
	// NoCache disables any cache backend configured in the workflow file,
	// forcing every task to execute regardless of cache_enabled.
	NoCache bool
}

// Run loads the workflow file at path and drives it to completion,
// returning the terminal result of every task and group by name.
func (a *App) Run(ctx context.Context, path string, opts RunOptions) (map[string]domain.Result, error) {
	wf, err := workflowfile.Load(path, a.registry)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load workflow file")
	}

	wf.SetLogger(a.logger)
	wf.SetTracer(a.tracer)
	if opts.NoCache {
		wf.SetCacheEnabled(false)
	}

	a.logger.Info("running workflow " + path)
	results, err := wf.Run(ctx)
	if err != nil {
		return results, zerr.Wrap(err, "workflow run failed")
	}
	return results, nil
}
