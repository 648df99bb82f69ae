// Package group materializes and runs TaskGroup and StreamingTaskGroup
// children: one task instance per item found at a group's ForEach path,
// bounded by a semaphore, aggregated permissively into {results: [...]}.
package group

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
	"github.com/taskflow/engine/internal/engine/pathresolver"
	"github.com/taskflow/engine/internal/engine/taskbuild"
	"github.com/taskflow/engine/internal/engine/tasklifecycle"
	"go.trai.ch/zerr"
)

// Execute runs a non-streaming TaskGroup: it reads the item list at
// grp.ForEach from the parent's already-published output, materializes one
// child task per item, and runs them bounded by grp.MaxConcurrent.
func Execute(
	ctx context.Context,
	grp domain.Group,
	registry ports.Registry,
	deps tasklifecycle.Deps,
	outputs map[string]map[string]any,
	order []string,
) domain.Result {
	raw, err := pathresolver.Resolve(grp.ForEach, outputs, order)
	if err != nil {
		return dependencyFailure(zerr.With(err, "group", grp.Name.String()))
	}

	items, ok := raw.([]any)
	if !ok {
		return dependencyFailure(zerr.With(domain.ErrParentOutputNotList, "group", grp.Name.String(), "for_each", grp.ForEach))
	}

	sem := semaphore.NewWeighted(maxConcurrent(grp))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []any

	for i, item := range items {
		i, item := i, item
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			out, ok := runChild(ctx, grp, registry, deps, i, item)
			if !ok {
				return
			}
			mu.Lock()
			results = append(results, out)
			mu.Unlock()
		}()
	}

	wg.Wait()

	return domain.Result{
		Success: true,
		Status:  domain.StatusCompleted,
		Output:  map[string]any{"results": results},
	}
}

// ExecuteStreaming runs a StreamingTaskGroup: it consumes y's chunks,
// extracting items via ForEach's suffix path and spawning one child per
// item immediately, until the terminal chunk arrives; it then awaits all
// already-spawned children before returning.
func ExecuteStreaming(
	ctx context.Context,
	grp domain.Group,
	registry ports.Registry,
	deps tasklifecycle.Deps,
	y ports.Yielder,
) domain.Result {
	if registry == nil {
		for range y.Chan() {
			// drain so the producer's broadcast goroutine never blocks
		}
		return domain.Result{
			Success: false,
			Status:  domain.StatusFailed,
			ErrKind: domain.ErrKindInternal,
			Err:     zerr.With(domain.ErrStreamingRegistryMissing, "group", grp.Name.String()),
		}
	}

	sem := semaphore.NewWeighted(maxConcurrent(grp))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []any

	index := 0
	suffix := forEachSuffix(grp.ForEach)

	for chunk := range y.Chan() {
		if chunk.Done {
			break
		}

		items := extractItems(chunk.Output, suffix)
		for _, item := range items {
			i, item := index, item
			index++

			if err := sem.Acquire(ctx, 1); err != nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				out, ok := runChild(ctx, grp, registry, deps, i, item)
				if !ok {
					return
				}
				mu.Lock()
				results = append(results, out)
				mu.Unlock()
			}()
		}
	}

	wg.Wait()

	return domain.Result{
		Success: true,
		Status:  domain.StatusCompleted,
		Output:  map[string]any{"results": results},
	}
}

// runChild materializes and runs one child task, reporting its output and
// whether it succeeded. Failures are the caller's to log; the group
// aggregates only successes (permissive aggregation, spec 4.7).
func runChild(
	ctx context.Context,
	grp domain.Group,
	registry ports.Registry,
	deps tasklifecycle.Deps,
	index int,
	item any,
) (map[string]any, bool) {
	childName := fmt.Sprintf("%s_%d", grp.Name.String(), index)

	config, err := substituteTemplate(grp.Name.String(), grp.ConfigTemplate, item)
	if err != nil {
		logChildFailure(deps, childName, err)
		return nil, false
	}

	runner, err := registry.New(grp.Type, childName, config)
	if err != nil {
		logChildFailure(deps, childName, err)
		return nil, false
	}

	child, err := taskbuild.Build(grp.Type, childName, config)
	if err != nil {
		logChildFailure(deps, childName, err)
		return nil, false
	}

	res := tasklifecycle.Run(ctx, child, runner, deps, nil, nil)
	if !res.Success {
		logChildFailure(deps, childName, res.Err)
		return nil, false
	}
	return res.Output, true
}

func logChildFailure(deps tasklifecycle.Deps, childName string, err error) {
	if deps.Logger == nil {
		return
	}
	deps.Logger.Error(zerr.With(domain.ErrTaskExecutionFailed, "child", childName, "cause", err))
}

func maxConcurrent(grp domain.Group) int64 {
	if grp.MaxConcurrent <= 0 {
		return 10
	}
	return int64(grp.MaxConcurrent)
}

func dependencyFailure(err error) domain.Result {
	return domain.Result{
		Success: false,
		Status:  domain.StatusFailed,
		ErrKind: domain.ErrKindDependency,
		Err:     err,
	}
}

// forEachSuffix drops the producer-name root segment from a streaming
// group's ForEach path, leaving only the segments applied to each streamed
// chunk (spec 4.6: "the group applies for_each's suffix").
func forEachSuffix(forEach string) []string {
	parts := strings.Split(forEach, ".")
	if len(parts) > 1 {
		return parts[1:]
	}
	return parts
}

// extractItems descends suffix into a streamed chunk's output and returns
// the list found there (or a single-element list, or nil), matching the
// source's _extract_streaming_items.
func extractItems(output map[string]any, suffix []string) []any {
	var current any = output
	for _, part := range suffix {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		v, present := m[part]
		if !present {
			return nil
		}
		current = v
	}

	switch v := current.(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}
