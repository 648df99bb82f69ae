// Package tasklifecycle implements the per-task execution pipeline:
// condition check, cache lookup, timed execution with retries, result
// publication, and cache write. This is the Go analogue of the source
// project's Task.execute_with_timeout.
package tasklifecycle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
	"github.com/taskflow/engine/internal/engine/cachekey"
	"github.com/taskflow/engine/internal/engine/condition"
	"github.com/taskflow/engine/internal/engine/pathresolver"
	"go.trai.ch/zerr"
)

// Deps bundles the collaborators a single Run/RunStreaming call needs.
type Deps struct {
	Cache  ports.Cache // may be nil: caching is then treated as disabled
	Logger ports.Logger
}

// Run executes task once through its full lifecycle: condition, cache
// lookup, attempt loop (timeout + retries), cache store.
func Run(
	ctx context.Context,
	task domain.Task,
	runner ports.TaskRunner,
	deps Deps,
	outputs map[string]map[string]any,
	order []string,
) domain.Result {
	if !condition.Evaluate(task.Condition, outputs, order) {
		return domain.ConditionNotMet()
	}

	if hit, ok := lookupCache(ctx, task, deps, outputs); ok {
		return hit
	}

	result := runAttempts(ctx, task, func(attemptCtx context.Context, ec domain.ExecutionContext) (domain.Result, error) {
		return runner.Run(attemptCtx, ec)
	}, outputs, order)

	storeCache(ctx, task, deps, outputs, result)
	return result
}

// RunStreaming executes a streaming producer task, guaranteeing exactly one
// terminal signal on y regardless of how the attempt loop concludes.
func RunStreaming(
	ctx context.Context,
	task domain.Task,
	runner ports.StreamingTaskRunner,
	deps Deps,
	y ports.Yielder,
	outputs map[string]map[string]any,
	order []string,
) domain.Result {
	if !condition.Evaluate(task.Condition, outputs, order) {
		res := domain.ConditionNotMet()
		y.Complete(res)
		return res
	}

	if hit, ok := lookupCache(ctx, task, deps, outputs); ok {
		y.Complete(hit)
		return hit
	}

	result := runAttempts(ctx, task, func(attemptCtx context.Context, ec domain.ExecutionContext) (domain.Result, error) {
		return runner.RunStreaming(attemptCtx, ec, y)
	}, outputs, order)

	y.Complete(result)
	storeCache(ctx, task, deps, outputs, result)
	return result
}

type attemptFunc func(ctx context.Context, ec domain.ExecutionContext) (domain.Result, error)

func runAttempts(
	ctx context.Context,
	task domain.Task,
	attempt attemptFunc,
	outputs map[string]map[string]any,
	order []string,
) domain.Result {
	start := time.Now()

	config, err := substituteConfig(task.Config, outputs, order)
	if err != nil {
		return domain.Result{
			Success:       false,
			Status:        domain.StatusFailed,
			Err:           err,
			ErrKind:       domain.ErrKindPath,
			ExecutionTime: time.Since(start),
		}
	}

	ec := domain.ExecutionContext{
		TaskName:          task.Name.String(),
		Config:            config,
		DependencyOutputs: outputs,
		DependencyOrder:   order,
	}

	var last domain.Result

	for attempt1 := 1; attempt1 <= 1+task.MaxRetry; attempt1++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if task.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		}

		res, err := attempt(attemptCtx, ec)
		timedOut := attemptCtx.Err() != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		if cancel != nil {
			cancel()
		}
		execTime := time.Since(start)

		if timedOut {
			return domain.Result{
				Success:       false,
				Status:        domain.StatusTimedOut,
				Err:           domain.ErrTaskTimedOut,
				ErrKind:       domain.ErrKindTimeout,
				ExecutionTime: execTime,
				Retries:       attempt1,
			}
		}

		if err != nil && res.Err == nil {
			res.Err = zerr.With(domain.ErrTaskExecutionFailed, "task", task.Name.String(), "cause", err)
			if res.ErrKind == "" {
				res.ErrKind = domain.ErrKindUser
			}
		}

		if res.Success && res.Output == nil {
			res.Output = map[string]any{}
		}

		res.ExecutionTime = execTime
		res.Retries = attempt1

		if res.Success {
			res.Status = domain.StatusCompleted
			return res
		}

		last = res
	}

	last.Status = domain.StatusFailed
	return last
}

func lookupCache(
	ctx context.Context,
	task domain.Task,
	deps Deps,
	outputs map[string]map[string]any,
) (domain.Result, bool) {
	if !task.CacheEnabled || deps.Cache == nil {
		return domain.Result{}, false
	}

	key := cacheKeyFor(task, outputs)
	entry, found, err := deps.Cache.Get(ctx, key)
	if err != nil {
		logError(deps, domain.ErrCacheReadFailed, err)
		return domain.Result{}, false
	}
	if !found {
		return domain.Result{}, false
	}

	result := entry.Result
	result.Status = domain.StatusCompleted
	return result, true
}

func storeCache(
	ctx context.Context,
	task domain.Task,
	deps Deps,
	outputs map[string]map[string]any,
	result domain.Result,
) {
	if !result.Success || !task.CacheEnabled || deps.Cache == nil {
		return
	}

	key := cacheKeyFor(task, outputs)
	entry := domain.CacheEntry{Result: result, CachedAt: time.Now(), TTL: task.CacheTTL}
	if err := deps.Cache.Put(ctx, key, entry); err != nil {
		logError(deps, domain.ErrCacheStoreFailed, err)
	}
}

func cacheKeyFor(task domain.Task, outputs map[string]map[string]any) string {
	if task.CacheKey != "" {
		return task.CacheKey
	}
	return cachekey.Generate(task.Type, task.Name.String(), task.Config, outputs, true)
}

var configSubstitutionPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteConfig resolves ${task.key} tokens found in task.Config's
// top-level string values against outputs/order, the Go analogue of the
// source's Task._resolve_config. Only direct string values are scanned, not
// values nested inside maps or lists, matching the source's single pass
// over self.config.items(). A resolved value is spliced back in via the
// standard scalar printer (fmt's %v), not JSON-encoded: unlike condition
// string substitution, this is config destined for a task's own Config map,
// which callers expect to be plain strings.
func substituteConfig(config map[string]any, outputs map[string]map[string]any, order []string) (map[string]any, error) {
	resolved := make(map[string]any, len(config))
	for key, val := range config {
		s, isString := val.(string)
		if !isString {
			resolved[key] = val
			continue
		}

		var resolveErr error
		substituted := configSubstitutionPattern.ReplaceAllStringFunc(s, func(match string) string {
			if resolveErr != nil {
				return match
			}
			path := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
			v, err := pathresolver.Resolve(path, outputs, order)
			if err != nil {
				resolveErr = err
				return match
			}
			return fmt.Sprintf("%v", v)
		})
		if resolveErr != nil {
			return nil, resolveErr
		}
		resolved[key] = substituted
	}
	return resolved, nil
}

func logError(deps Deps, sentinel error, cause error) {
	if deps.Logger == nil {
		return
	}
	deps.Logger.Error(errors.Join(sentinel, cause))
}
