// Package scheduler implements the Workflow type: dependency-graph
// construction over tasks and task groups, and the wave-based execution
// protocol that drives them to completion (spec 4.5/4.6 in source terms:
// Workflow.run / Workflow._build_dependency_graph / Workflow._get_ready_tasks).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskflow/engine/internal/adapters/cache/memory"
	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
	"github.com/taskflow/engine/internal/engine/group"
	"github.com/taskflow/engine/internal/engine/taskbuild"
	"github.com/taskflow/engine/internal/engine/tasklifecycle"
	"github.com/taskflow/engine/internal/engine/yielder"
	"go.trai.ch/zerr"
)

// Workflow owns a set of tasks and task groups, builds their dependency
// graph, and drives wave-based concurrent execution to completion.
type Workflow struct {
	name     string
	registry ports.Registry
	logger   ports.Logger
	tracer   ports.Tracer

	mu           sync.Mutex
	graph        *domain.Graph
	cache        ports.Cache
	cacheEnabled bool
	ran          bool
}

// NewWorkflow creates an empty workflow named name, materializing children
// of task groups and newly created tasks via registry.
func NewWorkflow(name string, registry ports.Registry) *Workflow {
	return &Workflow{
		name:     name,
		registry: registry,
		graph:    domain.NewGraph(),
	}
}

// SetLogger attaches a logger; nil is a valid no-op logger.
func (w *Workflow) SetLogger(l ports.Logger) { w.logger = l }

// SetTracer attaches a tracer; nil is a valid no-op tracer.
func (w *Workflow) SetTracer(t ports.Tracer) { w.tracer = t }

// SetCache installs a cache backend without changing whether caching is
// enabled per-task; individual tasks still opt in via cache_enabled.
func (w *Workflow) SetCache(c ports.Cache) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cache = c
}

// SetCacheEnabled toggles whether the installed cache (if any) is consulted
// and written to during Run.
func (w *Workflow) SetCacheEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cacheEnabled = enabled
}

// EnableMemoryCache installs an in-process LRU cache and enables caching
// workflow-wide. maxSize <= 0 means unbounded; ttl <= 0 means entries use
// each task's own cache_ttl (or never expire if that is also unset).
func (w *Workflow) EnableMemoryCache(maxSize int, ttl time.Duration) {
	w.SetCache(memory.New(maxSize, ttl))
	w.SetCacheEnabled(true)
}

// ClearCache clears the installed cache's contents. A nil cache is a no-op.
func (w *Workflow) ClearCache(ctx context.Context) error {
	w.mu.Lock()
	c := w.cache
	w.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Clear(ctx)
}

// CacheStats returns the installed cache's cumulative counters, or the zero
// value if no cache is installed.
func (w *Workflow) CacheStats(ctx context.Context) domain.CacheStats {
	w.mu.Lock()
	c := w.cache
	w.mu.Unlock()
	if c == nil {
		return domain.CacheStats{}
	}
	return c.Stats(ctx)
}

// TaskHandle is a mutable reference to a task already registered in a
// Workflow's graph, returned by CreateTask so dependencies can be attached
// before Run. It mirrors the source's Task.add_dependency, which mutates
// the task object held by the workflow in place.
type TaskHandle struct {
	w    *Workflow
	name domain.InternedString
}

// AddDependency registers depName as a dependency of this task. Safe to
// call any number of times before Run; has no effect once Run has started.
func (h *TaskHandle) AddDependency(depName string) *TaskHandle {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	if h.w.ran {
		return h
	}
	_ = h.w.graph.AddDependency(h.name, domain.NewInternedString(depName))
	return h
}

// Name returns the task's name.
func (h *TaskHandle) Name() string { return h.name.String() }

// CreateTask constructs a task of taskType named name with config, registers
// it in the workflow graph, and returns a handle for attaching dependencies.
// Reserved policy keys (cache_enabled, cache_ttl, cache_key,
// progress_tracking, timeout, max_retry, condition) are read out of config;
// see taskbuild.Build.
func (w *Workflow) CreateTask(taskType, name string, config map[string]any) (*TaskHandle, error) {
	task, err := taskbuild.Build(taskType, name, config)
	if err != nil {
		return nil, err
	}
	if err := w.graph.AddTask(task); err != nil {
		return nil, err
	}
	return &TaskHandle{w: w, name: task.Name}, nil
}

// GroupConfig is the caller-facing description of a task group, before it is
// registered into the workflow graph.
type GroupConfig struct {
	Type             string
	ForEach          string
	ConfigTemplate   map[string]any
	MaxConcurrent    int
	StreamingEnabled bool
}

// AddTaskGroup registers a fan-out group named name. Its synthetic
// dependency (on for_each's root task) is resolved at Run time via
// domain.Group.ParentTaskName, through Graph.Dependencies.
func (w *Workflow) AddTaskGroup(name string, cfg GroupConfig) error {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	grp := domain.Group{
		Name:             domain.NewInternedString(name),
		Type:             cfg.Type,
		ForEach:          cfg.ForEach,
		ConfigTemplate:   cfg.ConfigTemplate,
		MaxConcurrent:    maxConcurrent,
		StreamingEnabled: cfg.StreamingEnabled,
	}
	return w.graph.AddGroup(grp)
}

// Run executes every task and group to a terminal state, honoring
// dependencies, streaming coupling, and first-failure-stop. It may be
// called at most once per workflow.
func (w *Workflow) Run(ctx context.Context) (map[string]domain.Result, error) {
	w.mu.Lock()
	if w.ran {
		w.mu.Unlock()
		return nil, zerr.With(domain.ErrWorkflowAlreadyRun, "workflow", w.name)
	}
	w.ran = true
	w.mu.Unlock()

	if err := w.graph.Validate(); err != nil {
		return nil, err
	}
	if err := w.checkNoStreamingOnStreaming(); err != nil {
		return nil, err
	}

	run := &workflowRun{
		wf:      w,
		runID:   uuid.NewString(),
		results: make(map[string]domain.Result),
		outputs: make(map[string]map[string]any),
		order:   []string{},
	}
	return run.execute(ctx)
}

// isStreamingProducer reports whether name is a task with at least one
// StreamingTaskGroup dependent rooted at it. This is a structural property
// of the graph, not a flag the caller sets: a task becomes a streaming
// producer purely by being the for_each root of a streaming group.
func (w *Workflow) isStreamingProducer(name domain.InternedString) bool {
	if w.graph.IsGroup(name) {
		return false
	}
	for _, dep := range w.graph.Dependents(name) {
		if grp, ok := w.graph.GetGroup(dep); ok && grp.StreamingEnabled && grp.ParentTaskName() == name.String() {
			return true
		}
	}
	return false
}

// checkNoStreamingOnStreaming rejects workflows where a streaming producer
// task depends on another streaming producer task (spec 4.6: must be
// collected by a regular task first).
func (w *Workflow) checkNoStreamingOnStreaming() error {
	for name := range w.graph.Walk() {
		if !w.isStreamingProducer(name) {
			continue
		}
		task, ok := w.graph.GetTask(name)
		if !ok {
			continue
		}
		for _, dep := range task.Dependencies {
			if w.isStreamingProducer(dep) {
				return zerr.With(domain.ErrStreamingOnStreaming, "task", name.String(), "dependency", dep.String())
			}
		}
	}
	return nil
}

// workflowRun holds the mutable state of a single Run invocation.
type workflowRun struct {
	wf    *Workflow
	runID string

	mu        sync.Mutex
	results   map[string]domain.Result
	outputs   map[string]map[string]any
	order     []string
	completed map[domain.InternedString]struct{}
	failed    bool
}

func (r *workflowRun) execute(ctx context.Context) (map[string]domain.Result, error) {
	r.completed = make(map[domain.InternedString]struct{})

	for {
		ready := r.readySet()
		if len(ready) == 0 {
			break
		}

		regularTasks, groups := r.splitReady(ready)
		producers, plain := r.classifyProducers(regularTasks)

		if len(plain) > 0 {
			r.runWave(ctx, plain, r.runTask)
		}

		if r.stopRequested() {
			break
		}

		if len(producers) > 0 {
			var pwg sync.WaitGroup
			for _, p := range producers {
				p := p
				dependents := r.streamingDependentsOf(p)
				pwg.Add(1)
				go func() {
					defer pwg.Done()
					r.runStreamingBundle(ctx, p, dependents)
				}()
			}
			pwg.Wait()
		}

		if r.stopRequested() {
			break
		}

		if len(groups) > 0 {
			r.runWave(ctx, groups, r.runGroup)
		}

		if r.stopRequested() {
			break
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results, nil
}

// readySet returns every not-yet-completed name whose dependencies are all
// completed.
func (r *workflowRun) readySet() []domain.InternedString {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ready []domain.InternedString
	for name := range r.wf.graph.Walk() {
		if _, done := r.completed[name]; done {
			continue
		}
		deps := r.wf.graph.Dependencies(name)
		allDone := true
		for _, d := range deps {
			if _, ok := r.completed[d]; !ok {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, name)
		}
	}
	return ready
}

func (r *workflowRun) splitReady(ready []domain.InternedString) (tasks, groups []domain.InternedString) {
	for _, name := range ready {
		if r.wf.graph.IsGroup(name) {
			groups = append(groups, name)
		} else {
			tasks = append(tasks, name)
		}
	}
	return
}

// classifyProducers splits regular, ready tasks into streaming producers
// (those with at least one StreamingTaskGroup dependent rooted at them) and
// plain tasks, per spec 4.5's "classify each regular task as
// streaming_producer iff any dependent is a StreamingTaskGroup".
func (r *workflowRun) classifyProducers(tasks []domain.InternedString) (producers, plain []domain.InternedString) {
	for _, name := range tasks {
		if len(r.streamingDependentsOf(name)) > 0 {
			producers = append(producers, name)
		} else {
			plain = append(plain, name)
		}
	}
	return
}

func (r *workflowRun) streamingDependentsOf(name domain.InternedString) []domain.InternedString {
	var out []domain.InternedString
	for _, dep := range r.wf.graph.Dependents(name) {
		grp, ok := r.wf.graph.GetGroup(dep)
		if !ok || !grp.StreamingEnabled {
			continue
		}
		if grp.ParentTaskName() == name.String() {
			out = append(out, dep)
		}
	}
	return out
}

func (r *workflowRun) stopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// runWave launches run(name) for every name concurrently and awaits them
// all; within a wave, execution order between siblings is not observable.
func (r *workflowRun) runWave(ctx context.Context, names []domain.InternedString, run func(context.Context, domain.InternedString)) {
	var wg sync.WaitGroup
	for _, name := range names {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx, name)
		}()
	}
	wg.Wait()
}

func (r *workflowRun) runTask(ctx context.Context, name domain.InternedString) {
	task, _ := r.wf.graph.GetTask(name)

	ctx, span := r.startSpan(ctx, "task."+name.String())
	defer span.End()

	runner, err := r.wf.registry.New(task.Type, task.Name.String(), task.Config)
	if err != nil {
		r.recordFailure(name, domain.Result{
			Success: false,
			Status:  domain.StatusFailed,
			ErrKind: domain.ErrKindInternal,
			Err:     err,
		})
		return
	}

	outputs, order := r.depOutputsFor(name)
	deps := tasklifecycle.Deps{Cache: r.effectiveCache(), Logger: r.wf.logger}
	result := tasklifecycle.Run(ctx, task, runner, deps, outputs, order)
	if !result.Success && result.Err != nil {
		span.RecordError(result.Err)
	}
	r.publish(name, result)
}

// runStreamingBundle runs producer p and every one of its streaming-group
// dependents concurrently, per spec 4.6: both start simultaneously and the
// wave does not advance until all of them have terminated.
func (r *workflowRun) runStreamingBundle(ctx context.Context, p domain.InternedString, dependents []domain.InternedString) {
	task, _ := r.wf.graph.GetTask(p)
	y := yielder.New(yielder.DefaultBufferSize)

	// yielder.Chan is safe for multiple consumers to range over only if
	// each observes every chunk; the streaming groups attached to p each
	// need their own view, so the producer broadcasts to one fan-out
	// channel per dependent group.
	broadcasts := make([]*yielder.Yielder, len(dependents))
	for i := range dependents {
		broadcasts[i] = yielder.New(yielder.DefaultBufferSize)
	}

	var bwg sync.WaitGroup
	bwg.Add(1)
	go func() {
		defer bwg.Done()
		for chunk := range y.Chan() {
			for _, b := range broadcasts {
				if chunk.Done {
					b.Complete(chunk.Final)
				} else {
					b.Yield(chunk.Output)
				}
			}
		}
	}()

	runner, err := r.wf.registry.New(task.Type, task.Name.String(), task.Config)
	streamRunner, isStreaming := runner.(ports.StreamingTaskRunner)
	if err != nil || !isStreaming {
		if err == nil {
			err = zerr.With(domain.ErrStreamingNotSupported, "task", task.Name.String(), "type", task.Type)
		}
		failResult := domain.Result{Success: false, Status: domain.StatusFailed, ErrKind: domain.ErrKindInternal, Err: err}
		y.Complete(failResult)
		bwg.Wait()
		r.recordFailure(p, failResult)
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		spanCtx, span := r.startSpan(ctx, "task."+p.String())
		defer span.End()
		outputs, order := r.depOutputsFor(p)
		deps := tasklifecycle.Deps{Cache: r.effectiveCache(), Logger: r.wf.logger}
		result := tasklifecycle.RunStreaming(spanCtx, task, streamRunner, deps, y, outputs, order)
		if !result.Success && result.Err != nil {
			span.RecordError(result.Err)
		}
		r.publish(p, result)
	}()

	for i, depName := range dependents {
		depName, b := depName, broadcasts[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			spanCtx, span := r.startSpan(ctx, "group."+depName.String())
			defer span.End()
			grp, _ := r.wf.graph.GetGroup(depName)
			deps := tasklifecycle.Deps{Cache: r.effectiveCache(), Logger: r.wf.logger}
			result := group.ExecuteStreaming(spanCtx, grp, r.wf.registry, deps, b)
			if !result.Success && result.Err != nil {
				span.RecordError(result.Err)
			}
			r.publish(depName, result)
		}()
	}

	wg.Wait()
	bwg.Wait()
}

func (r *workflowRun) runGroup(ctx context.Context, name domain.InternedString) {
	grp, _ := r.wf.graph.GetGroup(name)

	ctx, span := r.startSpan(ctx, "group."+name.String())
	defer span.End()

	outputs, order := r.depOutputsFor(name)
	deps := tasklifecycle.Deps{Cache: r.effectiveCache(), Logger: r.wf.logger}
	result := group.Execute(ctx, grp, r.wf.registry, deps, outputs, order)
	if !result.Success && result.Err != nil {
		span.RecordError(result.Err)
	}
	r.publish(name, result)
}

// startSpan starts a span via the workflow's tracer, or a no-op span if
// none was configured.
func (r *workflowRun) startSpan(ctx context.Context, name string) (context.Context, ports.Span) {
	if r.wf.tracer == nil {
		return ctx, noopSpan{}
	}
	ctx, span := r.wf.tracer.Start(ctx, name)
	span.SetAttribute("run_id", r.runID)
	return ctx, span
}

type noopSpan struct{}

func (noopSpan) End()                        {}
func (noopSpan) RecordError(error)           {}
func (noopSpan) SetAttribute(_ string, _ any) {}

// effectiveCache returns the workflow's cache backend when caching is
// enabled workflow-wide; individual tasks still opt in via CacheEnabled,
// checked inside tasklifecycle.Run.
func (r *workflowRun) effectiveCache() ports.Cache {
	r.wf.mu.Lock()
	defer r.wf.mu.Unlock()
	if !r.wf.cacheEnabled || r.wf.cache == nil {
		return nil
	}
	return r.wf.cache
}

// depOutputsFor builds the dependency-scoped outputs map and order for name,
// mirroring the source's per-task dependency_outputs/dependency_order
// (workflow.py: "dependency_outputs = {dep: results[dep].output for dep in
// task_dependencies[name]}", "dependency_order = list(task_dependencies[name])").
// Only name's own declared dependencies are visible to it, in their
// declaration order, not every task that happens to have completed first.
func (r *workflowRun) depOutputsFor(name domain.InternedString) (map[string]map[string]any, []string) {
	deps := r.wf.graph.Dependencies(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	outputs := make(map[string]map[string]any, len(deps))
	order := make([]string, 0, len(deps))
	for _, dep := range deps {
		depName := dep.String()
		out, ok := r.outputs[depName]
		if !ok {
			continue
		}
		outputs[depName] = out
		order = append(order, depName)
	}
	return outputs, order
}

// publish records name's result as terminal, publishing its output only on
// success (spec 4.5: dependents of a failed task never become ready).
func (r *workflowRun) publish(name domain.InternedString, result domain.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completed[name] = struct{}{}
	r.results[name.String()] = result

	if result.Success {
		r.outputs[name.String()] = result.Output
		r.order = append(r.order, name.String())
	} else {
		r.failed = true
		if r.wf.logger != nil && result.Err != nil {
			r.wf.logger.TaskFailed(name.String(), result.ErrKind, result.Err)
		}
	}
}

func (r *workflowRun) recordFailure(name domain.InternedString, result domain.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[name] = struct{}{}
	r.results[name.String()] = result
	r.failed = true
	if r.wf.logger != nil && result.Err != nil {
		r.wf.logger.TaskFailed(name.String(), result.ErrKind, result.Err)
	}
}
