// Package builtin provides a handful of minimal ports.TaskRunner
// implementations used to exercise the engine in tests and the demo CLI:
// echo, sleep, fail-then-succeed, and a streaming emitter. These mirror the
// toy task types scattered across the source project's examples/ directory
// (streaming_subdomain_scanner.py and friends) without carrying over any
// domain-specific scanning logic.
package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
)

// Register installs every builtin task type into reg under its
// conventional name (echo, sleep, flaky, streaming_emitter).
func Register(reg ports.Registry) error {
	ctors := map[string]ports.Constructor{
		"echo":              newEcho,
		"sleep":             newSleep,
		"flaky":             newFlaky,
		"streaming_emitter": newStreamingEmitter,
	}
	for name, ctor := range ctors {
		if err := reg.Register(name, ctor); err != nil {
			return err
		}
	}
	return nil
}

// echoTask copies its whole config (with any ${item} values already
// resolved by the group package) into its output verbatim.
type echoTask struct{}

func newEcho(string, map[string]any) (ports.TaskRunner, error) { return echoTask{}, nil }

func (echoTask) Run(_ context.Context, ec domain.ExecutionContext) (domain.Result, error) {
	out := make(map[string]any, len(ec.Config))
	for k, v := range ec.Config {
		out[k] = v
	}
	return domain.Result{Success: true, Output: out}, nil
}

// sleepTask sleeps for config["duration"] seconds (default 0) before
// returning {slept: true}. Used to exercise timeouts and cache latency.
type sleepTask struct{ duration time.Duration }

func newSleep(_ string, config map[string]any) (ports.TaskRunner, error) {
	d := 0.0
	if v, ok := config["duration"].(float64); ok {
		d = v
	}
	return sleepTask{duration: time.Duration(d * float64(time.Second))}, nil
}

func (t sleepTask) Run(ctx context.Context, _ domain.ExecutionContext) (domain.Result, error) {
	select {
	case <-time.After(t.duration):
		return domain.Result{Success: true, Output: map[string]any{"slept": true}}, nil
	case <-ctx.Done():
		return domain.Result{}, ctx.Err()
	}
}

// flakyTask fails on its first config["fail_times"] invocations, then
// succeeds, returning {ok: true}. Each Task instance is run at most
// 1+max_retry times by the attempt loop, so it succeeds only when fail_times
// is at most max_retry.
type flakyTask struct {
	failTimes int
	attempts  int
}

func newFlaky(_ string, config map[string]any) (ports.TaskRunner, error) {
	n := 0
	if v, ok := config["fail_times"].(float64); ok {
		n = int(v)
	}
	return &flakyTask{failTimes: n}, nil
}

func (t *flakyTask) Run(_ context.Context, _ domain.ExecutionContext) (domain.Result, error) {
	t.attempts++
	if t.attempts <= t.failTimes {
		return domain.Result{Success: false, ErrKind: domain.ErrKindUser, Err: fmt.Errorf("attempt %d: simulated failure", t.attempts)}, nil
	}
	return domain.Result{Success: true, Output: map[string]any{"ok": true}}, nil
}

// streamingEmitter yields one chunk per element of config["items"], each
// shaped {"item": <value>}, then returns a final result summarizing the
// count. config["items"] is a []any (interface slice), matching the
// engine's untyped output model.
type streamingEmitter struct {
	items []any
}

func newStreamingEmitter(_ string, config map[string]any) (ports.TaskRunner, error) {
	items, _ := config["items"].([]any)
	return streamingEmitter{items: items}, nil
}

func (s streamingEmitter) Run(ctx context.Context, ec domain.ExecutionContext) (domain.Result, error) {
	return s.RunStreaming(ctx, ec, nil)
}

func (s streamingEmitter) RunStreaming(_ context.Context, _ domain.ExecutionContext, y ports.Yielder) (domain.Result, error) {
	for _, item := range s.items {
		if y != nil {
			y.Yield(map[string]any{"item": item})
		}
	}
	return domain.Result{Success: true, Output: map[string]any{"count": len(s.items)}}, nil
}
