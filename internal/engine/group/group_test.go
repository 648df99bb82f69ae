package group_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
	"github.com/taskflow/engine/internal/engine/group"
	"github.com/taskflow/engine/internal/engine/tasklifecycle"
	"github.com/taskflow/engine/internal/engine/yielder"
)

type echoRunner struct{ config map[string]any }

func (r *echoRunner) Run(_ context.Context, ec domain.ExecutionContext) (domain.Result, error) {
	return domain.Result{Success: true, Output: map[string]any{"config": ec.Config}}, nil
}

type failingRunner struct{}

func (r *failingRunner) Run(_ context.Context, _ domain.ExecutionContext) (domain.Result, error) {
	return domain.Result{Success: false, ErrKind: domain.ErrKindUser}, nil
}

type fakeRegistry struct {
	mu       sync.Mutex
	failName string
}

func (f *fakeRegistry) Register(string, ports.Constructor) error { return nil }

func (f *fakeRegistry) New(taskType, name string, config map[string]any) (ports.TaskRunner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == f.failName {
		return &failingRunner{}, nil
	}
	return &echoRunner{config: config}, nil
}

func TestExecute_OneChildPerItem(t *testing.T) {
	outputs := map[string]map[string]any{
		"fetch": {"items": []any{
			map[string]any{"id": "a"},
			map[string]any{"id": "b"},
			map[string]any{"id": "c"},
		}},
	}
	order := []string{"fetch"}

	grp := domain.Group{
		Name:           domain.NewInternedString("process"),
		Type:           "echo",
		ForEach:        "fetch.items",
		ConfigTemplate: map[string]any{"id": "$id", "literal": "fixed"},
		MaxConcurrent:  2,
	}

	res := group.Execute(context.Background(), grp, &fakeRegistry{}, tasklifecycle.Deps{}, outputs, order)
	require.True(t, res.Success)

	results, ok := res.Output["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)

	var ids []string
	for _, r := range results {
		m := r.(map[string]any)
		cfg := m["config"].(map[string]any)
		assert.Equal(t, "fixed", cfg["literal"])
		ids = append(ids, cfg["id"].(string))
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestExecute_ForEachNotAList(t *testing.T) {
	outputs := map[string]map[string]any{
		"fetch": {"items": "not-a-list"},
	}
	grp := domain.Group{
		Name:    domain.NewInternedString("process"),
		Type:    "echo",
		ForEach: "fetch.items",
	}

	res := group.Execute(context.Background(), grp, &fakeRegistry{}, tasklifecycle.Deps{}, outputs, []string{"fetch"})
	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrKindDependency, res.ErrKind)
}

func TestExecute_PermissiveAggregationSkipsFailures(t *testing.T) {
	outputs := map[string]map[string]any{
		"fetch": {"items": []any{
			map[string]any{"id": "ok"},
			map[string]any{"id": "bad"},
		}},
	}
	grp := domain.Group{
		Name:           domain.NewInternedString("process"),
		Type:           "echo",
		ForEach:        "fetch.items",
		ConfigTemplate: map[string]any{"id": "$id"},
		MaxConcurrent:  4,
	}

	res := group.Execute(context.Background(), grp, &fakeRegistry{failName: "process_1"}, tasklifecycle.Deps{}, outputs, []string{"fetch"})
	require.True(t, res.Success)
	results := res.Output["results"].([]any)
	assert.Len(t, results, 1)
}

func TestExecuteStreaming_SpawnsChildrenPerChunkUntilDone(t *testing.T) {
	y := yielder.New(8)

	go func() {
		y.Yield(map[string]any{"batch": []any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
		}})
		y.Yield(map[string]any{"batch": []any{
			map[string]any{"id": "3"},
		}})
		y.Complete(domain.Result{Success: true, Output: map[string]any{"total": 3}})
	}()

	grp := domain.Group{
		Name:           domain.NewInternedString("consume"),
		Type:           "echo",
		ForEach:        "producer.batch",
		ConfigTemplate: map[string]any{"id": "$id"},
		MaxConcurrent:  2,
	}

	res := group.ExecuteStreaming(context.Background(), grp, &fakeRegistry{}, tasklifecycle.Deps{}, y)
	require.True(t, res.Success)
	results := res.Output["results"].([]any)
	assert.Len(t, results, 3)
}

func TestExecuteStreaming_EmptyStreamYieldsNoChildren(t *testing.T) {
	y := yielder.New(1)
	go func() {
		y.Complete(domain.Result{Success: true})
	}()

	grp := domain.Group{
		Name:    domain.NewInternedString("consume"),
		Type:    "echo",
		ForEach: "producer.batch",
	}

	res := group.ExecuteStreaming(context.Background(), grp, &fakeRegistry{}, tasklifecycle.Deps{}, y)
	require.True(t, res.Success)
	assert.Empty(t, res.Output["results"])
}

func TestExecute_UsesMaxConcurrentAsBound(t *testing.T) {
	items := make([]any, 20)
	for i := range items {
		items[i] = map[string]any{"id": fmt.Sprintf("%d", i)}
	}
	outputs := map[string]map[string]any{
		"fetch": {"items": items},
	}
	grp := domain.Group{
		Name:           domain.NewInternedString("bounded"),
		Type:           "echo",
		ForEach:        "fetch.items",
		ConfigTemplate: map[string]any{"id": "$id"},
		MaxConcurrent:  3,
	}

	res := group.Execute(context.Background(), grp, &fakeRegistry{}, tasklifecycle.Deps{}, outputs, []string{"fetch"})
	require.True(t, res.Success)
	assert.Len(t, res.Output["results"].([]any), 20)
}
