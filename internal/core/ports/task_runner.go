package ports

import (
	"context"

	"github.com/taskflow/engine/internal/core/domain"
)

//go:generate mockgen -source=task_runner.go -destination=mocks/task_runner_mock.go -package=mocks

// TaskRunner is the user-supplied implementation of a task type: config in,
// a Result out. Run is invoked at most 1+max_retry times per task instance,
// never concurrently with itself.
type TaskRunner interface {
	Run(ctx context.Context, ec domain.ExecutionContext) (domain.Result, error)
}

// StreamingTaskRunner is a TaskRunner that can additionally run as a
// producer, emitting incremental chunks on y before returning its final
// Result. The scheduler calls RunStreaming instead of Run when the task has
// a streaming consumer attached.
type StreamingTaskRunner interface {
	TaskRunner
	RunStreaming(ctx context.Context, ec domain.ExecutionContext, y Yielder) (domain.Result, error)
}

// Constructor builds a new TaskRunner instance for name with the given
// config. Registered constructors are invoked by Registry.New and by task
// groups materializing children.
type Constructor func(name string, config map[string]any) (TaskRunner, error)

// Registry maps task-type names to constructors. Registration is not
// idempotent: registering a name twice is an error.
type Registry interface {
	Register(taskType string, ctor Constructor) error
	New(taskType, name string, config map[string]any) (TaskRunner, error)
}
