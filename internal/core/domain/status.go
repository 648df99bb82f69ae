package domain

// TaskStatus represents the lifecycle state of a task or task group within a
// single workflow run.
type TaskStatus string

const (
	// StatusPending marks a task that has not yet become eligible to run.
	StatusPending TaskStatus = "pending"
	// StatusRunning marks a task currently executing.
	StatusRunning TaskStatus = "running"
	// StatusCompleted marks a task that finished successfully (including cache hits).
	StatusCompleted TaskStatus = "completed"
	// StatusFailed marks a task whose final attempt did not succeed.
	StatusFailed TaskStatus = "failed"
	// StatusSkipped marks a task that was never scheduled because a dependency failed.
	StatusSkipped TaskStatus = "skipped"
	// StatusTimedOut marks a task that exceeded its configured timeout on its final attempt.
	StatusTimedOut TaskStatus = "timed_out"
	// StatusConditionNotMet marks a task whose condition evaluated to false.
	StatusConditionNotMet TaskStatus = "condition_not_met"
)
