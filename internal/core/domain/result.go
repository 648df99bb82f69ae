package domain

import "time"

// Progress reports incremental completion of a long-running task. Total of
// zero means the total is unknown; Percentage reports -1 in that case.
type Progress struct {
	Current int
	Total   int
	Message string
}

// Percentage returns the completion percentage, or -1 if Total is zero.
func (p Progress) Percentage() float64 {
	if p.Total == 0 {
		return -1
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// Result is the outcome of running a task exactly once (one attempt, a cache
// hit, a skip, or a terminal failure after retries are exhausted).
type Result struct {
	Success       bool
	Status        TaskStatus
	Output        map[string]any
	Err           error
	ErrKind       ErrorKind
	ExecutionTime time.Duration
	Retries       int
	Progress      *Progress
}

// Get returns a top-level output field by key.
func (r Result) Get(key string) (any, bool) {
	if r.Output == nil {
		return nil, false
	}
	v, ok := r.Output[key]
	return v, ok
}

// conditionNotMet builds the canonical result for a task whose condition
// evaluated false: success, skipped, zero execution time.
func conditionNotMet() Result {
	return Result{
		Success: true,
		Status:  StatusConditionNotMet,
		Output: map[string]any{
			"skipped": true,
			"reason":  "condition_not_met",
		},
	}
}

// ConditionNotMet exposes the canonical skip result to callers outside this
// package (the task lifecycle and streaming coupler both need to produce it).
func ConditionNotMet() Result {
	return conditionNotMet()
}
