package domain

import "time"

// ConfigExclusions lists the config keys the cache-key fingerprinter must
// ignore: they affect how a task runs, not what it produces.
var ConfigExclusions = map[string]struct{}{
	"cache_enabled":     {},
	"cache_ttl":         {},
	"cache_key":         {},
	"progress_tracking": {},
	"timeout":           {},
	"max_retry":         {},
}

// Task is a single unit of work in the workflow graph. A Task value
// describes configuration only; ExecutionContext and Result carry run state.
type Task struct {
	Name         InternedString
	Type         string
	Config       map[string]any
	Dependencies []InternedString
	Condition    *Condition

	CacheEnabled bool
	CacheTTL     time.Duration
	CacheKey     string

	ProgressTracking bool
	Timeout          time.Duration
	MaxRetry         int
}

// Group describes a TaskGroup (or, when StreamingEnabled is true, a
// StreamingTaskGroup): a template instantiated once per item found at
// ForEach in the parent's output.
type Group struct {
	Name             InternedString
	Type             string
	ForEach          string
	ConfigTemplate   map[string]any
	MaxConcurrent    int
	StreamingEnabled bool
}

// ParentTaskName returns the task name referenced by the first segment of
// ForEach, e.g. "fetch.items" -> "fetch". This is the group's synthetic
// dependency: it cannot materialize children until the parent has output.
func (g Group) ParentTaskName() string {
	for i, r := range g.ForEach {
		if r == '.' {
			return g.ForEach[:i]
		}
	}
	return g.ForEach
}
