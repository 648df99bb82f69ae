package domain

import "go.trai.ch/zerr"

// ErrorKind tags a task failure with a coarse category so callers and
// loggers can branch on cause without parsing messages.
type ErrorKind string

const (
	// ErrKindUser marks a failure caused by the task implementation itself
	// (bad input, invalid config, panics recovered at the boundary).
	ErrKindUser ErrorKind = "user"
	// ErrKindTimeout marks a failure caused by exceeding the task's timeout.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindDependency marks a failure caused by a missing or failed dependency.
	ErrKindDependency ErrorKind = "dependency"
	// ErrKindPath marks a failure caused by resolving a path expression.
	ErrKindPath ErrorKind = "path"
	// ErrKindInternal marks a failure in the engine itself.
	ErrKindInternal ErrorKind = "internal"
)

var (
	// ErrTaskAlreadyExists is returned when adding a task whose name is already registered.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrGroupAlreadyExists is returned when adding a task group whose name is already registered.
	ErrGroupAlreadyExists = zerr.New("task group already exists")

	// ErrMissingDependency is returned when a task references a dependency absent from the workflow.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when the dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task name is not present in the workflow.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrTypeNotRegistered is returned when a task or group references an unregistered type.
	ErrTypeNotRegistered = zerr.New("task type not registered")

	// ErrTypeAlreadyRegistered is returned when registering a type name twice.
	ErrTypeAlreadyRegistered = zerr.New("task type already registered")

	// ErrInvalidPath is returned when a PathResolver expression cannot be parsed or resolved.
	ErrInvalidPath = zerr.New("invalid output path expression")

	// ErrParentOutputNotList is returned when a task group's parent output is not a list.
	ErrParentOutputNotList = zerr.New("parent output must be a list for task group")

	// ErrStreamingRegistryMissing is returned when a streaming task group executes without a registry.
	ErrStreamingRegistryMissing = zerr.New("registry not set for streaming task group")

	// ErrTaskExecutionFailed wraps the underlying cause of a failed task run.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrTaskTimedOut is returned when a task exceeds its configured timeout.
	ErrTaskTimedOut = zerr.New("task timed out")

	// ErrCacheMiss is returned by Cache.Get when no usable entry exists for a key.
	ErrCacheMiss = zerr.New("cache miss")

	// ErrCacheStoreFailed wraps a failure to persist a cache entry; callers log and continue.
	ErrCacheStoreFailed = zerr.New("failed to store cache entry")

	// ErrCacheReadFailed wraps a failure to read a cache entry; callers treat this as a miss.
	ErrCacheReadFailed = zerr.New("failed to read cache entry")

	// ErrInvalidCondition is returned when a condition expression cannot be parsed.
	ErrInvalidCondition = zerr.New("invalid condition expression")

	// ErrInvalidRetry is returned when max_retry is negative.
	ErrInvalidRetry = zerr.New("max_retry must be non-negative")

	// ErrInvalidTimeout is returned when a timeout duration is negative.
	ErrInvalidTimeout = zerr.New("timeout must be non-negative")

	// ErrWorkflowFileReadFailed wraps a failure to read a workflow definition file.
	ErrWorkflowFileReadFailed = zerr.New("failed to read workflow file")

	// ErrWorkflowFileParseFailed wraps a YAML syntax error in a workflow definition file.
	ErrWorkflowFileParseFailed = zerr.New("failed to parse workflow file")

	// ErrWorkflowFileEmpty is returned when a workflow file declares no tasks.
	ErrWorkflowFileEmpty = zerr.New("workflow file declares no tasks")

	// ErrWorkflowTaskMissingType is returned when a task entry omits its type.
	ErrWorkflowTaskMissingType = zerr.New("task missing type")

	// ErrWorkflowGroupMissingForEach is returned when a group entry omits for_each.
	ErrWorkflowGroupMissingForEach = zerr.New("task group missing for_each")

	// ErrWorkflowCacheDirRequired is returned when cache.backend is "file" without a cache.dir.
	ErrWorkflowCacheDirRequired = zerr.New("cache.dir required for file backend")

	// ErrWorkflowRedisAddrRequired is returned when cache.backend is "redis" without a redis_addr.
	ErrWorkflowRedisAddrRequired = zerr.New("redis_addr required for redis backend")

	// ErrWorkflowUnknownCacheBackend is returned when cache.backend names anything other than memory, file, or redis.
	ErrWorkflowUnknownCacheBackend = zerr.New("unknown cache backend")

	// ErrWorkflowAlreadyRun is returned when Run is called more than once on the same workflow.
	ErrWorkflowAlreadyRun = zerr.New("workflow already run")

	// ErrStreamingOnStreaming is returned when a streaming producer task depends on another streaming producer task.
	ErrStreamingOnStreaming = zerr.New("streaming task may not depend on streaming task")

	// ErrStreamingNotSupported is returned when a streaming producer's registered type does not implement streaming.
	ErrStreamingNotSupported = zerr.New("task type does not implement streaming")
)
