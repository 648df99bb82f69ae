// Package taskbuild extracts a domain.Task's typed policy fields (cache,
// timeout, retry, condition) out of its flat config map. Both the workflow
// builder (top-level CreateTask) and task groups (child materialization per
// item) construct tasks this way, mirroring how the source's Task.__init__
// reads the same reserved keys out of self.config regardless of whether the
// task came from Workflow.create_task or a group's config_template.
package taskbuild

import (
	"time"

	"github.com/taskflow/engine/internal/core/domain"
	"go.trai.ch/zerr"
)

// Build extracts reserved policy keys (cache_enabled, cache_ttl, cache_key,
// progress_tracking, timeout, max_retry, condition) out of config into
// typed domain.Task fields. The full config map, reserved keys included, is
// retained on Task.Config: it is what dependent code (and the cache-key
// fingerprinter, which applies its own exclusion list) sees.
func Build(taskType, name string, config map[string]any) (domain.Task, error) {
	if config == nil {
		config = map[string]any{}
	}

	t := domain.Task{
		Name:             domain.NewInternedString(name),
		Type:             taskType,
		Config:           config,
		ProgressTracking: true,
	}

	if v, ok := config["cache_enabled"].(bool); ok {
		t.CacheEnabled = v
	}
	if v, ok := asDuration(config["cache_ttl"]); ok {
		t.CacheTTL = v
	}
	if v, ok := config["cache_key"].(string); ok {
		t.CacheKey = v
	}
	if v, ok := config["progress_tracking"].(bool); ok {
		t.ProgressTracking = v
	}
	if v, ok := asDuration(config["timeout"]); ok {
		if v < 0 {
			return domain.Task{}, zerr.With(domain.ErrInvalidTimeout, "task", name, "timeout", v)
		}
		t.Timeout = v
	}
	if v, ok := asInt(config["max_retry"]); ok {
		if v < 0 {
			return domain.Task{}, zerr.With(domain.ErrInvalidRetry, "task", name, "max_retry", v)
		}
		t.MaxRetry = v
	}
	cond, err := parseCondition(name, config["condition"])
	if err != nil {
		return domain.Task{}, err
	}
	t.Condition = cond

	return t, nil
}

func parseCondition(taskName string, raw any) (*domain.Condition, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		return &domain.Condition{Raw: v}, nil
	case map[string]any:
		path, _ := v["path"].(string)
		op, _ := v["operator"].(string)
		operator := domain.ConditionOperator(op)
		if !operator.Valid() {
			return nil, zerr.With(domain.ErrInvalidCondition, "task", taskName, "operator", op)
		}
		return &domain.Condition{
			Path:     path,
			Operator: operator,
			Value:    v["value"],
		}, nil
	default:
		return nil, nil
	}
}

func asDuration(v any) (time.Duration, bool) {
	switch n := v.(type) {
	case time.Duration:
		return n, true
	case int:
		return time.Duration(n) * time.Second, true
	case int64:
		return time.Duration(n) * time.Second, true
	case float64:
		return time.Duration(n * float64(time.Second)), true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
