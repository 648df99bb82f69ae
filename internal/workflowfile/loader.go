// Package workflowfile loads a taskflow.yaml workflow definition into a
// scheduler.Workflow, mirroring the source project's declarative
// workflow-as-data entry point (examples/*.yaml in the source tree).
package workflowfile

import (
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/taskflow/engine/internal/adapters/cache/distributed"
	"github.com/taskflow/engine/internal/adapters/cache/file"
	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
	"github.com/taskflow/engine/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Load reads path, parses it as a workflow definition, and builds a
// scheduler.Workflow registered against reg. The workflow is returned
// unstarted: callers still choose logger/tracer/cache overrides and call
// Run themselves.
func Load(path string, reg ports.Registry) (*scheduler.Workflow, error) {
	// #nosec G304 -- path is an explicit CLI argument, not attacker input
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWorkflowFileReadFailed.Error())
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, zerr.Wrap(err, domain.ErrWorkflowFileParseFailed.Error())
	}

	if len(f.Tasks) == 0 {
		return nil, zerr.With(domain.ErrWorkflowFileEmpty, "path", path)
	}

	wf := scheduler.NewWorkflow(path, reg)

	if err := applyCache(wf, f.Cache); err != nil {
		return nil, err
	}

	handles := make(map[string]*scheduler.TaskHandle, len(f.Tasks))
	for name, dto := range f.Tasks {
		if dto.Type == "" {
			return nil, zerr.With(domain.ErrWorkflowTaskMissingType, "task", name)
		}
		h, err := wf.CreateTask(dto.Type, name, dto.Config)
		if err != nil {
			return nil, zerr.Wrap(err, fmt.Sprintf("task %q", name))
		}
		handles[name] = h
	}

	for name, dto := range f.Tasks {
		for _, dep := range dto.DependsOn {
			handles[name].AddDependency(dep)
		}
	}

	for name, dto := range f.Groups {
		if dto.ForEach == "" {
			return nil, zerr.With(domain.ErrWorkflowGroupMissingForEach, "group", name)
		}
		err := wf.AddTaskGroup(name, scheduler.GroupConfig{
			Type:             dto.Type,
			ForEach:          dto.ForEach,
			ConfigTemplate:   dto.ConfigTemplate,
			MaxConcurrent:    dto.MaxConcurrent,
			StreamingEnabled: dto.StreamingEnabled,
		})
		if err != nil {
			return nil, zerr.Wrap(err, fmt.Sprintf("group %q", name))
		}
	}

	return wf, nil
}

func applyCache(wf *scheduler.Workflow, cfg *CacheDTO) error {
	if cfg == nil || cfg.Backend == "" {
		return nil
	}

	ttl := time.Duration(0)
	if cfg.TTL != "" {
		d, err := time.ParseDuration(cfg.TTL)
		if err != nil {
			return zerr.Wrap(err, "invalid cache.ttl")
		}
		ttl = d
	}

	switch cfg.Backend {
	case "memory":
		wf.EnableMemoryCache(cfg.MaxSize, ttl)
	case "file":
		if cfg.Dir == "" {
			return domain.ErrWorkflowCacheDirRequired
		}
		c, err := file.New(cfg.Dir)
		if err != nil {
			return zerr.Wrap(err, "failed to open file cache")
		}
		wf.SetCache(c)
		wf.SetCacheEnabled(true)
	case "redis":
		if cfg.RedisAddr == "" {
			return domain.ErrWorkflowRedisAddrRequired
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		wf.SetCache(distributed.New(client))
		wf.SetCacheEnabled(true)
	default:
		return zerr.With(domain.ErrWorkflowUnknownCacheBackend, "backend", cfg.Backend)
	}
	return nil
}
