// Package registry provides the concrete type-name-to-constructor map that
// task groups and the workflow builder use to materialize task instances.
package registry

import (
	"sync"

	"github.com/taskflow/engine/internal/core/domain"
	"github.com/taskflow/engine/internal/core/ports"
	"go.trai.ch/zerr"
)

// Registry implements ports.Registry with a mutex-guarded map.
type Registry struct {
	mu    sync.RWMutex
	types map[string]ports.Constructor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{types: make(map[string]ports.Constructor)}
}

// Register adds a constructor under taskType. Re-registering an existing
// name is an error.
func (r *Registry) Register(taskType string, ctor ports.Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[taskType]; exists {
		return zerr.With(domain.ErrTypeAlreadyRegistered, "type", taskType)
	}
	r.types[taskType] = ctor
	return nil
}

// New constructs a TaskRunner instance of taskType.
func (r *Registry) New(taskType, name string, config map[string]any) (ports.TaskRunner, error) {
	r.mu.RLock()
	ctor, ok := r.types[taskType]
	r.mu.RUnlock()

	if !ok {
		return nil, zerr.With(domain.ErrTypeNotRegistered, "type", taskType)
	}
	return ctor(name, config)
}
