package domain

import (
	"iter"
	"slices"

	"go.trai.ch/zerr"
)

type visitState int

const (
	visitUnvisited visitState = iota
	visitInProgress
	visitDone
)

// Graph is the dependency graph over a workflow's tasks and groups. A group
// participates in the graph via a synthetic dependency on the task named by
// the first segment of its ForEach path; that is its only dependency, since
// AddDependency accepts tasks only.
type Graph struct {
	tasks        map[InternedString]Task
	groups       map[InternedString]Group
	names        []InternedString // insertion order, for deterministic iteration
	dependents   map[InternedString][]InternedString
	executionOrder []InternedString
	validated    bool
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:      make(map[InternedString]Task),
		groups:     make(map[InternedString]Group),
		dependents: make(map[InternedString][]InternedString),
	}
}

// AddTask registers a task. Name must be unique across tasks and groups.
func (g *Graph) AddTask(t Task) error {
	if err := g.checkNameFree(t.Name, ErrTaskAlreadyExists); err != nil {
		return err
	}
	g.tasks[t.Name] = t
	g.names = append(g.names, t.Name)
	g.validated = false
	return nil
}

// AddGroup registers a task group. Name must be unique across tasks and
// groups. The group's synthetic dependency on its ForEach root is recorded
// at Validate time, once all names are known.
func (g *Graph) AddGroup(grp Group) error {
	if err := g.checkNameFree(grp.Name, ErrGroupAlreadyExists); err != nil {
		return err
	}
	g.groups[grp.Name] = grp
	g.names = append(g.names, grp.Name)
	g.validated = false
	return nil
}

// checkNameFree reports sentinel (the error of the kind being added) when
// name is already taken by either a task or a group.
func (g *Graph) checkNameFree(name InternedString, sentinel error) error {
	_, isTask := g.tasks[name]
	_, isGroup := g.groups[name]
	if isTask || isGroup {
		return zerr.With(sentinel, "name", name.String())
	}
	return nil
}

// AddDependency appends depName to taskName's dependency list. It is used
// by the scheduler's TaskHandle.AddDependency to mutate a task already
// registered in the graph.
func (g *Graph) AddDependency(taskName, depName InternedString) error {
	t, ok := g.tasks[taskName]
	if !ok {
		return zerr.With(ErrTaskNotFound, "name", taskName.String())
	}
	t.Dependencies = append(t.Dependencies, depName)
	g.tasks[taskName] = t
	g.validated = false
	return nil
}

// GetTask returns the task registered under name.
func (g *Graph) GetTask(name InternedString) (Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// GetGroup returns the group registered under name.
func (g *Graph) GetGroup(name InternedString) (Group, bool) {
	grp, ok := g.groups[name]
	return grp, ok
}

// IsGroup reports whether name refers to a task group rather than a task.
func (g *Graph) IsGroup(name InternedString) bool {
	_, ok := g.groups[name]
	return ok
}

// TaskCount returns the number of tasks plus groups in the graph.
func (g *Graph) TaskCount() int {
	return len(g.tasks) + len(g.groups)
}

// Dependencies returns the full dependency set for name, including a group's
// synthetic dependency on its ForEach root.
func (g *Graph) Dependencies(name InternedString) []InternedString {
	if t, ok := g.tasks[name]; ok {
		return t.Dependencies
	}
	if grp, ok := g.groups[name]; ok {
		deps := make([]InternedString, 0, 1)
		deps = append(deps, NewInternedString(grp.ParentTaskName()))
		return deps
	}
	return nil
}

// Dependents returns the names that directly depend on name. Valid only
// after Validate.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Validate checks that every dependency resolves to a known name, that
// there are no self-dependencies, and that the graph is acyclic. It also
// computes the dependents index and a deterministic topological
// executionOrder (ties broken by name) used by Walk.
func (g *Graph) Validate() error {
	if g.validated {
		return nil
	}

	sortedNames := slices.Clone(g.names)
	slices.SortFunc(sortedNames, func(a, b InternedString) int {
		as, bs := a.String(), b.String()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	})

	dependents := make(map[InternedString][]InternedString)
	for _, name := range sortedNames {
		for _, dep := range g.Dependencies(name) {
			if dep == name {
				return zerr.With(ErrCycleDetected, "task", name.String(), "reason", "self-dependency")
			}
			if !g.checkNameExists(dep) {
				return zerr.With(ErrMissingDependency, "task", name.String(), "dependency", dep.String())
			}
			dependents[dep] = append(dependents[dep], name)
		}
	}

	order, err := g.topologicalSort(sortedNames)
	if err != nil {
		return err
	}

	g.dependents = dependents
	g.executionOrder = order
	g.validated = true
	return nil
}

func (g *Graph) checkNameExists(name InternedString) bool {
	if _, ok := g.tasks[name]; ok {
		return true
	}
	_, ok := g.groups[name]
	return ok
}

func (g *Graph) topologicalSort(sortedNames []InternedString) ([]InternedString, error) {
	state := make(map[InternedString]visitState, len(sortedNames))
	order := make([]InternedString, 0, len(sortedNames))

	var visit func(name InternedString, path []InternedString) error
	visit = func(name InternedString, path []InternedString) error {
		switch state[name] {
		case visitDone:
			return nil
		case visitInProgress:
			return buildCycleError(append(path, name))
		}

		state[name] = visitInProgress
		deps := slices.Clone(g.Dependencies(name))
		slices.SortFunc(deps, func(a, b InternedString) int {
			as, bs := a.String(), b.String()
			switch {
			case as < bs:
				return -1
			case as > bs:
				return 1
			default:
				return 0
			}
		})
		for _, dep := range deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = visitDone
		order = append(order, name)
		return nil
	}

	for _, name := range sortedNames {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	return order, nil
}

func buildCycleError(path []InternedString) error {
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = p.String()
	}
	return zerr.With(ErrCycleDetected, "path", slices.Clone(names))
}

// Walk returns the graph's names in dependency-respecting topological
// order. Validate must be called first (the scheduler always does so
// before running).
func (g *Graph) Walk() iter.Seq[InternedString] {
	return func(yield func(InternedString) bool) {
		for _, name := range g.executionOrder {
			if !yield(name) {
				return
			}
		}
	}
}
