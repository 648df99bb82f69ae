package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/engine/internal/core/domain"
)

func name(s string) domain.InternedString { return domain.NewInternedString(s) }

func TestGraph_ValidateDetectsSelfDependency(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(domain.Task{Name: name("A"), Dependencies: []domain.InternedString{name("A")}}))

	err := g.Validate()
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestGraph_ValidateDetectsTwoNodeCycle(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(domain.Task{Name: name("A"), Dependencies: []domain.InternedString{name("B")}}))
	require.NoError(t, g.AddTask(domain.Task{Name: name("B"), Dependencies: []domain.InternedString{name("A")}}))

	err := g.Validate()
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestGraph_ValidateDetectsMissingDependency(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(domain.Task{Name: name("A"), Dependencies: []domain.InternedString{name("ghost")}}))

	err := g.Validate()
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestGraph_RejectsDuplicateNames(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(domain.Task{Name: name("A")}))

	err := g.AddTask(domain.Task{Name: name("A")})
	assert.ErrorIs(t, err, domain.ErrTaskAlreadyExists)

	err = g.AddGroup(domain.Group{Name: name("A"), ForEach: "A.items"})
	assert.ErrorIs(t, err, domain.ErrGroupAlreadyExists)
}

func TestGraph_WalkReturnsDeterministicTopologicalOrder(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(domain.Task{Name: name("C"), Dependencies: []domain.InternedString{name("B")}}))
	require.NoError(t, g.AddTask(domain.Task{Name: name("B"), Dependencies: []domain.InternedString{name("A")}}))
	require.NoError(t, g.AddTask(domain.Task{Name: name("A")}))
	require.NoError(t, g.Validate())

	var order []string
	for n := range g.Walk() {
		order = append(order, n.String())
	}
	assert.Equal(t, []string{"A", "B", "C"}, order)

	// Re-running Validate (and re-Walking) must produce the identical order.
	require.NoError(t, g.Validate())
	var order2 []string
	for n := range g.Walk() {
		order2 = append(order2, n.String())
	}
	assert.Equal(t, order, order2)
}

func TestGraph_GroupSynthesizesDependencyOnForEachRoot(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(domain.Task{Name: name("fetch")}))
	require.NoError(t, g.AddGroup(domain.Group{Name: name("process"), ForEach: "fetch.items"}))
	require.NoError(t, g.Validate())

	deps := g.Dependencies(name("process"))
	require.Len(t, deps, 1)
	assert.Equal(t, "fetch", deps[0].String())

	dependents := g.Dependents(name("fetch"))
	require.Len(t, dependents, 1)
	assert.Equal(t, "process", dependents[0].String())

	assert.True(t, g.IsGroup(name("process")))
	assert.False(t, g.IsGroup(name("fetch")))
}

func TestGraph_AddDependencyMutatesRegisteredTask(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(domain.Task{Name: name("A")}))
	require.NoError(t, g.AddTask(domain.Task{Name: name("B")}))

	require.NoError(t, g.AddDependency(name("B"), name("A")))

	task, ok := g.GetTask(name("B"))
	require.True(t, ok)
	require.Len(t, task.Dependencies, 1)
	assert.Equal(t, "A", task.Dependencies[0].String())

	require.NoError(t, g.Validate())
	bDeps := g.Dependents(name("A"))
	require.Len(t, bDeps, 1)
	assert.Equal(t, "B", bDeps[0].String())
}

func TestGraph_AddDependencyOnUnknownTaskFails(t *testing.T) {
	g := domain.NewGraph()
	err := g.AddDependency(name("ghost"), name("A"))
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
