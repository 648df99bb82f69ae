package workflowfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/engine/internal/registry"
	"github.com/taskflow/engine/internal/tasks/builtin"
	"github.com/taskflow/engine/internal/workflowfile"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, builtin.Register(reg))
	return reg
}

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_BuildsWorkflowWithDependencies(t *testing.T) {
	path := writeFile(t, `
version: "1"
tasks:
  a:
    type: echo
    config:
      msg: hello
  b:
    type: echo
    config:
      msg: world
    depends_on: [a]
`)

	wf, err := workflowfile.Load(path, newRegistry(t))
	require.NoError(t, err)

	results, err := wf.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, results["b"].Success)
}

func TestLoad_RejectsEmptyTaskSet(t *testing.T) {
	path := writeFile(t, "version: \"1\"\n")
	_, err := workflowfile.Load(path, newRegistry(t))
	require.Error(t, err)
}

func TestLoad_RejectsTaskMissingType(t *testing.T) {
	path := writeFile(t, `
tasks:
  a:
    config: {}
`)
	_, err := workflowfile.Load(path, newRegistry(t))
	require.Error(t, err)
}

func TestLoad_RejectsGroupMissingForEach(t *testing.T) {
	path := writeFile(t, `
tasks:
  a:
    type: echo
groups:
  g:
    type: echo
`)
	_, err := workflowfile.Load(path, newRegistry(t))
	require.Error(t, err)
}

func TestLoad_RejectsUnreadableFile(t *testing.T) {
	_, err := workflowfile.Load(filepath.Join(t.TempDir(), "missing.yaml"), newRegistry(t))
	require.Error(t, err)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := writeFile(t, "tasks: [this is not a map")
	_, err := workflowfile.Load(path, newRegistry(t))
	require.Error(t, err)
}

func TestLoad_EnablesFileCacheBackend(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, `
cache:
  backend: file
  dir: `+dir+`
tasks:
  a:
    type: echo
    config:
      cache_enabled: true
`)
	wf, err := workflowfile.Load(path, newRegistry(t))
	require.NoError(t, err)
	assert.NotNil(t, wf)
}

func TestLoad_RejectsFileCacheWithoutDir(t *testing.T) {
	path := writeFile(t, `
cache:
  backend: file
tasks:
  a:
    type: echo
`)
	_, err := workflowfile.Load(path, newRegistry(t))
	require.Error(t, err)
}

func TestLoad_EnablesRedisCacheBackend(t *testing.T) {
	path := writeFile(t, `
cache:
  backend: redis
  redis_addr: "localhost:6379"
tasks:
  a:
    type: echo
`)
	wf, err := workflowfile.Load(path, newRegistry(t))
	require.NoError(t, err)
	assert.NotNil(t, wf)
}

func TestLoad_RejectsRedisCacheWithoutAddr(t *testing.T) {
	path := writeFile(t, `
cache:
  backend: redis
tasks:
  a:
    type: echo
`)
	_, err := workflowfile.Load(path, newRegistry(t))
	require.Error(t, err)
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	path := writeFile(t, `
cache:
  backend: bogus
tasks:
  a:
    type: echo
`)
	_, err := workflowfile.Load(path, newRegistry(t))
	require.Error(t, err)
}
