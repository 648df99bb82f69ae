package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/engine/cmd/taskflow/commands"
	"github.com/taskflow/engine/internal/app"
	"github.com/taskflow/engine/internal/build"
	"github.com/taskflow/engine/internal/core/domain"
)

type mockApp struct {
	runFunc func(ctx context.Context, path string, opts app.RunOptions) (map[string]domain.Result, error)
}

func (m *mockApp) Run(ctx context.Context, path string, opts app.RunOptions) (map[string]domain.Result, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, path, opts)
	}
	return nil, nil
}

func TestCommands_Run(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.RunOptions
		var capturedPath string
		called := false

		mock := &mockApp{
			runFunc: func(_ context.Context, path string, opts app.RunOptions) (map[string]domain.Result, error) {
				capturedOpts = opts
				capturedPath = path
				called = true
				return map[string]domain.Result{"a": {Success: true, Status: domain.StatusCompleted}}, nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"run", "taskflow.yaml", "--no-cache"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, called)
		assert.True(t, capturedOpts.NoCache)
		assert.Equal(t, "taskflow.yaml", capturedPath)
	})

	t.Run("returns error on run failure", func(t *testing.T) {
		mock := &mockApp{
			runFunc: func(_ context.Context, _ string, _ app.RunOptions) (map[string]domain.Result, error) {
				return nil, errors.New("simulated error")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"run", "taskflow.yaml"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})

	t.Run("prints task results", func(t *testing.T) {
		mock := &mockApp{
			runFunc: func(_ context.Context, _ string, _ app.RunOptions) (map[string]domain.Result, error) {
				return map[string]domain.Result{
					"build": {Success: true, Status: domain.StatusCompleted},
				}, nil
			},
		}

		cli := commands.New(mock)
		buf := new(bytes.Buffer)
		cli.SetOutput(buf, buf)
		cli.SetArgs([]string{"run", "taskflow.yaml"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "build:")
	})
}

func TestCommands_Version(t *testing.T) {
	mock := &mockApp{}
	cli := commands.New(mock)

	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), build.Version)
}
