package logger_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/engine/internal/adapters/logger"
)

func TestPrettyHandler_Handle_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		msg   string
	}{
		{name: "info level", level: slog.LevelInfo, msg: "information message"},
		{name: "warn level", level: slog.LevelWarn, msg: "warning message"},
		{name: "error level", level: slog.LevelError, msg: "error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
			lg := slog.New(handler)

			lg.Log(t.Context(), tt.level, tt.msg)

			assert.Contains(t, buf.String(), tt.msg)
		})
	}
}

func TestPrettyHandler_Handle_DebugFilteredOut(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	lg := slog.New(handler)

	lg.Debug("debug message")

	assert.Empty(t, buf.String())
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}).
		WithAttrs([]slog.Attr{slog.String("a", "1"), slog.Int("b", 2)})
	lg := slog.New(handler)

	lg.Info("multi attr message")

	out := buf.String()
	assert.Contains(t, out, "multi attr message")
	assert.Contains(t, out, "a=1")
	assert.Contains(t, out, "b=2")
}

func TestPrettyHandler_WithAttrs_Group(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}).
		WithGroup("req").
		WithAttrs([]slog.Attr{slog.String("id", "123")})
	lg := slog.New(handler)

	lg.Info("grouped message")

	assert.Contains(t, buf.String(), "req.id=123")
}

func TestPrettyHandler_WithGroup_NestedGroups(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	var handler slog.Handler = logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler = handler.WithGroup("a").WithGroup("b")
	lg := slog.New(handler)

	lg.Info("nested group message", "key", "val")

	assert.Contains(t, buf.String(), "a.b.key=val")
}

func TestPrettyHandler_WithGroup_EmptyNameReturnsSameHandler(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	sameHandler := handler.WithGroup("")

	assert.Same(t, handler, sameHandler)
}

func TestPrettyHandler_Enabled(t *testing.T) {
	tests := []struct {
		name         string
		handlerLevel slog.Level
		recordLevel  slog.Level
		wantEnabled  bool
	}{
		{name: "debug below info", handlerLevel: slog.LevelInfo, recordLevel: slog.LevelDebug, wantEnabled: false},
		{name: "info at info", handlerLevel: slog.LevelInfo, recordLevel: slog.LevelInfo, wantEnabled: true},
		{name: "warn above info", handlerLevel: slog.LevelInfo, recordLevel: slog.LevelWarn, wantEnabled: true},
		{name: "warn at error", handlerLevel: slog.LevelError, recordLevel: slog.LevelWarn, wantEnabled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: tt.handlerLevel})

			got := handler.Enabled(t.Context(), tt.recordLevel)
			assert.Equal(t, tt.wantEnabled, got)
		})
	}
}

func TestPrettyHandler_RecordAttrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	lg := slog.New(handler)

	lg.Info("multiple attrs", "a", "1", "b", "2", "c", "3")

	out := buf.String()
	assert.Contains(t, out, "multiple attrs")
	assert.Contains(t, out, "a=1")
	assert.Contains(t, out, "b=2")
	assert.Contains(t, out, "c=3")
}

func TestPrettyHandler_RecordAttrs_Multiline(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	handler := logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	lg := slog.New(handler)

	lg.Info("line1\nline2\nline3")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"), "the handler emits one trailing newline, not one per message line")
}

func TestPrettyHandler_NilWriterDefaultsToStderr(t *testing.T) {
	require.NotPanics(t, func() {
		_ = logger.NewPrettyHandler(nil, &slog.HandlerOptions{Level: slog.LevelInfo})
	})
}

func TestPrettyHandler_Handle_SwallowsWriteError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	handler := logger.NewPrettyHandler(&brokenWriter{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	lg := slog.New(handler)

	require.NotPanics(t, func() {
		lg.Info("this will fail to write")
	})
}

type brokenWriter struct{}

func (bw *brokenWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}
