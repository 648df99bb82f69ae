// Package ports declares the interfaces the engine depends on and that
// adapters implement: logging, tracing, and the cache backend contract.
package ports

import "github.com/taskflow/engine/internal/core/domain"

//go:generate mockgen -source=logger.go -destination=mocks/logger_mock.go -package=mocks

// Logger is the structured logging sink used by the engine and its
// adapters. Implementations decide presentation (pretty vs JSON);
// callers only ever pass a message or an error.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(err error)

	// TaskFailed logs a terminal task or group failure, carrying the
	// ErrorKind so presentation can group/color by cause (timeout,
	// dependency, path, user, internal) rather than just printing the error.
	TaskFailed(taskName string, kind domain.ErrorKind, err error)
}
