// Package queue moves jobs between the web process and workers.
// Jobs are JSON encoded so any serializable type can travel.
package queue

import "context"

// Handler processes a single job
type Handler[T any] func(ctx context.Context, job T) error

// Dispatcher enqueues jobs, fire and forget
type Dispatcher[T any] interface {
	Dispatch(ctx context.Context, job T) error
}

// Consumer pulls jobs and hands them to a handler until ctx is done
type Consumer[T any] interface {
	Consume(ctx context.Context, handle Handler[T]) error
}

// Logger is the subset of the account logger used here
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
