// Package worker persists save jobs off the queue.
package worker

import (
	"time"

	"github.com/okian/matchtag/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRetry sets the first retry interval and the total time a job is
// retried before it is dropped.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(w *InMemoryWorker) {
		if initial > 0 {
			w.retryInitial = initial
		}
		if maxElapsed > 0 {
			w.retryMaxElapsed = maxElapsed
		}
	}
}
