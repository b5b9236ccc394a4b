package worker

import (
	"context"

	"github.com/okian/placar/pkg/logger"
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
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithFailureHandler registers a callback for submissions the writer rejected.
func WithFailureHandler(fn func(ctx context.Context, s Submission, err error)) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = fn
	}
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger used by the pool and its workers.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPoolFailureHandler is WithFailureHandler for every worker in the pool.
func WithPoolFailureHandler(fn func(ctx context.Context, s Submission, err error)) PoolOption {
	return func(p *Pool) {
		p.onFailure = fn
	}
}
