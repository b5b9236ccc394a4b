package service

import (
	"github.com/okian/placar/internal/domain/stats"
	"github.com/okian/placar/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of store writers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending submissions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many client event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithEventWindow caps how many recent goal events feed the scorer board.
// 0 reads every stored goal.
func WithEventWindow(window int) Option {
	return func(s *Service) {
		if window >= 0 {
			s.eventWindow = window
		}
	}
}

// WithEngineOptions configures the aggregation engine.
func WithEngineOptions(opts ...stats.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
