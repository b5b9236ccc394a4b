package repository

import (
	"time"

	"github.com/okian/placar/pkg/logger"
)

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithLogger sets the logger used by the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPingTimeout bounds the connectivity check done by Open.
func WithPingTimeout(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.pingTimeout = d
		}
	}
}
