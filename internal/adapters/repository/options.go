package repository

import (
	"github.com/okian/matchtag/pkg/logger"
)

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPool sets the connection pool limits.
func WithPool(maxOpen, maxIdle int) PostgresOption {
	return func(s *PostgresStore) {
		if maxOpen > 0 {
			s.maxOpen = maxOpen
		}
		if maxIdle > 0 {
			s.maxIdle = maxIdle
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) PostgresOption {
	return func(s *PostgresStore) {
		if l != nil {
			s.logger = l
		}
	}
}
