package service

import (
	"github.com/okian/matchtag/internal/adapters/mq/handoff"
	"github.com/okian/matchtag/internal/adapters/repository"
	"github.com/okian/matchtag/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending save jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithIdempotencySize sets how many idempotency keys are remembered.
func WithIdempotencySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.idempotencySize = size
		}
	}
}

// WithStore sets the event store. The default is an in-memory store.
func WithStore(store repository.EventStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher sets the marker hand-off publisher. The default logs.
func WithPublisher(p handoff.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithBroadcaster sets where state views are pushed after each change.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) {
		if b != nil {
			s.broadcaster = b
		}
	}
}

// WithKickoutDelay sets how long after a score or wide the follow-up
// kickout tag is placed.
func WithKickoutDelay(seconds float64) Option {
	return func(s *Service) {
		if seconds >= 0 {
			s.kickoutDelay = seconds
		}
	}
}

// WithFoulOffset sets the gap between a foul and its implied kickout.
func WithFoulOffset(seconds float64) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.foulOffset = seconds
		}
	}
}

// WithKickoutWindow sets the look-back used by the kickout sequence warning.
func WithKickoutWindow(events int, seconds float64) Option {
	return func(s *Service) {
		if events > 0 && seconds > 0 {
			s.kickoutLookback = events
			s.kickoutWindow = seconds
		}
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
