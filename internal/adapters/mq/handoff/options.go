package handoff

import (
	"time"

	"github.com/okian/matchtag/pkg/logger"
)

// Option applies a configuration option to the AMQPPublisher.
type Option func(*AMQPPublisher)

// WithExchange sets the topic exchange messages are published to.
func WithExchange(name string) Option {
	return func(p *AMQPPublisher) {
		if name != "" {
			p.exchange = name
		}
	}
}

// WithRoutingKey sets the routing key of every message.
func WithRoutingKey(key string) Option {
	return func(p *AMQPPublisher) {
		if key != "" {
			p.routingKey = key
		}
	}
}

// WithBreaker sets how many consecutive failures open the circuit and how
// long it stays open.
func WithBreaker(failures uint32, openFor time.Duration) Option {
	return func(p *AMQPPublisher) {
		if failures > 0 {
			p.tripAfter = failures
		}
		if openFor > 0 {
			p.openFor = openFor
		}
	}
}

// WithLogger sets a custom logger for the publisher.
func WithLogger(l logger.Logger) Option {
	return func(p *AMQPPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

func withDialer(d dialFunc) Option {
	return func(p *AMQPPublisher) {
		p.dial = d
	}
}
