package handoff

import "errors"

// Sentinel errors for the AMQP publisher.
var (
	ErrClosed      = errors.New("publisher closed")
	ErrUnavailable = errors.New("broker unavailable")
)
