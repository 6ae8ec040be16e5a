package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("match not found")
	ErrStaleRevision = errors.New("stale revision")
	ErrInvalidMatch  = errors.New("invalid match id")
)
