package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrSessionNotFound = errors.New("match session not open")
	ErrInvalidMatchID  = errors.New("invalid match id")
	// ErrNotApplied reports a command whose precondition did not hold, such
	// as saving with no active tag. Nothing changed.
	ErrNotApplied = errors.New("command not applied")
)
