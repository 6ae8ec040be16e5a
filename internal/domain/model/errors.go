package model

import "errors"

// Sentinel kinds for vocabulary parsing.
var (
	ErrUnknownTeam    = errors.New("unknown team")
	ErrUnknownAction  = errors.New("unknown action")
	ErrUnknownOutcome = errors.New("unknown outcome")
	ErrUnknownSlot    = errors.New("unknown marker slot")
)
