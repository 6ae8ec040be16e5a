package session

import (
	"github.com/okian/matchtag/internal/domain/autogen"
	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/validation"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithValidator replaces the default rule set.
func WithValidator(v *validation.Validator) Option {
	return func(s *Session) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithGenerator replaces the default auto-generation engine.
func WithGenerator(g *autogen.Generator) Option {
	return func(s *Session) {
		if g != nil {
			s.gen = g
		}
	}
}

// WithIDFunc overrides event id generation for tags. When no generator is
// set explicitly the default generator shares the same function.
func WithIDFunc(fn func() string) Option {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithPlayer attaches the video player that fulfils seek requests.
func WithPlayer(p Player) Option {
	return func(s *Session) {
		s.player = p
	}
}

// WithKickoutDelay sets how far after a score or wide the pending kickout
// tag is seeded.
func WithKickoutDelay(seconds float64) Option {
	return func(s *Session) {
		if seconds >= 0 {
			s.kickoutDelay = seconds
		}
	}
}

// WithTeams sets the initial team records.
func WithTeams(teams map[model.Team]model.TeamInfo) Option {
	return func(s *Session) {
		for _, t := range model.Teams {
			if info, ok := teams[t]; ok {
				s.state.Teams[t] = info
			}
		}
	}
}
