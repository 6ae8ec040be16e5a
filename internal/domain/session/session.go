// Package session implements the tagging session controller: the state
// machine that owns a match's MatchState and turns user tags into committed
// history.
//
// A Session is not safe for concurrent use. Callers that share one across
// goroutines must serialise access themselves.
package session

import (
	"github.com/google/uuid"

	"github.com/okian/matchtag/internal/domain/autogen"
	"github.com/okian/matchtag/internal/domain/markers"
	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/tracker"
	"github.com/okian/matchtag/internal/domain/validation"
)

// Default session configuration constants.
const (
	defaultKickoutDelay = 1.0 // seconds after a score or wide
)

// Player fulfils seek requests. The session never reads the playback
// position itself; it is pushed in through SetCurrentTime.
type Player interface {
	Seek(t float64)
}

// Session is the tagging state machine for one match.
type Session struct {
	state        model.MatchState
	validator    *validation.Validator
	gen          *autogen.Generator
	newID        func() string
	player       Player
	kickoutDelay float64

	// Manually completed marker slots. Replays re-apply them.
	manual map[model.Slot]float64
}

// New creates an empty Session with configuration options.
func New(opts ...Option) *Session {
	s := &Session{
		state:        model.MatchState{Teams: model.DefaultTeams()},
		newID:        uuid.NewString,
		kickoutDelay: defaultKickoutDelay,
		manual:       make(map[model.Slot]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.gen == nil {
		s.gen = autogen.New(autogen.WithIDFunc(s.newID))
	}
	return s
}

// State returns a deep snapshot of the match state.
func (s *Session) State() model.MatchState {
	return s.state.Clone()
}

// Events returns a copy of the committed history for persistence.
func (s *Session) Events() []model.Event {
	return model.CloneEvents(s.state.History)
}

// ActiveTag returns a copy of the tag under construction.
func (s *Session) ActiveTag() (model.PartialEvent, bool) {
	if s.state.ActiveTag == nil {
		return model.PartialEvent{}, false
	}
	return *s.state.ActiveTag.Clone(), true
}

// StartTag opens a new Active Tag at time t. The team defaults to suggested,
// else the side in possession. The first tag of a match is pre-filled as a
// throw-up. It returns false when a tag is already being built.
func (s *Session) StartTag(t float64, suggested model.Team) bool {
	if s.state.ActiveTag != nil {
		return false
	}
	tag := &model.PartialEvent{ID: s.newID(), Time: model.Ptr(t)}
	switch {
	case suggested.Valid():
		tag.Team = model.Ptr(suggested)
	case s.state.Possession.Valid():
		tag.Team = model.Ptr(s.state.Possession)
	}
	if len(s.state.History) == 0 {
		tag.Action = model.Ptr(model.ActionThrowUp)
	}
	s.state.ActiveTag = tag
	s.clearIssues()
	return true
}

// UpdateActiveTag merges the set fields of patch into the Active Tag.
func (s *Session) UpdateActiveTag(patch model.PartialEvent) bool {
	if s.state.ActiveTag == nil {
		return false
	}
	s.state.ActiveTag.Merge(patch)
	return true
}

// CancelTag discards the Active Tag and any issues from the last save.
func (s *Session) CancelTag() bool {
	had := s.state.ActiveTag != nil
	s.state.ActiveTag = nil
	s.clearIssues()
	return had
}

// ToggleSecondHalf flips the half. Entering the second half replaces any
// Active Tag with a throw-up at the current time and clears possession.
func (s *Session) ToggleSecondHalf() bool {
	s.state.IsSecondHalf = !s.state.IsSecondHalf
	if !s.state.IsSecondHalf {
		return false
	}
	s.state.ActiveTag = &model.PartialEvent{
		ID:     s.newID(),
		Time:   model.Ptr(s.state.CurrentTime),
		Action: model.Ptr(model.ActionThrowUp),
	}
	s.state.Possession = model.TeamNone
	s.clearIssues()
	return true
}

// UpdateTeams replaces team names, ids and colours. Running scores stay
// derived from history.
func (s *Session) UpdateTeams(teams map[model.Team]model.TeamInfo) {
	for _, t := range model.Teams {
		info, ok := teams[t]
		if !ok {
			continue
		}
		info.Score = s.state.Score.For(t)
		s.state.Teams[t] = info
	}
}

// UpdatePossession overrides the team in possession. TeamNone clears it.
func (s *Session) UpdatePossession(t model.Team) bool {
	if t != model.TeamNone && !t.Valid() {
		return false
	}
	s.state.Possession = t
	return true
}

// SetCurrentTime records the player position.
func (s *Session) SetCurrentTime(t float64) bool {
	if t < 0 {
		return false
	}
	s.state.CurrentTime = t
	return true
}

// RequestSeek asks the attached player to jump to t.
func (s *Session) RequestSeek(t float64) bool {
	if s.player == nil || t < 0 {
		return false
	}
	s.player.Seek(t)
	return true
}

// SetMatchTimeMarker completes slot at time t without a backing event. Only
// the next open slot can be completed.
func (s *Session) SetMatchTimeMarker(slot model.Slot, t float64) bool {
	p, ok := markers.Complete(s.state.Progress, slot, t)
	if !ok {
		return false
	}
	s.state.Progress = p
	s.manual[slot] = t
	return true
}

// MatchTimeMarkers returns the period boundaries once all slots are done.
func (s *Session) MatchTimeMarkers() (model.MatchTimeMarkers, bool) {
	return markers.Markers(s.state.Progress)
}

// NextRequiredMatchEvent returns the label of the next open marker slot.
func (s *Session) NextRequiredMatchEvent() (string, bool) {
	slot, ok := markers.Next(s.state.Progress)
	if !ok {
		return "", false
	}
	return slot.Label(), true
}

func (s *Session) clearIssues() {
	s.state.ValidationErrors = nil
	s.state.Warnings = nil
}

// setDerived stores possession and score and mirrors the score onto the
// team records.
func (s *Session) setDerived(d tracker.State) {
	s.state.Possession = d.Possession
	s.state.Score = d.Score
	for _, t := range model.Teams {
		info := s.state.Teams[t]
		info.Score = d.Score.For(t)
		s.state.Teams[t] = info
	}
}
