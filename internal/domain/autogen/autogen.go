// Package autogen derives the events a committed tag implies, such as the
// opponent's turnover-won after a turnover-lost.
//
// Generated events are marked AutoGenerated and Validated and are never fed
// back into the generator.
package autogen

import (
	"github.com/google/uuid"

	"github.com/okian/matchtag/internal/domain/model"
)

// Default generator configuration constants.
const (
	defaultFoulOffset = 0.1 // seconds between a foul and its free kick
)

// Generator produces implied events.
type Generator struct {
	foulOffset float64
	newID      func() string
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		foulOffset: defaultFoulOffset,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var defaultGenerator = New()

// GenerateImplied runs the default generator.
func GenerateImplied(committed model.Event, state model.MatchState) []model.Event {
	return defaultGenerator.GenerateImplied(committed, state)
}

// FoulOffset returns the delay applied to a foul's awarded kickout.
func (g *Generator) FoulOffset() float64 {
	return g.foulOffset
}

// GenerateImplied returns the events implied by committed. The state is the
// match state after committed was applied; the current rule set does not
// need it but callers always pass it.
func (g *Generator) GenerateImplied(committed model.Event, _ model.MatchState) []model.Event {
	if committed.AutoGenerated || !committed.Team.Valid() {
		return nil
	}
	opp := committed.Team.Opponent()

	switch {
	case committed.Action == model.ActionTurnover && committed.Outcome == model.OutcomeLost:
		return g.one(committed.Time, opp, model.ActionTurnover)
	case committed.Action == model.ActionFoul && committed.Outcome == model.OutcomeAwardedTo:
		// The foul's team is the side the free is awarded to.
		return g.one(committed.Time+g.foulOffset, committed.Team, model.ActionKickout)
	case committed.Action.IsCard():
		return g.one(committed.Time, opp, model.ActionKickout)
	case committed.Action == model.ActionKickIn && committed.Outcome == model.OutcomeLost:
		return g.one(committed.Time, opp, model.ActionKickIn)
	case committed.Action == model.ActionKickout && committed.Outcome == model.OutcomeLost:
		return g.one(committed.Time, opp, model.ActionTurnover)
	}
	return nil
}

func (g *Generator) one(t float64, team model.Team, action model.Action) []model.Event {
	return []model.Event{{
		ID:            g.newID(),
		Time:          t,
		Team:          team,
		Action:        action,
		Outcome:       model.OutcomeWon,
		AutoGenerated: true,
		Validated:     true,
	}}
}
