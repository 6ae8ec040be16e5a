// Package tracker derives possession and score from the event history.
//
// Every function here is deterministic: the same ordered events always fold
// to the same State.
package tracker

import "github.com/okian/matchtag/internal/domain/model"

// State is the derived "who has the ball" and running score.
type State struct {
	Possession model.Team
	Score      model.Score
}

// Apply folds one committed event into prev.
func Apply(prev State, e model.Event) State {
	next := prev
	if p, ok := possessionAfter(e); ok {
		next.Possession = p
	}
	if e.Action == model.ActionShot && e.Outcome.IsScore() && e.Team.Valid() {
		next.Score = next.Score.With(e.Team, next.Score.For(e.Team).Add(e.Outcome))
	}
	return next
}

// Replay folds events in order starting from an empty state.
func Replay(events []model.Event) State {
	return ReplayFrom(State{}, events)
}

// ReplayFrom folds events in order starting from s.
func ReplayFrom(s State, events []model.Event) State {
	for _, e := range events {
		s = Apply(s, e)
	}
	return s
}

// possessionAfter returns the team in possession after e, and false when e
// leaves possession unchanged.
func possessionAfter(e model.Event) (model.Team, bool) {
	if !e.Team.Valid() {
		return model.TeamNone, false
	}
	switch {
	case e.Action == model.ActionThrowUp:
		if e.Outcome == model.OutcomeWon {
			return e.Team, true
		}
	case e.Action == model.ActionTurnover, e.Action.IsRestart():
		switch e.Outcome {
		case model.OutcomeWon:
			return e.Team, true
		case model.OutcomeLost:
			return e.Team.Opponent(), true
		}
	case e.Action == model.ActionFoul:
		// The event team is the side receiving the award.
		if e.Outcome == model.OutcomeAwardedTo {
			return e.Team, true
		}
	case e.Action.IsCard():
		return e.Team.Opponent(), true
	case e.Action == model.ActionShot:
		if e.Outcome.EndsPossession() {
			return e.Team.Opponent(), true
		}
	}
	return model.TeamNone, false
}
