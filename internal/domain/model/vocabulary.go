package model

import (
	"fmt"
	"strings"
)

// Action is the closed set of taggable in-game actions.
type Action string

// Actions.
const (
	ActionThrowUp         Action = "Throw-up"
	ActionTurnover        Action = "Turnover"
	ActionKickout         Action = "Kickout"
	ActionKickIn          Action = "Kick-in"
	ActionShot            Action = "Shot"
	ActionFoul            Action = "Foul"
	ActionYellowCard      Action = "Yellow Card"
	ActionBlackCard       Action = "Black Card"
	ActionRedCard         Action = "Red Card"
	ActionHalfTimeWhistle Action = "Half Time Whistle"
	ActionFullTimeWhistle Action = "Full Time Whistle"
)

// Outcome is the closed set of event outcomes. Legal outcomes depend on the
// action, see LegalOutcomes.
type Outcome string

// Outcomes.
const (
	OutcomeWon       Outcome = "Won"
	OutcomeLost      Outcome = "Lost"
	OutcomeOnePoint  Outcome = "1Point"
	OutcomeTwoPoint  Outcome = "2Point"
	OutcomeGoal      Outcome = "Goal"
	OutcomeWide      Outcome = "Wide"
	OutcomeSaved     Outcome = "Saved"
	OutcomeAwardedTo Outcome = "Awarded To"
	OutcomeNA        Outcome = "N/A"
)

// Actions lists every action in the order the tagging UI presents them.
var Actions = [...]Action{
	ActionThrowUp, ActionTurnover, ActionKickout, ActionKickIn, ActionShot,
	ActionFoul, ActionYellowCard, ActionBlackCard, ActionRedCard,
	ActionHalfTimeWhistle, ActionFullTimeWhistle,
}

// Outcomes lists every outcome.
var Outcomes = [...]Outcome{
	OutcomeWon, OutcomeLost, OutcomeOnePoint, OutcomeTwoPoint, OutcomeGoal,
	OutcomeWide, OutcomeSaved, OutcomeAwardedTo, OutcomeNA,
}

var (
	possessionOutcomes = []Outcome{OutcomeWon, OutcomeLost}
	shotOutcomes       = []Outcome{OutcomeOnePoint, OutcomeTwoPoint, OutcomeGoal, OutcomeWide, OutcomeSaved}
	notApplicable      = []Outcome{OutcomeNA}

	legalOutcomes = map[Action][]Outcome{
		ActionThrowUp:         {OutcomeWon},
		ActionTurnover:        possessionOutcomes,
		ActionKickout:         possessionOutcomes,
		ActionKickIn:          possessionOutcomes,
		ActionShot:            shotOutcomes,
		ActionFoul:            {OutcomeAwardedTo},
		ActionYellowCard:      notApplicable,
		ActionBlackCard:       notApplicable,
		ActionRedCard:         notApplicable,
		ActionHalfTimeWhistle: notApplicable,
		ActionFullTimeWhistle: notApplicable,
	}
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := legalOutcomes[a]
	return ok
}

// IsCard reports whether a is a yellow, black or red card.
func (a Action) IsCard() bool {
	return a == ActionYellowCard || a == ActionBlackCard || a == ActionRedCard
}

// IsWhistle reports whether a is one of the sentinel marker actions.
func (a Action) IsWhistle() bool {
	return a == ActionHalfTimeWhistle || a == ActionFullTimeWhistle
}

// IsRestart reports whether a is a kickout or kick-in.
func (a Action) IsRestart() bool {
	return a == ActionKickout || a == ActionKickIn
}

// LegalOutcomes returns the outcomes a may carry. The returned slice is a copy.
func LegalOutcomes(a Action) []Outcome {
	out := legalOutcomes[a]
	return append([]Outcome(nil), out...)
}

// IsLegal reports whether o is a legal outcome for a.
func IsLegal(a Action, o Outcome) bool {
	for _, legal := range legalOutcomes[a] {
		if legal == o {
			return true
		}
	}
	return false
}

// DefaultOutcome returns the outcome to use when a has exactly one legal
// outcome. ok is false when the caller must choose.
func DefaultOutcome(a Action) (o Outcome, ok bool) {
	legal := legalOutcomes[a]
	if len(legal) != 1 {
		return "", false
	}
	return legal[0], true
}

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	for _, known := range Outcomes {
		if known == o {
			return true
		}
	}
	return false
}

// Points returns the score value of o: 1Point 1, 2Point 2, Goal 3.
func (o Outcome) Points() int {
	switch o {
	case OutcomeOnePoint:
		return 1
	case OutcomeTwoPoint:
		return 2
	case OutcomeGoal:
		return 3
	default:
		return 0
	}
}

// IsScore reports whether o adds to the score.
func (o Outcome) IsScore() bool {
	return o.Points() > 0
}

// EndsPossession reports whether a shot with outcome o hands the ball to the
// defending side for a kickout.
func (o Outcome) EndsPossession() bool {
	return o.IsScore() || o == OutcomeWide
}

// ParseAction matches s case-insensitively against the action vocabulary.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	for _, a := range Actions {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// ParseOutcome matches s case-insensitively against the outcome vocabulary.
func ParseOutcome(s string) (Outcome, error) {
	s = strings.TrimSpace(s)
	for _, o := range Outcomes {
		if strings.EqualFold(string(o), s) {
			return o, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
}
