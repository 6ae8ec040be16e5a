// Package validation checks a candidate tag against the committed history
// before it is allowed into a session.
//
// Validation never mutates its inputs and never returns an error value:
// problems are reported as model.Issue records so the caller can keep the
// Active Tag and let the user correct it.
package validation

import (
	"fmt"

	"github.com/okian/matchtag/internal/domain/model"
)

// Issue codes.
const (
	CodeMissingTime       = "missing_time"
	CodeNegativeTime      = "negative_time"
	CodeMissingAction     = "missing_action"
	CodeMissingTeam       = "missing_team"
	CodeMissingOutcome    = "missing_outcome"
	CodeIllegalOutcome    = "illegal_outcome"
	CodeTemporalOrder     = "temporal_order"
	CodePossession        = "possession"
	CodeSuspiciousKickout = "suspicious_kickout"
	CodeCardRequiresFoul  = "card_requires_foul"
	CodeIllegalCard       = "illegal_card"
)

// Default kickout plausibility window.
const (
	defaultKickoutLookback = 3
	defaultKickoutWindow   = 60.0 // seconds
)

// Result is the outcome of validating one candidate.
type Result struct {
	Valid    bool
	Errors   []model.Issue
	Warnings []model.Issue
}

// Validator holds the tunables of the rule set.
type Validator struct {
	kickoutLookback int
	kickoutWindow   float64
}

// New creates a Validator with configuration options.
func New(opts ...Option) *Validator {
	v := &Validator{
		kickoutLookback: defaultKickoutLookback,
		kickoutWindow:   defaultKickoutWindow,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultValidator = New()

// Validate runs the default rule set.
func Validate(candidate model.PartialEvent, history []model.Event, state model.MatchState) Result {
	return defaultValidator.Validate(candidate, history, state)
}

// Validate checks candidate against history and the current derived state.
func (v *Validator) Validate(candidate model.PartialEvent, history []model.Event, state model.MatchState) Result {
	var r Result

	if candidate.Action == nil || !candidate.Action.Valid() {
		r.Errors = append(r.Errors, issue(CodeMissingAction, "action", "Action is required", ""))
		// Every other rule depends on the action.
		r.addTimeIssues(candidate, history)
		return r
	}
	action := *candidate.Action

	if !action.IsWhistle() && (candidate.Team == nil || !candidate.Team.Valid()) {
		r.Errors = append(r.Errors, issue(CodeMissingTeam, "team",
			fmt.Sprintf("%s events must specify a team", action), ""))
	}

	v.checkOutcome(&r, candidate, action)
	r.addTimeIssues(candidate, history)
	v.checkPossession(&r, candidate, action, state)
	v.checkKickoutSequence(&r, candidate, action, history)

	r.Valid = len(r.Errors) == 0
	return r
}

// ValidateCard checks the card half of a foul+card save.
func ValidateCard(info model.CardInfo, foul model.PartialEvent) []model.Issue {
	var out []model.Issue
	if foul.ActionOr("") != model.ActionFoul {
		out = append(out, issue(CodeCardRequiresFoul, "card",
			"A card can only be saved together with a foul", "Set the action to Foul or save the card on its own"))
	}
	if !info.Card.IsCard() {
		out = append(out, issue(CodeIllegalCard, "card",
			fmt.Sprintf("%q is not a card", info.Card), "Pick a yellow, black or red card"))
	}
	if info.Team != nil && !info.Team.Valid() {
		out = append(out, issue(CodeMissingTeam, "card.team", "Carded team must be red or blue", ""))
	}
	return out
}

func (v *Validator) checkOutcome(r *Result, candidate model.PartialEvent, action model.Action) {
	if candidate.Outcome == nil {
		if _, ok := model.DefaultOutcome(action); !ok {
			r.Errors = append(r.Errors, issue(CodeMissingOutcome, "outcome",
				fmt.Sprintf("%s events must specify outcome", action), ""))
		}
		return
	}
	if !model.IsLegal(action, *candidate.Outcome) {
		r.Errors = append(r.Errors, issue(CodeIllegalOutcome, "outcome",
			fmt.Sprintf("%q is not a valid outcome for %s", *candidate.Outcome, action),
			fmt.Sprintf("Use one of %v", model.LegalOutcomes(action))))
	}
}

func (r *Result) addTimeIssues(candidate model.PartialEvent, history []model.Event) {
	if candidate.Time == nil {
		r.Errors = append(r.Errors, issue(CodeMissingTime, "time", "Event time is required", ""))
		return
	}
	t := *candidate.Time
	if t < 0 {
		r.Errors = append(r.Errors, issue(CodeNegativeTime, "time", "Event time cannot be negative", ""))
		return
	}
	// An empty history has nothing to order against, which covers the
	// opening throw-up at any time >= 0.
	if len(history) == 0 {
		return
	}
	last := history[len(history)-1]
	if t < last.Time {
		r.Errors = append(r.Errors, issue(CodeTemporalOrder, "time",
			fmt.Sprintf("Event at %.1fs is before the last tagged event at %.1fs", t, last.Time),
			"Seek forward or delete the later events first"))
	}
}

func (v *Validator) checkPossession(r *Result, candidate model.PartialEvent, action model.Action, state model.MatchState) {
	if candidate.Team == nil || !candidate.Team.Valid() {
		return
	}
	needsBall := action == model.ActionShot ||
		(action == model.ActionTurnover && candidate.OutcomeOr("") == model.OutcomeWon)
	if !needsBall || state.Possession == *candidate.Team {
		return
	}
	holder := "no team"
	if state.Possession.Valid() {
		holder = state.Possession.String()
	}
	what := string(action)
	if candidate.Outcome != nil {
		what += " " + string(*candidate.Outcome)
	}
	r.Errors = append(r.Errors, issue(CodePossession, "team",
		fmt.Sprintf("%s recorded for %s but %s has possession", what, *candidate.Team, holder),
		"Confirm to auto-create a possession change, or pick the correct team"))
}

func (v *Validator) checkKickoutSequence(r *Result, candidate model.PartialEvent, action model.Action, history []model.Event) {
	if action != model.ActionKickout || candidate.Time == nil {
		return
	}
	t := *candidate.Time
	seen := 0
	for i := len(history) - 1; i >= 0 && seen < v.kickoutLookback; i-- {
		e := history[i]
		if t-e.Time > v.kickoutWindow {
			break
		}
		seen++
		if e.Action == model.ActionShot && e.Outcome.EndsPossession() {
			return
		}
	}
	r.Warnings = append(r.Warnings, model.Issue{
		Code:       CodeSuspiciousKickout,
		Severity:   model.SeverityWarning,
		Field:      "action",
		Message:    "Kickout without a recent score or wide",
		Suggestion: "Check that the preceding shot was tagged",
	})
}

func issue(code, field, msg, suggestion string) model.Issue {
	return model.Issue{Code: code, Severity: model.SeverityError, Field: field, Message: msg, Suggestion: suggestion}
}
