package session

import (
	"github.com/okian/matchtag/internal/domain/markers"
	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/tracker"
	"github.com/okian/matchtag/internal/domain/validation"
)

// SaveOptions modifies a SaveTag call.
type SaveOptions struct {
	// Card saves a card together with the foul in the Active Tag. Both
	// commit or neither does.
	Card *model.CardInfo
	// ConfirmPossessionChange accepts a possession error by committing a
	// turnover won for the acting team ahead of the tag.
	ConfirmPossessionChange bool
}

// SaveResult reports what a SaveTag call did.
type SaveResult struct {
	Saved     bool          `json:"saved"`
	Committed []model.Event `json:"committed,omitempty"`
	Errors    []model.Issue `json:"errors,omitempty"`
	Warnings  []model.Issue `json:"warnings,omitempty"`
}

// txn stages commits on a copy of the derived state so a multi-event save
// can be dropped without touching the session.
type txn struct {
	history   []model.Event
	derived   tracker.State
	progress  model.MarkerProgress
	committed []model.Event
	warnings  []model.Issue
}

func (s *Session) begin() *txn {
	return &txn{
		history:  model.CloneEvents(s.state.History),
		derived:  tracker.State{Possession: s.state.Possession, Score: s.state.Score},
		progress: s.state.Progress,
	}
}

func (t *txn) apply(e model.Event) {
	t.history = append(t.history, e)
	t.derived = tracker.Apply(t.derived, e)
	t.progress = markers.Advance(t.progress, e)
	t.committed = append(t.committed, e)
}

func (t *txn) view(base *model.MatchState) model.MatchState {
	v := *base
	v.History = t.history
	v.Possession = t.derived.Possession
	v.Score = t.derived.Score
	v.Progress = t.progress
	return v
}

// SaveTag validates the Active Tag and commits it with the events it
// implies. On failure the tag is left as is and the issues are stored on the
// state.
func (s *Session) SaveTag(opts SaveOptions) SaveResult {
	if s.state.ActiveTag == nil {
		return SaveResult{}
	}
	cand := *s.state.ActiveTag.Clone()
	tx := s.begin()

	if opts.Card != nil {
		if issues := validation.ValidateCard(*opts.Card, cand); len(issues) > 0 {
			return s.reject(issues, nil)
		}
	}

	committed, errs := s.commit(tx, cand, opts.ConfirmPossessionChange)
	if len(errs) > 0 {
		return s.reject(errs, tx.warnings)
	}

	if opts.Card != nil {
		if _, errs := s.commit(tx, s.cardTag(tx, committed, *opts.Card), false); len(errs) > 0 {
			return s.reject(errs, tx.warnings)
		}
	}

	s.state.History = tx.history
	s.state.Progress = tx.progress
	s.setDerived(tx.derived)
	s.state.ActiveTag = s.pendingKickout(committed)
	s.state.ValidationErrors = nil
	s.state.Warnings = tx.warnings
	return SaveResult{Saved: true, Committed: tx.committed, Warnings: tx.warnings}
}

func (s *Session) reject(errs, warnings []model.Issue) SaveResult {
	s.state.ValidationErrors = errs
	s.state.Warnings = warnings
	return SaveResult{Errors: errs, Warnings: warnings}
}

// commit validates cand against the staged state and applies it together
// with its implied events. It returns the committed event, or the blocking
// issues.
func (s *Session) commit(tx *txn, cand model.PartialEvent, confirm bool) (model.Event, []model.Issue) {
	r := s.validator.Validate(cand, tx.history, tx.view(&s.state))
	tx.warnings = append(tx.warnings, r.Warnings...)

	if !r.Valid && confirm && onlyPossession(r.Errors) {
		action := cand.ActionOr("")
		team := cand.TeamOr(model.TeamNone)
		if action != model.ActionTurnover {
			tx.apply(model.Event{
				ID:            s.newID(),
				Time:          cand.TimeOr(0),
				Team:          team,
				Action:        model.ActionTurnover,
				Outcome:       model.OutcomeWon,
				AutoGenerated: true,
				Validated:     true,
			})
		}
		r = s.validator.Validate(cand, tx.history, tx.view(&s.state))
		if action == model.ActionTurnover && onlyPossession(r.Errors) {
			// The turnover itself is the possession change.
			r.Errors, r.Valid = nil, true
		}
	}
	if !r.Valid {
		return model.Event{}, r.Errors
	}

	e := s.toEvent(cand)
	tx.apply(e)
	for _, implied := range s.gen.GenerateImplied(e, tx.view(&s.state)) {
		tx.apply(implied)
	}
	return e, nil
}

// toEvent fills the defaults of a validated candidate.
func (s *Session) toEvent(cand model.PartialEvent) model.Event {
	action := cand.ActionOr("")
	e := model.Event{
		ID:        cand.ID,
		Time:      cand.TimeOr(0),
		Team:      cand.TeamOr(model.TeamNone),
		Action:    action,
		Outcome:   cand.OutcomeOr(""),
		Validated: true,
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.Outcome == "" {
		e.Outcome, _ = model.DefaultOutcome(action)
	}
	if action.IsWhistle() {
		e.Team = model.PlaceholderTeam
	}
	return e
}

// cardTag builds the card half of a foul+card save. It is timed at the end
// of the foul's chain so it never breaks ordering.
func (s *Session) cardTag(tx *txn, foul model.Event, info model.CardInfo) model.PartialEvent {
	team := foul.Team.Opponent()
	if info.Team != nil {
		team = *info.Team
	}
	last := tx.history[len(tx.history)-1]
	return model.PartialEvent{
		ID:      s.newID(),
		Time:    model.Ptr(last.Time),
		Team:    model.Ptr(team),
		Action:  model.Ptr(info.Card),
		Outcome: model.Ptr(model.OutcomeNA),
	}
}

// pendingKickout seeds the kickout tag that follows a score or wide.
func (s *Session) pendingKickout(e model.Event) *model.PartialEvent {
	if e.Action != model.ActionShot || !e.Outcome.EndsPossession() {
		return nil
	}
	return &model.PartialEvent{
		ID:     s.newID(),
		Time:   model.Ptr(e.Time + s.kickoutDelay),
		Team:   model.Ptr(e.Team.Opponent()),
		Action: model.Ptr(model.ActionKickout),
	}
}

func onlyPossession(errs []model.Issue) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if e.Code != validation.CodePossession {
			return false
		}
	}
	return true
}
