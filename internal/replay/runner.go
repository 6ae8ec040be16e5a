package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/session"
	"github.com/okian/matchtag/pkg/logger"
)

// Report summarises a replayed match.
type Report struct {
	MatchID       string                  `json:"matchId"`
	Steps         int                     `json:"steps"`
	Saved         int                     `json:"saved"`
	Rejected      int                     `json:"rejected"`
	Skipped       int                     `json:"skipped"`
	AutoGenerated int                     `json:"autoGenerated"`
	Events        int                     `json:"events"`
	Score         model.Score             `json:"score"`
	Markers       *model.MatchTimeMarkers `json:"markers,omitempty"`
	Issues        map[string]int          `json:"issues,omitempty"`
	Timeline      []session.TimelineEntry `json:"timeline,omitempty"`
	Duration      time.Duration           `json:"duration"`
}

// Runner replays scripts against fresh sessions.
type Runner struct {
	sessionOpts []session.Option
	timeline    bool
	logger      logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSessionOptions passes opts to every session the runner creates.
func WithSessionOptions(opts ...session.Option) Option {
	return func(r *Runner) {
		r.sessionOpts = append(r.sessionOpts, opts...)
	}
}

// WithTimeline includes the combined timeline in reports.
func WithTimeline(on bool) Option {
	return func(r *Runner) {
		r.timeline = on
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: logger.Get().Named("replay")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays s step by step. Steps the session refuses are counted as
// skipped; a step that cannot be parsed stops the run.
func (r *Runner) Run(ctx context.Context, s Script) (Report, error) {
	start := time.Now()
	sess := session.New(r.sessionOpts...)
	rep := Report{MatchID: s.MatchID, Issues: make(map[string]int)}

	if len(s.Teams) > 0 {
		teams := make(map[model.Team]model.TeamInfo, len(s.Teams))
		for k, t := range s.Teams {
			team, err := model.ParseTeam(k)
			if err != nil || !team.Valid() {
				return rep, fmt.Errorf("%w: team %q", ErrBadStep, k)
			}
			teams[team] = model.TeamInfo{ID: k, Name: t.Name, Color: t.Color}
		}
		sess.UpdateTeams(teams)
	}

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Steps++
		applied, err := r.step(sess, st, &rep)
		if err != nil {
			return rep, fmt.Errorf("%w %d: %w", ErrBadStep, i, err)
		}
		if !applied {
			rep.Skipped++
			r.logger.Debug(ctx, "step not applied", logger.Int("step", i), logger.String("kind", st.Kind))
		}
	}

	state := sess.State()
	rep.Events = len(state.History)
	rep.Score = state.Score
	if m, ok := sess.MatchTimeMarkers(); ok {
		rep.Markers = &m
	}
	if r.timeline {
		rep.Timeline = sess.CombinedEvents()
	}
	rep.Duration = time.Since(start)

	r.logger.Info(ctx, "match replayed",
		logger.String("match_id", s.MatchID),
		logger.Int("steps", rep.Steps),
		logger.Int("saved", rep.Saved),
		logger.Int("rejected", rep.Rejected),
		logger.Int("events", rep.Events),
		logger.Duration("duration", rep.Duration),
	)
	return rep, nil
}

func (r *Runner) step(sess *session.Session, st Step, rep *Report) (bool, error) {
	switch st.Kind {
	case StepTag:
		return r.tag(sess, st, rep)
	case StepMarker:
		slot, err := model.ParseSlot(st.Slot)
		if err != nil {
			return false, err
		}
		return sess.SetMatchTimeMarker(slot, st.Time), nil
	case StepHalf:
		sess.ToggleSecondHalf()
		return true, nil
	case StepPossession:
		team, err := model.ParseTeam(st.Team)
		if err != nil {
			return false, err
		}
		return sess.UpdatePossession(team), nil
	case StepClock:
		return sess.SetCurrentTime(st.Time), nil
	case StepDelete:
		events := sess.Events()
		if st.Index < 0 || st.Index >= len(events) {
			return false, nil
		}
		return sess.DeleteEvent(events[st.Index].ID), nil
	}
	return false, fmt.Errorf("unknown kind %q", st.Kind)
}

// tag fills and saves one Active Tag. A tag the session seeded, such as the
// kickout after a score, is reused when the step tags the same action and
// discarded otherwise.
func (r *Runner) tag(sess *session.Session, st Step, rep *Report) (bool, error) {
	patch, opts, err := parseTag(st)
	if err != nil {
		return false, err
	}

	if active, ok := sess.ActiveTag(); ok && active.ActionOr("") != *patch.Action {
		sess.CancelTag()
	}
	if _, ok := sess.ActiveTag(); !ok {
		team := model.TeamNone
		if patch.Team != nil {
			team = *patch.Team
		}
		if !sess.StartTag(st.Time, team) {
			return false, nil
		}
	}
	sess.UpdateActiveTag(patch)

	res := sess.SaveTag(opts)
	for _, is := range res.Errors {
		rep.Issues[is.Code]++
	}
	for _, is := range res.Warnings {
		rep.Issues[is.Code]++
	}
	if !res.Saved {
		rep.Rejected++
		sess.CancelTag()
		return true, nil
	}
	rep.Saved++
	for _, e := range res.Committed {
		if e.AutoGenerated {
			rep.AutoGenerated++
		}
	}
	return true, nil
}

func parseTag(st Step) (model.PartialEvent, session.SaveOptions, error) {
	var (
		patch = model.PartialEvent{Time: model.Ptr(st.Time)}
		opts  = session.SaveOptions{ConfirmPossessionChange: st.Confirm}
	)
	action, err := model.ParseAction(st.Action)
	if err != nil {
		return patch, opts, err
	}
	patch.Action = &action

	outcome, ok := model.DefaultOutcome(action)
	if st.Outcome != "" {
		if outcome, err = model.ParseOutcome(st.Outcome); err != nil {
			return patch, opts, err
		}
	} else if !ok {
		return patch, opts, fmt.Errorf("action %q needs an outcome", action)
	}
	patch.Outcome = &outcome

	if st.Team != "" {
		team, err := model.ParseTeam(st.Team)
		if err != nil {
			return patch, opts, err
		}
		patch.Team = &team
	}

	if st.Card != "" {
		card, err := model.ParseAction(st.Card)
		if err != nil {
			return patch, opts, err
		}
		info := model.CardInfo{Card: card}
		if st.CardTeam != "" {
			team, err := model.ParseTeam(st.CardTeam)
			if err != nil {
				return patch, opts, err
			}
			info.Team = &team
		}
		opts.Card = &info
	}
	return patch, opts, nil
}
