package service

import (
	"context"

	"github.com/okian/matchtag/internal/domain/dedupe"
	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/session"
	"github.com/okian/matchtag/pkg/metrics"
)

// View is the read model of one open match.
type View struct {
	MatchID      string                  `json:"matchId"`
	Revision     int64                   `json:"revision"`
	State        model.MatchState        `json:"state"`
	NextRequired string                  `json:"nextRequired,omitempty"`
	Markers      *model.MatchTimeMarkers `json:"markers,omitempty"`
}

func viewOf(matchID string, ms *matchSession) View {
	v := View{MatchID: matchID, Revision: ms.revision, State: ms.sess.State()}
	v.NextRequired, _ = ms.sess.NextRequiredMatchEvent()
	if m, ok := ms.sess.MatchTimeMarkers(); ok {
		v.Markers = &m
	}
	return v
}

// View returns the current view of an open match.
func (s *Service) View(_ context.Context, matchID string) (View, error) {
	var v View
	err := s.read(matchID, func(ms *matchSession) { v = viewOf(matchID, ms) })
	return v, err
}

// StartTag opens an Active Tag at t.
func (s *Service) StartTag(ctx context.Context, matchID string, t float64, team model.Team) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		ok := sess.StartTag(t, team)
		if ok {
			metrics.RecordTagStarted()
		}
		return ok, false
	})
}

// UpdateTag merges patch into the Active Tag.
func (s *Service) UpdateTag(ctx context.Context, matchID string, patch model.PartialEvent) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		return sess.UpdateActiveTag(patch), false
	})
}

// CancelTag discards the Active Tag.
func (s *Service) CancelTag(ctx context.Context, matchID string) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		ok := sess.CancelTag()
		if ok {
			metrics.RecordTagCancelled()
		}
		return ok, false
	})
}

// SaveTag validates and commits the Active Tag. A save blocked by
// validation is not an error: the result carries the issues.
func (s *Service) SaveTag(ctx context.Context, matchID string, opts session.SaveOptions) (session.SaveResult, error) {
	var res session.SaveResult
	_, err := s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		if _, ok := sess.ActiveTag(); !ok {
			return false, false
		}
		res = sess.SaveTag(opts)
		recordSave(res)
		return true, res.Saved
	})
	return res, err
}

func recordSave(res session.SaveResult) {
	for _, is := range res.Errors {
		metrics.RecordValidationIssue(is.Code, string(is.Severity))
	}
	for _, is := range res.Warnings {
		metrics.RecordValidationIssue(is.Code, string(is.Severity))
	}
	if !res.Saved {
		metrics.RecordTagRejected()
		return
	}
	metrics.RecordTagSaved()
	for _, e := range res.Committed {
		if e.AutoGenerated {
			metrics.RecordAutoGenerated(string(e.Action))
		}
	}
}

// DeleteEvent removes one committed event.
func (s *Service) DeleteEvent(ctx context.Context, matchID, eventID string) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		ok := sess.DeleteEvent(eventID)
		if ok {
			metrics.RecordEventsDeleted(1)
		}
		return ok, ok
	})
}

// DeleteAllEvents clears the history and returns how many events it held.
func (s *Service) DeleteAllEvents(ctx context.Context, matchID string) (int, View, error) {
	var n int
	v, err := s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		n = sess.DeleteAllEvents()
		metrics.RecordEventsDeleted(n)
		return true, n > 0
	})
	return n, v, err
}

// ToggleSecondHalf flips the half.
func (s *Service) ToggleSecondHalf(ctx context.Context, matchID string) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		sess.ToggleSecondHalf()
		return true, false
	})
}

// UpdateTeams replaces team details.
func (s *Service) UpdateTeams(ctx context.Context, matchID string, teams map[model.Team]model.TeamInfo) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		sess.UpdateTeams(teams)
		return true, false
	})
}

// UpdatePossession overrides the team in possession.
func (s *Service) UpdatePossession(ctx context.Context, matchID string, team model.Team) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		return sess.UpdatePossession(team), false
	})
}

// SetClock records the player position.
func (s *Service) SetClock(ctx context.Context, matchID string, t float64) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		return sess.SetCurrentTime(t), false
	})
}

// SetMarker completes a match-time slot manually.
func (s *Service) SetMarker(ctx context.Context, matchID string, slot model.Slot, t float64) (View, error) {
	return s.mutate(ctx, matchID, func(sess *session.Session) (bool, bool) {
		return sess.SetMatchTimeMarker(slot, t), false
	})
}

// Timeline returns the combined timeline of an open match.
func (s *Service) Timeline(_ context.Context, matchID string) ([]session.TimelineEntry, error) {
	var out []session.TimelineEntry
	err := s.read(matchID, func(ms *matchSession) { out = ms.sess.CombinedEvents() })
	return out, err
}

// Markers returns the period boundaries once every slot is complete.
func (s *Service) Markers(_ context.Context, matchID string) (model.MatchTimeMarkers, bool, error) {
	var (
		m  model.MatchTimeMarkers
		ok bool
	)
	err := s.read(matchID, func(ms *matchSession) { m, ok = ms.sess.MatchTimeMarkers() })
	return m, ok, err
}

// NextRequired returns the label of the next open marker slot.
func (s *Service) NextRequired(_ context.Context, matchID string) (string, bool, error) {
	var (
		label string
		ok    bool
	)
	err := s.read(matchID, func(ms *matchSession) { label, ok = ms.sess.NextRequiredMatchEvent() })
	return label, ok, err
}

// Flush queues the current history under a new revision.
func (s *Service) Flush(ctx context.Context, matchID string) (int64, error) {
	var rev int64
	err := s.read(matchID, func(ms *matchSession) {
		s.persist(ctx, matchID, ms)
		rev = ms.revision
	})
	return rev, err
}

// SeenAndRecord reserves an idempotency key. When the key was seen it
// returns the stored response and true.
func (s *Service) SeenAndRecord(ctx context.Context, key string) (dedupe.Response, bool) {
	if s.idempotency == nil {
		return dedupe.Response{}, false
	}
	resp, seen := s.idempotency.SeenAndRecord(ctx, key)
	if seen {
		metrics.RecordIdempotentReplay()
	}
	return resp, seen
}

// CompleteIdempotent stores the response for a reserved key.
func (s *Service) CompleteIdempotent(ctx context.Context, key string, resp dedupe.Response) {
	if s.idempotency == nil {
		return
	}
	s.idempotency.Complete(ctx, key, resp)
}

// Unrecord releases a reserved key so the request can be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	if s.idempotency == nil {
		return
	}
	s.idempotency.Unrecord(ctx, key)
}
