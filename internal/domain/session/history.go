package session

import (
	"sort"

	"github.com/okian/matchtag/internal/domain/markers"
	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/internal/domain/tracker"
)

// DeleteEvent removes the event with the given id and replays derived state.
func (s *Session) DeleteEvent(id string) bool {
	for i, e := range s.state.History {
		if e.ID != id {
			continue
		}
		s.state.History = append(s.state.History[:i:i], s.state.History[i+1:]...)
		s.replay()
		return true
	}
	return false
}

// DeleteAllEvents clears the history and returns how many events it held.
// Manually completed markers survive.
func (s *Session) DeleteAllEvents() int {
	n := len(s.state.History)
	s.state.History = nil
	s.replay()
	return n
}

// Load seeds the session from persisted events, ordered by time, and
// replays possession, score and marker progress. Any Active Tag and manual
// markers are dropped.
func (s *Session) Load(events []model.Event) {
	history := model.CloneEvents(events)
	sort.SliceStable(history, func(i, j int) bool { return history[i].Time < history[j].Time })
	for i := range history {
		if history[i].ID == "" {
			history[i].ID = s.newID()
		}
	}
	s.state.History = history
	s.state.ActiveTag = nil
	s.manual = make(map[model.Slot]float64)
	s.clearIssues()
	s.replay()
}

// replay recomputes every derived field from the history. Manual possession
// overrides do not survive it.
func (s *Session) replay() {
	s.setDerived(tracker.Replay(s.state.History))
	s.state.Progress = s.replayProgress()
}

// replayProgress folds the history into marker progress, slotting manual
// completions in at their recorded time.
func (s *Session) replayProgress() model.MarkerProgress {
	var p model.MarkerProgress
	applyManual := func(until float64, bounded bool) {
		for {
			next, ok := markers.Next(p)
			if !ok {
				return
			}
			t, manual := s.manual[next]
			if !manual || (bounded && t > until) {
				return
			}
			p, _ = markers.Complete(p, next, t)
		}
	}
	for _, e := range s.state.History {
		applyManual(e.Time, true)
		p = markers.Advance(p, e)
	}
	applyManual(0, false)
	return p
}
