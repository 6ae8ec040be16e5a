// Package markers tracks the four match-time milestones (first-half
// throw-up, half-time whistle, second-half throw-up, full-time whistle).
//
// Slots complete strictly in order and never change once completed. An
// event that matches a later slot while an earlier one is still open is
// ignored for progress purposes.
package markers

import "github.com/okian/matchtag/internal/domain/model"

// Progress is an alias kept short for callers.
type Progress = model.MarkerProgress

// Advance returns p updated with committed event e.
func Advance(p Progress, e model.Event) Progress {
	slot, ok := Next(p)
	if !ok || !matches(slot, e.Action) {
		return p
	}
	return p.With(slot, model.SlotState{Completed: true, Time: e.Time, EventID: e.ID})
}

// AdvanceAll folds events into p in order.
func AdvanceAll(p Progress, events []model.Event) Progress {
	for _, e := range events {
		p = Advance(p, e)
	}
	return p
}

// Complete marks slot s done at time t without a backing event. It only
// succeeds when s is the next open slot.
func Complete(p Progress, s model.Slot, t float64) (Progress, bool) {
	next, ok := Next(p)
	if !ok || next != s || t < 0 {
		return p, false
	}
	return p.With(s, model.SlotState{Completed: true, Time: t}), true
}

// Next returns the first incomplete slot, or false when all are done.
func Next(p Progress) (model.Slot, bool) {
	for _, s := range model.Slots {
		if !p.Get(s).Completed {
			return s, true
		}
	}
	return 0, false
}

// Done reports whether every slot is complete.
func Done(p Progress) bool {
	_, open := Next(p)
	return !open
}

// Markers derives the period boundaries once every slot is complete.
func Markers(p Progress) (model.MatchTimeMarkers, bool) {
	if !Done(p) {
		return model.MatchTimeMarkers{}, false
	}
	return model.MatchTimeMarkers{
		FirstHalfStart:  p.FirstHalfThrowUp.Time,
		HalfTime:        p.HalfTimeWhistle.Time,
		SecondHalfStart: p.SecondHalfThrowUp.Time,
		FullTime:        p.FullTimeWhistle.Time,
	}, true
}

func matches(s model.Slot, a model.Action) bool {
	switch s {
	case model.SlotFirstHalfThrowUp, model.SlotSecondHalfThrowUp:
		return a == model.ActionThrowUp
	case model.SlotHalfTimeWhistle:
		return a == model.ActionHalfTimeWhistle
	case model.SlotFullTimeWhistle:
		return a == model.ActionFullTimeWhistle
	}
	return false
}
