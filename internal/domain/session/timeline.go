package session

import (
	"sort"

	"github.com/okian/matchtag/internal/domain/model"
)

// TimelineEntry is one row of the combined timeline. Marker is the slot key
// when the entry backs a match-time milestone.
type TimelineEntry struct {
	model.Event
	Synthetic bool   `json:"synthetic,omitempty"`
	Marker    string `json:"marker,omitempty"`
}

// CombinedEvents returns the history plus a synthetic entry for each marker
// slot completed without a backing event, ordered by time.
func (s *Session) CombinedEvents() []TimelineEntry {
	bySlotEvent := make(map[string]string, len(model.Slots))
	out := make([]TimelineEntry, 0, len(s.state.History)+len(model.Slots))

	for _, slot := range model.Slots {
		st := s.state.Progress.Get(slot)
		if !st.Completed {
			continue
		}
		if st.EventID != "" {
			bySlotEvent[st.EventID] = slot.Key()
			continue
		}
		out = append(out, TimelineEntry{
			Event: model.Event{
				ID:            "marker-" + slot.Key(),
				Time:          st.Time,
				Team:          model.PlaceholderTeam,
				Action:        slotAction(slot),
				Outcome:       slotOutcome(slot),
				AutoGenerated: true,
				Validated:     true,
			},
			Synthetic: true,
			Marker:    slot.Key(),
		})
	}
	for _, e := range s.state.History {
		out = append(out, TimelineEntry{Event: e, Marker: bySlotEvent[e.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

func slotAction(slot model.Slot) model.Action {
	switch slot {
	case model.SlotHalfTimeWhistle:
		return model.ActionHalfTimeWhistle
	case model.SlotFullTimeWhistle:
		return model.ActionFullTimeWhistle
	default:
		return model.ActionThrowUp
	}
}

func slotOutcome(slot model.Slot) model.Outcome {
	o, _ := model.DefaultOutcome(slotAction(slot))
	return o
}
