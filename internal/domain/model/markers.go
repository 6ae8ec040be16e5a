package model

import (
	"fmt"
	"strings"
)

// Slot names one of the four match-time milestones.
type Slot int

// Milestones in the order they must complete.
const (
	SlotFirstHalfThrowUp Slot = iota
	SlotHalfTimeWhistle
	SlotSecondHalfThrowUp
	SlotFullTimeWhistle

	slotCount = 4
)

// Slots lists every slot in completion order.
var Slots = [slotCount]Slot{
	SlotFirstHalfThrowUp, SlotHalfTimeWhistle, SlotSecondHalfThrowUp, SlotFullTimeWhistle,
}

var slotKeys = [slotCount]string{"firstHalfThrowUp", "halfTimeWhistle", "secondHalfThrowUp", "fullTimeWhistle"}

var slotLabels = [slotCount]string{"First Half Throw-up", "Half Time Whistle", "Second Half Throw-up", "Full Time Whistle"}

// Key is the camelCase name used in JSON and URLs.
func (s Slot) Key() string {
	if s < 0 || s >= slotCount {
		return ""
	}
	return slotKeys[s]
}

// Label is the human-readable prompt for guided tagging.
func (s Slot) Label() string {
	if s < 0 || s >= slotCount {
		return ""
	}
	return slotLabels[s]
}

func (s Slot) String() string { return s.Key() }

// ParseSlot accepts a slot key (case-insensitive).
func ParseSlot(s string) (Slot, error) {
	for _, slot := range Slots {
		if strings.EqualFold(slot.Key(), strings.TrimSpace(s)) {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, s)
}

// SlotState is the completion record of one milestone. EventID is empty when
// the slot was completed manually.
type SlotState struct {
	Completed bool    `json:"completed"`
	Time      float64 `json:"time,omitempty"`
	EventID   string  `json:"eventId,omitempty"`
}

// MarkerProgress holds the four milestone slots.
type MarkerProgress struct {
	FirstHalfThrowUp  SlotState `json:"firstHalfThrowUp"`
	HalfTimeWhistle   SlotState `json:"halfTimeWhistle"`
	SecondHalfThrowUp SlotState `json:"secondHalfThrowUp"`
	FullTimeWhistle   SlotState `json:"fullTimeWhistle"`
}

// Get returns the state of slot s.
func (p MarkerProgress) Get(s Slot) SlotState {
	switch s {
	case SlotFirstHalfThrowUp:
		return p.FirstHalfThrowUp
	case SlotHalfTimeWhistle:
		return p.HalfTimeWhistle
	case SlotSecondHalfThrowUp:
		return p.SecondHalfThrowUp
	case SlotFullTimeWhistle:
		return p.FullTimeWhistle
	}
	return SlotState{}
}

// With returns a copy of p with slot s replaced.
func (p MarkerProgress) With(s Slot, st SlotState) MarkerProgress {
	switch s {
	case SlotFirstHalfThrowUp:
		p.FirstHalfThrowUp = st
	case SlotHalfTimeWhistle:
		p.HalfTimeWhistle = st
	case SlotSecondHalfThrowUp:
		p.SecondHalfThrowUp = st
	case SlotFullTimeWhistle:
		p.FullTimeWhistle = st
	}
	return p
}

// MatchTimeMarkers bounds the two playing periods. Available only once every
// slot is complete.
type MatchTimeMarkers struct {
	FirstHalfStart  float64 `json:"firstHalfStart"`
	HalfTime        float64 `json:"halfTime"`
	SecondHalfStart float64 `json:"secondHalfStart"`
	FullTime        float64 `json:"fullTime"`
}
