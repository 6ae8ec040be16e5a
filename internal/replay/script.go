// Package replay drives a tagging session from a scripted or generated list
// of steps and summarises what the session committed.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Step kinds.
const (
	StepTag        = "tag"
	StepMarker     = "marker"
	StepHalf       = "half"
	StepPossession = "possession"
	StepClock      = "clock"
	StepDelete     = "delete"
)

var (
	ErrEmptyScript = errors.New("script has no steps")
	ErrBadStep     = errors.New("invalid step")
)

// Step is one operator action. Fields not used by the kind are ignored.
type Step struct {
	Kind    string  `json:"kind"`
	Time    float64 `json:"time"`
	Team    string  `json:"team,omitempty"`
	Action  string  `json:"action,omitempty"`
	Outcome string  `json:"outcome,omitempty"`

	// Card is saved with a foul tag.
	Card     string `json:"card,omitempty"`
	CardTeam string `json:"cardTeam,omitempty"`
	// Confirm accepts a possession error on save.
	Confirm bool `json:"confirm,omitempty"`

	// Slot names the marker slot of a marker step.
	Slot string `json:"slot,omitempty"`
	// Index is the history position removed by a delete step.
	Index int `json:"index,omitempty"`
}

// Team describes one side of the match.
type Team struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Script is a whole match to replay.
type Script struct {
	MatchID string          `json:"matchId"`
	Teams   map[string]Team `json:"teams,omitempty"`
	Steps   []Step          `json:"steps"`
}

// Decode reads a JSON script.
func Decode(r io.Reader) (Script, error) {
	var s Script
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	if len(s.Steps) == 0 {
		return Script{}, ErrEmptyScript
	}
	for i, st := range s.Steps {
		switch st.Kind {
		case StepTag, StepMarker, StepHalf, StepPossession, StepClock, StepDelete:
		default:
			return Script{}, fmt.Errorf("%w %d: unknown kind %q", ErrBadStep, i, st.Kind)
		}
	}
	return s, nil
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s Script) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
