// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Team is one of the two fixed team tokens. The tokens are arbitrary labels,
// not home/away.
type Team string

// Team tokens.
const (
	TeamNone Team = ""
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// PlaceholderTeam is stored on events that carry no team significance
// (whistle markers).
const PlaceholderTeam = TeamRed

// Teams lists the playing team tokens in display order.
var Teams = [...]Team{TeamRed, TeamBlue}

// Valid reports whether t is one of the two playing tokens.
func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Opponent returns the other team, or TeamNone for an unknown team.
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

func (t Team) String() string {
	if t == TeamNone {
		return "none"
	}
	return string(t)
}

// MarshalJSON encodes TeamNone as null.
func (t Team) MarshalJSON() ([]byte, error) {
	if t == TeamNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

// UnmarshalJSON decodes null as TeamNone.
func (t *Team) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = TeamNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = Team(s)
	return nil
}

// ParseTeam accepts "red", "blue" and the empty string / "none".
func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return TeamRed, nil
	case "blue":
		return TeamBlue, nil
	case "", "none", "null":
		return TeamNone, nil
	}
	return TeamNone, fmt.Errorf("%w: %q", ErrUnknownTeam, s)
}
