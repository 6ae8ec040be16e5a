package model

// TeamInfo describes one side of the match.
type TeamInfo struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Score TeamScore `json:"score"`
}

// TeamScore is a Gaelic-games tally. Two-point scores add 2 to Points.
type TeamScore struct {
	Goals  int `json:"goals"`
	Points int `json:"points"`
}

// Total returns the score in points (a goal is worth 3).
func (s TeamScore) Total() int {
	return s.Goals*3 + s.Points
}

// Add returns s with outcome o applied.
func (s TeamScore) Add(o Outcome) TeamScore {
	if o == OutcomeGoal {
		s.Goals++
		return s
	}
	s.Points += o.Points()
	return s
}

// Score is the running score of both teams.
type Score struct {
	Red  TeamScore `json:"red"`
	Blue TeamScore `json:"blue"`
}

// For returns the tally of team t.
func (s Score) For(t Team) TeamScore {
	if t == TeamBlue {
		return s.Blue
	}
	if t == TeamRed {
		return s.Red
	}
	return TeamScore{}
}

// With returns a copy of s with team t's tally replaced.
func (s Score) With(t Team, ts TeamScore) Score {
	switch t {
	case TeamRed:
		s.Red = ts
	case TeamBlue:
		s.Blue = ts
	}
	return s
}

// Severity grades validation issues.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding surfaced to the user.
type Issue struct {
	Code       string   `json:"code"`
	Severity   Severity `json:"severity"`
	Field      string   `json:"field,omitempty"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// MatchState is the aggregate root of a tagging session.
type MatchState struct {
	Teams            map[Team]TeamInfo `json:"teams"`
	IsSecondHalf     bool              `json:"isSecondHalf"`
	CurrentTime      float64           `json:"currentTime"`
	Score            Score             `json:"currentScore"`
	Possession       Team              `json:"currentPossession"`
	History          []Event           `json:"tagHistory"`
	ActiveTag        *PartialEvent     `json:"activeTag"`
	Progress         MarkerProgress    `json:"matchTimeMarkersProgress"`
	ValidationErrors []Issue           `json:"validationErrors"`
	Warnings         []Issue           `json:"warnings"`
}

// HasActiveTag reports whether a tag is being built.
func (s *MatchState) HasActiveTag() bool {
	return s.ActiveTag != nil
}

// LastEvent returns the most recent committed event.
func (s *MatchState) LastEvent() (Event, bool) {
	if len(s.History) == 0 {
		return Event{}, false
	}
	return s.History[len(s.History)-1], true
}

// Clone returns a deep copy of s.
func (s *MatchState) Clone() MatchState {
	c := *s
	c.Teams = make(map[Team]TeamInfo, len(s.Teams))
	for k, v := range s.Teams {
		c.Teams[k] = v
	}
	c.History = CloneEvents(s.History)
	c.ActiveTag = s.ActiveTag.Clone()
	c.ValidationErrors = append([]Issue(nil), s.ValidationErrors...)
	c.Warnings = append([]Issue(nil), s.Warnings...)
	return c
}

// DefaultTeams returns placeholder team records for a fresh match.
func DefaultTeams() map[Team]TeamInfo {
	return map[Team]TeamInfo{
		TeamRed:  {ID: string(TeamRed), Name: "Team A", Color: "#d32f2f"},
		TeamBlue: {ID: string(TeamBlue), Name: "Team B", Color: "#1976d2"},
	}
}
