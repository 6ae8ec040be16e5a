package model

// Event is a committed tag on the match clock. Events are immutable once
// they enter a session history.
type Event struct {
	ID            string  `json:"id"`
	Time          float64 `json:"time"` // seconds on the match clock
	Team          Team    `json:"team"`
	Action        Action  `json:"action"`
	Outcome       Outcome `json:"outcome"`
	AutoGenerated bool    `json:"autoGenerated"`
	Validated     bool    `json:"validated"`
}

// PartialEvent is the in-progress Active Tag. Any field may be unset (nil).
// It doubles as the patch shape for UpdateActiveTag.
type PartialEvent struct {
	ID      string   `json:"id,omitempty"`
	Time    *float64 `json:"time,omitempty"`
	Team    *Team    `json:"team,omitempty"`
	Action  *Action  `json:"action,omitempty"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// CardInfo attaches a card to a foul saved in the same transaction.
type CardInfo struct {
	Card Action `json:"card"`
	// Team is the carded team. Unset means the opponent of the fouled team.
	Team *Team `json:"team,omitempty"`
}

// Ptr returns a pointer to v. Handy for building PartialEvent literals.
func Ptr[T any](v T) *T {
	return &v
}

// Merge shallow-merges every set field of patch into p. The ID is never
// overwritten.
func (p *PartialEvent) Merge(patch PartialEvent) {
	if patch.Time != nil {
		p.Time = Ptr(*patch.Time)
	}
	if patch.Team != nil {
		p.Team = Ptr(*patch.Team)
	}
	if patch.Action != nil {
		p.Action = Ptr(*patch.Action)
	}
	if patch.Outcome != nil {
		p.Outcome = Ptr(*patch.Outcome)
	}
}

// Clone returns a deep copy of p.
func (p *PartialEvent) Clone() *PartialEvent {
	if p == nil {
		return nil
	}
	c := &PartialEvent{ID: p.ID}
	c.Merge(*p)
	return c
}

// TimeOr returns the tag time, or def when unset.
func (p PartialEvent) TimeOr(def float64) float64 {
	if p.Time == nil {
		return def
	}
	return *p.Time
}

// TeamOr returns the tag team, or def when unset.
func (p PartialEvent) TeamOr(def Team) Team {
	if p.Team == nil {
		return def
	}
	return *p.Team
}

// ActionOr returns the tag action, or def when unset.
func (p PartialEvent) ActionOr(def Action) Action {
	if p.Action == nil {
		return def
	}
	return *p.Action
}

// OutcomeOr returns the tag outcome, or def when unset.
func (p PartialEvent) OutcomeOr(def Outcome) Outcome {
	if p.Outcome == nil {
		return def
	}
	return *p.Outcome
}

// Partial converts a committed event back to a PartialEvent with every field
// set.
func (e Event) Partial() PartialEvent {
	return PartialEvent{
		ID:      e.ID,
		Time:    Ptr(e.Time),
		Team:    Ptr(e.Team),
		Action:  Ptr(e.Action),
		Outcome: Ptr(e.Outcome),
	}
}

// CloneEvents copies events into a fresh slice.
func CloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}
	return append(make([]Event, 0, len(events)), events...)
}
