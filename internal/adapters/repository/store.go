// Package repository persists match event lists.
package repository

import (
	"context"

	"github.com/okian/matchtag/internal/domain/model"
)

// EventStore loads and saves the committed event list of a match.
//
// Every save carries a revision. Stores keep the highest revision they have
// seen per match and refuse older ones with ErrStaleRevision, so saves that
// complete out of order never roll a match back.
type EventStore interface {
	// Load returns the stored events and their revision.
	// Returns ErrNotFound if the match was never saved.
	Load(ctx context.Context, matchID string) ([]model.Event, int64, error)

	// Save replaces the event list of matchID.
	Save(ctx context.Context, matchID string, revision int64, events []model.Event) error

	// Count returns the number of matches stored.
	Count(ctx context.Context) int
}
