package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/pkg/logger"
)

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS match_event_lists (
		match_id TEXT PRIMARY KEY,
		revision BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS match_events (
		match_id TEXT NOT NULL REFERENCES match_event_lists(match_id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		event_id TEXT NOT NULL,
		time_seconds DOUBLE PRECISION NOT NULL,
		team VARCHAR(16) NOT NULL,
		action VARCHAR(32) NOT NULL,
		outcome VARCHAR(32) NOT NULL,
		auto_generated BOOLEAN NOT NULL DEFAULT FALSE,
		validated BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (match_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_match_events_event_id ON match_events(event_id)`,
}

// PostgresStore is an EventStore backed by PostgreSQL through lib/pq.
type PostgresStore struct {
	db      *sql.DB
	maxOpen int
	maxIdle int
	logger  logger.Logger
}

// NewPostgresStore opens and pings the database, then runs migrations.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{
		maxOpen: defaultMaxOpenConns,
		maxIdle: defaultMaxIdleConns,
		logger:  logger.Get().Named("postgres-store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpen)
	db.SetMaxIdleConns(s.maxIdle)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s.db = db

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info(ctx, "postgres event store ready")
	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Load(ctx context.Context, matchID string) ([]model.Event, int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx,
		`SELECT revision FROM match_event_lists WHERE match_id = $1`, matchID).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load revision: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, time_seconds, team, action, outcome, auto_generated, validated
		FROM match_events WHERE match_id = $1 ORDER BY seq`, matchID)
	if err != nil {
		return nil, 0, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var team, action, outcome string
		if err := rows.Scan(&e.ID, &e.Time, &team, &action, &outcome, &e.AutoGenerated, &e.Validated); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		e.Team, e.Action, e.Outcome = model.Team(team), model.Action(action), model.Outcome(outcome)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("load events: %w", err)
	}
	return events, revision, nil
}

// Save bumps the revision row and rewrites the events in one transaction.
// The events are streamed with COPY.
func (s *PostgresStore) Save(ctx context.Context, matchID string, revision int64, events []model.Event) (err error) {
	if matchID == "" {
		return ErrInvalidMatch
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO match_event_lists (match_id, revision, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (match_id) DO UPDATE
		SET revision = EXCLUDED.revision, updated_at = NOW()
		WHERE match_event_lists.revision < EXCLUDED.revision`, matchID, revision)
	if err != nil {
		return fmt.Errorf("upsert revision: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleRevision
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM match_events WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("match_events",
		"match_id", "seq", "event_id", "time_seconds", "team", "action", "outcome", "auto_generated", "validated"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	for i, e := range events {
		if _, err = stmt.ExecContext(ctx, matchID, i, e.ID, e.Time, string(e.Team), string(e.Action), string(e.Outcome), e.AutoGenerated, e.Validated); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy event %s: %w", e.ID, err)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_event_lists`).Scan(&n); err != nil {
		s.logger.Error(ctx, "count matches", logger.Error(err))
		return 0
	}
	return n
}
