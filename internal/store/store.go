// Package store persists valuation runs in Postgres. Persistence is
// optional: an empty database URL yields a nil *Store, and every method is
// nil-safe, returning ErrDisabled.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrDisabled is returned when no database is configured.
var ErrDisabled = errors.New("store: persistence disabled")

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS valuation_runs (
	id         UUID PRIMARY KEY,
	ticker     TEXT NOT NULL,
	mode       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS valuation_runs_ticker_idx
	ON valuation_runs (ticker, created_at DESC);
`

// ValuationRun is one persisted valuation result. Payload carries the full
// JSON of the run (scenario set, reverse result or sensitivity grid,
// depending on Mode).
type ValuationRun struct {
	ID        uuid.UUID       `json:"id"`
	Ticker    string          `json:"ticker"`
	Mode      string          `json:"mode"` // "dcf", "reverse", "sensitivity"
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open connects to Postgres and ensures the schema exists. An empty URL
// returns (nil, nil): persistence is simply off.
func Open(ctx context.Context, url string, log *zap.Logger) (*Store, error) {
	if url == "" {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}

	log.Info("valuation store ready")
	return &Store{pool: pool, log: log}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Enabled reports whether persistence is active.
func (s *Store) Enabled() bool {
	return s != nil && s.pool != nil
}

// SaveRun stores a valuation result. The payload is marshaled to JSON.
func (s *Store) SaveRun(ctx context.Context, ticker, mode string, payload any) (*ValuationRun, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("store: marshal payload: %w", err)
	}

	run := &ValuationRun{
		ID:        uuid.New(),
		Ticker:    ticker,
		Mode:      mode,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO valuation_runs (id, ticker, mode, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Ticker, run.Mode, run.Payload, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: save run: %w", err)
	}

	s.log.Debug("valuation run saved",
		zap.String("ticker", ticker),
		zap.String("mode", mode),
		zap.String("id", run.ID.String()))
	return run, nil
}

// History returns the most recent runs for a ticker, newest first.
func (s *Store) History(ctx context.Context, ticker string, limit int) ([]ValuationRun, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, ticker, mode, payload, created_at
		 FROM valuation_runs
		 WHERE ticker = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var runs []ValuationRun
	for rows.Next() {
		var run ValuationRun
		if err := rows.Scan(&run.ID, &run.Ticker, &run.Mode, &run.Payload, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: history rows: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run for a ticker and mode.
func (s *Store) Latest(ctx context.Context, ticker, mode string) (*ValuationRun, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	var run ValuationRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, ticker, mode, payload, created_at
		 FROM valuation_runs
		 WHERE ticker = $1 AND mode = $2
		 ORDER BY created_at DESC
		 LIMIT 1`, ticker, mode).
		Scan(&run.ID, &run.Ticker, &run.Mode, &run.Payload, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest: %w", err)
	}
	return &run, nil
}
