package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS protocol_events (
	id          BIGSERIAL PRIMARY KEY,
	conn_id     TEXT        NOT NULL,
	received_at TIMESTAMPTZ NOT NULL,
	command     TEXT        NOT NULL,
	raw         TEXT        NOT NULL
)`

const createIndexSQL = `
CREATE INDEX IF NOT EXISTS protocol_events_conn_received_idx
	ON protocol_events (conn_id, received_at)`

const insertSQL = `
INSERT INTO protocol_events (conn_id, received_at, command, raw)
VALUES ($1, $2, $3, $4)`

// DB is the subset of *pgxpool.Pool the sink uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresSink writes entries to the protocol_events table.
type PostgresSink struct {
	db DB
}

// NewPostgresSink creates a sink on db.
func NewPostgresSink(db DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema creates the protocol_events table if it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create protocol_events: %w", err)
	}
	if _, err := s.db.Exec(ctx, createIndexSQL); err != nil {
		return fmt.Errorf("create protocol_events index: %w", err)
	}
	return nil
}

// Write inserts entries in a single batch round trip.
func (s *PostgresSink) Write(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertSQL, e.ConnID, e.ReceivedAt, e.Command, e.Raw)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
	}
	return nil
}
