package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx used by the recorder.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS conversion_events (
	id          UUID PRIMARY KEY,
	action      TEXT NOT NULL,
	severity    TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	file_name   TEXT NOT NULL,
	format      TEXT,
	detail      TEXT,
	row_count   INTEGER,
	col_count   INTEGER,
	byte_count  BIGINT,
	error       TEXT,
	ip_address  TEXT,
	user_agent  TEXT,
	created_at  TIMESTAMPTZ NOT NULL
)`

const insertEvent = `
INSERT INTO conversion_events (
	id, action, severity, session_id, file_name, format, detail,
	row_count, col_count, byte_count, error, ip_address, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// PgRecorder stores events in the conversion_events table.
type PgRecorder struct {
	db DBTX
}

// NewPgRecorder returns a recorder writing through db.
func NewPgRecorder(db DBTX) *PgRecorder {
	return &PgRecorder{db: db}
}

// EnsureSchema creates the events table if it does not exist.
func (r *PgRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create conversion_events: %w", err)
	}
	return nil
}

// Record implements Recorder.
func (r *PgRecorder) Record(ctx context.Context, e Event) error {
	_, err := r.db.Exec(ctx, insertEvent,
		pgtype.UUID{Bytes: e.ID, Valid: true},
		string(e.Action),
		string(e.Severity),
		e.SessionID,
		e.FileName,
		toPgText(e.Format),
		toPgText(e.Detail),
		toPgInt4(e.Rows),
		toPgInt4(e.Columns),
		pgtype.Int8{Int64: e.Bytes, Valid: e.Bytes > 0},
		toPgText(e.Error),
		toPgText(e.IPAddress),
		toPgText(e.UserAgent),
		pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Connect opens a pool for the audit database and applies pool limits.
func Connect(ctx context.Context, url string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse audit database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return pool, nil
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toPgInt4(i int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(i), Valid: i > 0}
}
