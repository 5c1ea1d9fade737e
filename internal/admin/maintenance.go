// Package admin provides maintenance operations for the audit database.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/audit"
)

// Timeout is the maximum duration for a maintenance operation.
const Timeout = 30 * time.Second

const (
	pruneEvents = `DELETE FROM conversion_events WHERE created_at < $1`
	resetEvents = `TRUNCATE conversion_events`
)

// Maintenance runs destructive operations against the audit table.
type Maintenance struct {
	DB  audit.DBTX
	Now func() time.Time
}

// NewMaintenance returns a Maintenance writing through db.
func NewMaintenance(db audit.DBTX) *Maintenance {
	return &Maintenance{DB: db, Now: time.Now}
}

// Prune deletes events older than maxAge and returns how many were removed.
func (m *Maintenance) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.New("max age must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	cutoff := m.Now().UTC().Add(-maxAge)
	tag, err := m.DB.Exec(ctx, pruneEvents, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune conversion_events: %w", err)
	}
	slog.Info("audit events pruned", "removed", tag.RowsAffected(), "before", cutoff)
	return tag.RowsAffected(), nil
}

// Reset removes every audit event.
// This is a destructive operation - use with caution.
func (m *Maintenance) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	if _, err := m.DB.Exec(ctx, resetEvents); err != nil {
		return fmt.Errorf("reset conversion_events: %w", err)
	}
	slog.Warn("audit events reset")
	return nil
}
