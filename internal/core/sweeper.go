package core

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often expired sessions are dropped.
const DefaultSweepInterval = time.Minute

// StartSessionSweeper drops expired sessions every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started",
		"interval", interval.String(),
		"ttl", s.store.TTL().String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweepSessions()
		}
	}
}

// sweepSessions performs one expiry cycle.
func (s *Service) sweepSessions() int {
	start := time.Now()
	removed := s.store.Sweep()
	active := s.store.Len()
	s.observer.SessionsActive(active)

	if removed > 0 {
		slog.Info("expired sessions removed",
			"removed", removed,
			"active", active,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return removed
}
