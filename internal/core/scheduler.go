package core

// scheduler.go runs background maintenance.
//
// The session sweeper drops sessions that have been idle longer than the
// store's TTL. Dropped sessions take their uploaded tables with them; there
// is nothing to persist or archive.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when StartSessionSweeper gets a non-positive
// interval.
const DefaultSweepInterval = time.Minute

// StartSessionSweeper removes expired sessions every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started", "interval", interval.String())

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

// sweepSessions performs one sweep.
func (s *Service) sweepSessions() int {
	start := time.Now()
	removed := s.sessions.Sweep()
	s.metrics.observeSweep(removed)

	if removed > 0 {
		slog.Info("expired sessions removed",
			"removed", removed,
			"remaining", s.sessions.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		slog.Debug("session sweep found nothing to remove")
	}
	return removed
}
