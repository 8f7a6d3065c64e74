package worker

import (
	"context"
	"log/slog"
	"time"

	"keyshop/internal/usecase/commands"
)

// ExpirySweeper periodically releases reservations whose hold deadline has
// passed, returning their stock to the pool. It is the only caller of
// ReleaseExpiredReservations in the running system.
type ExpirySweeper struct {
	reservations commands.ReservationCommands
	interval     time.Duration
}

func NewExpirySweeper(reservations commands.ReservationCommands, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		reservations: reservations,
		interval:     interval,
	}
}

// Run blocks until ctx is canceled. Sweep errors are logged and the loop
// continues; a transiently failing sweep just means the next tick retries.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("expiry sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *ExpirySweeper) SweepOnce(ctx context.Context) {
	released, err := s.reservations.ReleaseExpiredReservations(ctx)
	if err != nil {
		slog.Error("expiry sweep failed", "error", err.Error())
		return
	}
	if released > 0 {
		slog.Info("expired reservations released", "count", released)
	}
}
