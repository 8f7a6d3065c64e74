package components

import (
	"context"

	"keyshop/internal/pkg/config"
	"keyshop/internal/usecase/commands"
	"keyshop/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewExpirySweeper,
	),
	fx.Invoke(StartExpirySweeper),
)

func NewExpirySweeper(reservations commands.ReservationCommands, cfg config.ReservationConfig) *worker.ExpirySweeper {
	return worker.NewExpirySweeper(reservations, cfg.SweepInterval)
}

func StartExpirySweeper(lc fx.Lifecycle, sweeper *worker.ExpirySweeper) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				sweeper.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
