package runner

import (
	"context"
	"time"

	"go.uber.org/fx"

	"mirror_bot/internal/modules/config"
	"mirror_bot/internal/reconciler"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(
				cfg *config.Config,
				gw reconciler.ExchangeGateway,
				store reconciler.StateStore,
				sink reconciler.ActionSink,
			) *reconciler.Engine {
				return reconciler.NewEngine(cfg, gw, store, reconciler.StaticReserver(cfg.Reserved), sink, reconciler.Options{
					StartedAt: time.Now(),
				})
			},
			func(e *reconciler.Engine) Syncer { return e },
			func(gw reconciler.ExchangeGateway) LeverageSetter { return gw },
			New,
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go r.Run(ctx)
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-r.Done():
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
