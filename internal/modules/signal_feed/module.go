package signal_feed

import (
	"context"

	"go.uber.org/fx"

	"mirror_bot/internal/modules/config"
	"mirror_bot/internal/modules/signal_feed/service"
	"mirror_bot/internal/reconciler"
	"mirror_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("signal_feed",
		fx.Provide(
			service.NewClient,
			func(c *service.Client) reconciler.SignalSource { return c },
		),
		fx.Invoke(logDiagnostics),
	)
}

// logDiagnostics один раз при старте, если включён verbose_startup.
func logDiagnostics(lc fx.Lifecycle, cfg *config.Config, c *service.Client) {
	if !cfg.Log.VerboseStartup {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			probes, legacy := c.Diagnostics(ctx)
			for _, p := range probes {
				logger.Info("[FEED] probe %s → %d %s", p.URL, p.Status, p.Body)
			}
			if legacy != nil {
				logger.Info("[FEED] positions %s → %d %s", legacy.URL, legacy.Status, legacy.Body)
			} else {
				logger.Info("[FEED] positions_url empty, legacy endpoint skipped")
			}
			return nil
		},
	})
}
