package main

import (
	"context"

	"go.uber.org/fx"

	"mirror_bot/internal/modules/bybit_client"
	"mirror_bot/internal/modules/config"
	"mirror_bot/internal/modules/health"
	"mirror_bot/internal/modules/signal_feed"
	"mirror_bot/internal/modules/state_store"
	telegram "mirror_bot/internal/modules/telegram_bot"
	"mirror_bot/internal/notify"
	"mirror_bot/internal/runner"
	"mirror_bot/pkg/logger"
	"mirror_bot/pkg/tracing"
)

const serviceName = "mirror_bot"

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Module("observability", fx.Invoke(initObservability)),
		health.Module(),
		state_store.Module(),
		signal_feed.Module(),
		bybit_client.Module(),
		telegram.Module(),
		notify.Module(),
		runner.Module(),
	)
	// SIGINT/SIGTERM → OnStop: runner дожидается конца текущего цикла
	app.Run()
}

// initObservability логгер и трейсер до остальных модулей.
func initObservability(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	closeLog, err := logger.Init(logger.Config{
		ConsoleLevel: cfg.Log.ConsoleLevel,
		File:         cfg.Log.File,
	})
	if err != nil {
		return err
	}
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		closeLog()
		return err
	}

	logger.Info("🚀 %s started, exchange %s (%s)", serviceName, cfg.Exchange.BaseURL, cfg.Exchange.Category)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("👋 bye")
			closeTracer()
			closeLog()
			return nil
		},
	})
	return nil
}
