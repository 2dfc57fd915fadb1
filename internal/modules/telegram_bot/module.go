package telegram

import (
	"context"

	"go.uber.org/fx"

	health "mirror_bot/internal/modules/health/service"
	"mirror_bot/internal/modules/telegram_bot/service"
	"mirror_bot/internal/reconciler"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// 1. Telegram как *service.Telegram (nil, если не настроен)
		fx.Provide(
			func(gw reconciler.ExchangeGateway) service.PositionReader { return gw },
			func(state *health.State) service.StatusReader { return state },
			service.NewTelegram,
		),
		// 2. Запуск отправки и команд через Lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						t.Start(context.Background())
						return nil
					},
					OnStop: func(ctx context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
