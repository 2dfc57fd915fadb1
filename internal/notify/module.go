package notify

import (
	"go.uber.org/fx"

	telegram "mirror_bot/internal/modules/telegram_bot/service"
	"mirror_bot/internal/reconciler"
)

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			// *Telegram может быть nil: Send на nil-получателе ничего не делает
			func(tg *telegram.Telegram) reconciler.ActionSink {
				return NewActionNotifier(tg)
			},
		),
	)
}
