package bybit_client

import (
	"go.uber.org/fx"

	"mirror_bot/internal/modules/bybit_client/service"
	"mirror_bot/internal/reconciler"
)

func Module() fx.Option {
	return fx.Module("bybit_client",
		fx.Provide(
			service.NewClient,
			func(c *service.Client) reconciler.ExchangeGateway { return c },
		),
	)
}
