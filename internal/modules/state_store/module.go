package state_store

import (
	"context"

	"go.uber.org/fx"

	"mirror_bot/internal/modules/config"
	"mirror_bot/internal/modules/postgres"
	"mirror_bot/internal/modules/state_store/service"
	"mirror_bot/internal/reconciler"
	"mirror_bot/pkg/logger"
)

// Module поднимает хранилище состояния по state.backend.
func Module() fx.Option {
	return fx.Module("state_store",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (reconciler.StateStore, error) {
				if cfg.State.Backend == config.StateBackendPostgres {
					tx, err := postgres.NewTxManager(ctx, lc, cfg.DB)
					if err != nil {
						return nil, err
					}
					return service.NewPgStore(ctx, tx)
				}
				store, err := service.NewFileStore(cfg.State.File)
				if err != nil {
					return nil, err
				}
				logger.Info("[STATE] %s loaded, %d symbols", cfg.State.File, len(store.Symbols()))
				return store, nil
			},
		),
	)
}
