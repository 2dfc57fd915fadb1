package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"mirror_bot/pkg/db"
)

// NewTxManager пул к мастеру + закрытие на OnStop.
// Вызывается только при state.backend=postgres.
func NewTxManager(ctx context.Context, lc fx.Lifecycle, dsn string) (*db.PgTxManager, error) {
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: dsn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	err = poolMaster.Ping(ctx)
	if err != nil {
		poolMaster.Close()
		return nil, err
	}

	tx := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tx.Close()
			return nil
		},
	})
	return tx, nil
}
