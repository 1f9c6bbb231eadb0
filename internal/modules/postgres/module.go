package postgres

import (
	"context"
	"fmt"

	"copier_bot/internal/modules/config"
	"copier_bot/pkg/db"
	"copier_bot/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				// пустой DSN — работаем без базы, профили живут в памяти
				if cfg.DB == "" {
					logger.Info("postgres: DSN not set, running in-memory")
					return (*db.PgTxManager)(nil), nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				return db.NewPgTxManager(poolMaster), nil
			},
		),
	)
}
