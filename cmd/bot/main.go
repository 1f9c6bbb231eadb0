package main

import (
	"context"
	"log"

	"copier_bot/internal/copier"
	"copier_bot/internal/modules/config"
	"copier_bot/internal/modules/health"
	"copier_bot/internal/modules/marketdata"
	"copier_bot/internal/modules/metaapi"
	"copier_bot/internal/modules/postgres"
	telegram "copier_bot/internal/modules/telegram_bot"
	"copier_bot/internal/profile"
	"copier_bot/pkg/logger"
	"copier_bot/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "copier_bot"

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		profile.Module(),
		metaapi.Module(),
		marketdata.Module(),
		copier.Module(),
		telegram.Module(),
		health.Module(),

		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if cfg.Jaeger.Host == "" {
				return nil
			}
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
	)

	app.Run()
}
