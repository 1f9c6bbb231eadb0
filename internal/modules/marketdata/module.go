package marketdata

import (
	"context"

	healthservice "copier_bot/internal/modules/health/service"
	"copier_bot/internal/modules/marketdata/service"

	"go.uber.org/fx"
)

// Module поднимает стример котировок торгового шлюза.
func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			func(state *healthservice.State) service.HealthSink { return state },
			service.NewStream,
		),
		fx.Invoke(func(lc fx.Lifecycle, s *service.Stream) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go s.Start(runCtx)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
