package copier

import (
	"context"
	"time"

	"copier_bot/internal/modules/config"
	marketdata "copier_bot/internal/modules/marketdata/service"
	metaapi "copier_bot/internal/modules/metaapi/service"
	"copier_bot/internal/profile"
	"copier_bot/internal/registry"
	"copier_bot/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("copier",
		fx.Provide(
			func() *registry.Store { return registry.New(nil) },

			// адаптеры под интерфейсы ядра
			func(c *metaapi.Client) TradingAPI { return c },
			func(s *marketdata.Stream) PriceSource { return s },
			func(p *profile.Store) ProfileSource { return p },
			func(p *profile.Store) ActiveChecker { return p },

			NewSupervisor,
			NewEngine,
			NewDispatcher,
			NewRouter,
		),

		// сессии для профилей, загруженных из базы
		fx.Invoke(func(lc fx.Lifecycle, r *Router, p *profile.Store) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					for _, sub := range p.All() {
						if sub.Active {
							r.EnableSubscriber(sub)
						}
					}
					return nil
				},
			})
		}),

		// гигиена: реестр сигналов и протухшие профили
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, reg *registry.Store, p *profile.Store, r *Router) {
			cleanupCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go cleanupLoop(cleanupCtx, cfg, reg, p, r)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					cancel()
					return nil
				},
			})
		}),

		fx.Invoke(func(lc fx.Lifecycle, s *Supervisor) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					s.Stop()
					return nil
				},
			})
		}),
	)
}

func cleanupLoop(ctx context.Context, cfg *config.Config, reg *registry.Store, p *profile.Store, r *Router) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n := reg.EvictOlderThan(cfg.PendingRetention); n > 0 {
			logger.Info("cleanup: evicted %d stale pending signals", n)
		}

		dropped := p.EvictInactive(ctx, cfg.SubscriberTTL)
		for _, id := range dropped {
			r.DisableSubscriber(id)
			reg.DropSubscriber(id)
		}
		if len(dropped) > 0 {
			logger.Info("cleanup: evicted %d inactive subscribers", len(dropped))
		}
	}
}
