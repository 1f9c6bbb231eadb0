package telegram

import (
	"context"

	"copier_bot/internal/copier"
	"copier_bot/internal/modules/telegram_bot/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewTelegram,

			// адаптер: *service.Telegram -> нотификатор ядра
			func(t *service.Telegram) copier.TelegramNotifier {
				return t
			},
		),

		// роутер привязываем после сборки графа, конструкторы в цикл
		// не заворачиваем
		fx.Invoke(func(t *service.Telegram, r *copier.Router) {
			t.BindCopier(r)
		}),

		fx.Invoke(func(lc fx.Lifecycle, t *service.Telegram) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := t.Probe(ctx); err != nil {
						return err
					}
					go t.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					t.Stop()
					return nil
				},
			})
		}),
	)
}
