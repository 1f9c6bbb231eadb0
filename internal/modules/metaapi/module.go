package metaapi

import (
	"copier_bot/internal/modules/metaapi/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("metaapi",
		fx.Provide(
			service.NewClient,
		),
	)
}
