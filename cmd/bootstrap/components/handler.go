package components

import (
	"keyshop/internal/handler"
	"keyshop/internal/handler/api"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewCheckoutHandler,
		api.NewStockHandler,
		api.NewWebhookHandler,
	),
	fx.Invoke(handler.NewRouter),
)
