package components

import (
	"marketpulse/internal/handler"
	"marketpulse/internal/handler/api"
	"marketpulse/internal/handler/middleware"
	"marketpulse/internal/pkg/config"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAutomationHandler,
		NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)

func NewAuthMiddleware(cfg config.Config) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(cfg.Auth)
}
