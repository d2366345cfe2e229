package bootstrap

import (
	"marketpulse/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DBModule,
	RedisModule,
	components.RepositoryModule,
	components.AutomationModule,
	components.HandlerModule,
)
