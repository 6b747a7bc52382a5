package observability

import (
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/observability/logger"
	"github.com/kolamart/kolamart/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) logger.Config {
		return logger.Config{
			ServiceName: cfg.AppName,
			Environment: cfg.Environment,
			Version:     cfg.AppVersion,
			Level:       cfg.LogLevel,
			Format:      cfg.LogFormat,
		}
	}),
	fx.Provide(logger.New),
	fx.Provide(metrics.New),
)
