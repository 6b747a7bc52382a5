package idempotency

import (
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/kv"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("idempotency",
	fx.Provide(func(store kv.Store, cfg config.Config, log *zap.Logger) *Store {
		return NewStore(store, cfg.LockTTL, cfg.ProcessedTTL, log)
	}),
)
