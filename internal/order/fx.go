package order

import (
	"github.com/kolamart/kolamart/internal/order/repository"
	"github.com/kolamart/kolamart/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
