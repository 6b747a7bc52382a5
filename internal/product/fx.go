package product

import (
	"github.com/kolamart/kolamart/internal/product/repository"
	"github.com/kolamart/kolamart/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
