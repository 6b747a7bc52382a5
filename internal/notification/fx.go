package notification

import (
	"github.com/kolamart/kolamart/internal/notification/email"
	"github.com/kolamart/kolamart/internal/notification/repository"
	"github.com/kolamart/kolamart/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	email.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
