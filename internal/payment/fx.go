package payment

import (
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/payment/providers"
	"github.com/kolamart/kolamart/internal/payment/providers/paystack"
	"github.com/kolamart/kolamart/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(func(cfg config.Config) *paystack.Provider {
		return paystack.New(paystack.Config{
			SecretKey: cfg.PaystackSecretKey,
			BaseURL:   cfg.PaystackBaseURL,
		})
	}),
	fx.Provide(func(ps *paystack.Provider) *providers.Registry {
		return providers.NewRegistry(ps)
	}),
	fx.Provide(service.NewService),
)
