package worker

import "go.uber.org/fx"

var Module = fx.Module("worker",
	fx.Provide(NewPaymentHandler),
	fx.Provide(NewNotificationHandler),
	fx.Provide(NewPool),
	fx.Invoke(func(*Pool) {}),
)
