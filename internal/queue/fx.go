package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/kolamart/kolamart/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("queue",
	fx.Provide(RedisOpt),
	fx.Provide(NewClient),
	fx.Provide(NewProducer),
	fx.Provide(func(p *Producer) Enqueuer { return p }),
)

func RedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

func NewClient(lc fx.Lifecycle, opt asynq.RedisClientOpt) *asynq.Client {
	client := asynq.NewClient(opt)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})
	return client
}
