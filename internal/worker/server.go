package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/idempotency"
	"github.com/kolamart/kolamart/internal/queue"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxRetryDelay = 10 * time.Minute

// retryDelay backs off exponentially from one second. Lock contention gets a
// short flat delay instead; the holder usually finishes within seconds.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	if errors.Is(err, idempotency.ErrLockHeld) {
		return 5 * time.Second
	}
	delay := time.Second << uint(n)
	if delay > maxRetryDelay || delay <= 0 {
		return maxRetryDelay
	}
	return delay
}

// Pool runs one asynq server per queue so a burst of email work can never
// starve payment reconciliation of workers.
type Pool struct {
	servers []*asynq.Server
	muxes   []*asynq.ServeMux
	log     *zap.Logger
}

func NewPool(
	lc fx.Lifecycle,
	opt asynq.RedisClientOpt,
	cfg config.Config,
	payments *PaymentHandler,
	notifications *NotificationHandler,
	log *zap.Logger,
) *Pool {
	pool := &Pool{log: log.Named("worker.pool")}

	paymentMux := asynq.NewServeMux()
	paymentMux.HandleFunc(queue.TypeVerifyPayment, payments.HandleVerifyPayment)
	paymentMux.HandleFunc(queue.TypePaymentEvent, payments.HandlePaymentEvent)
	pool.add(opt, queue.QueuePayments, cfg.PaymentConcurrency, paymentMux, log)

	emailMux := asynq.NewServeMux()
	emailMux.HandleFunc(queue.TypeOrderStatusEmail, notifications.HandleOrderStatusEmail)
	emailMux.HandleFunc(queue.TypePaymentSuccessEmail, notifications.HandlePaymentEmail)
	emailMux.HandleFunc(queue.TypePaymentFailedEmail, notifications.HandlePaymentEmail)
	emailMux.HandleFunc(queue.TypePaymentRefundedEmail, notifications.HandlePaymentEmail)
	pool.add(opt, queue.QueueEmail, cfg.EmailConcurrency, emailMux, log)

	adminMux := asynq.NewServeMux()
	adminMux.HandleFunc(queue.TypeAdminNewOrder, notifications.HandleAdminAlert)
	adminMux.HandleFunc(queue.TypeAdminPaymentReceived, notifications.HandleAdminAlert)
	adminMux.HandleFunc(queue.TypeAdminPaymentFailed, notifications.HandleAdminAlert)
	adminMux.HandleFunc(queue.TypeAdminLowStock, notifications.HandleAdminAlert)
	pool.add(opt, queue.QueueAdmin, cfg.AdminConcurrency, adminMux, log)

	userMux := asynq.NewServeMux()
	userMux.HandleFunc(queue.TypeUserOrderStatus, notifications.HandleUserAlert)
	pool.add(opt, queue.QueueUser, cfg.UserConcurrency, userMux, log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return pool.start()
		},
		OnStop: func(ctx context.Context) error {
			pool.shutdown()
			return nil
		},
	})
	return pool
}

func (p *Pool) add(opt asynq.RedisClientOpt, queueName string, concurrency int, mux *asynq.ServeMux, log *zap.Logger) {
	if concurrency <= 0 {
		concurrency = 10
	}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{queueName: 1},
		RetryDelayFunc: retryDelay,
		Logger:         &asynqLogger{log: log.Named("asynq." + queueName)},
	})
	p.servers = append(p.servers, server)
	p.muxes = append(p.muxes, mux)
}

func (p *Pool) start() error {
	for i, server := range p.servers {
		if err := server.Start(p.muxes[i]); err != nil {
			return err
		}
	}
	p.log.Info("worker pool started", zap.Int("servers", len(p.servers)))
	return nil
}

func (p *Pool) shutdown() {
	for _, server := range p.servers {
		server.Shutdown()
	}
	p.log.Info("worker pool stopped")
}

type asynqLogger struct {
	log *zap.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Sugar().Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Sugar().Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Sugar().Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Sugar().Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Sugar().Fatal(args...) }
