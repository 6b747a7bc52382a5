package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kolamart/kolamart/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	defaultMaxRetry  = 5
	defaultRetention = 24 * time.Hour
)

// Enqueuer is the narrow producer surface handlers depend on.
type Enqueuer interface {
	EnqueueVerifyPayment(ctx context.Context, provider, reference string, opts ...Option) error
	EnqueuePaymentEvent(ctx context.Context, payload PaymentEventPayload, opts ...Option) error
	EnqueueOrderStatusEmail(ctx context.Context, payload OrderStatusEmailPayload, opts ...Option) error
	EnqueuePaymentEmail(ctx context.Context, taskType string, payload PaymentEmailPayload, opts ...Option) error
	EnqueueAdminAlert(ctx context.Context, taskType string, payload AdminAlertPayload, opts ...Option) error
	EnqueueUserAlert(ctx context.Context, payload UserAlertPayload, opts ...Option) error
}

type Option func(*enqueueConfig)

type enqueueConfig struct {
	dedupKey string
}

// WithDedupKey overrides the computed semantic dedup key.
func WithDedupKey(key string) Option {
	return func(cfg *enqueueConfig) {
		cfg.dedupKey = key
	}
}

// Producer computes stable job identities from event semantics and enqueues.
// It holds no business logic.
type Producer struct {
	client  *asynq.Client
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewProducer(client *asynq.Client, log *zap.Logger, m *metrics.Metrics) *Producer {
	return &Producer{
		client:  client,
		log:     log.Named("queue.producer"),
		metrics: m,
	}
}

func (p *Producer) EnqueueVerifyPayment(ctx context.Context, provider, reference string, opts ...Option) error {
	payload := VerifyPaymentPayload{Provider: provider, Reference: reference}
	key := fmt.Sprintf("%s:verify:%s", provider, reference)
	return p.enqueue(ctx, TypeVerifyPayment, QueuePayments, payload, key, opts...)
}

func (p *Producer) EnqueuePaymentEvent(ctx context.Context, payload PaymentEventPayload, opts ...Option) error {
	key := fmt.Sprintf("%s:%s:%s", payload.Provider, payload.Reference, payload.EventType)
	return p.enqueue(ctx, TypePaymentEvent, QueuePayments, payload, key, opts...)
}

func (p *Producer) EnqueueOrderStatusEmail(ctx context.Context, payload OrderStatusEmailPayload, opts ...Option) error {
	key := fmt.Sprintf("email:orderstatus:%d:%s", payload.OrderID, payload.Status)
	return p.enqueue(ctx, TypeOrderStatusEmail, QueueEmail, payload, key, opts...)
}

func (p *Producer) EnqueuePaymentEmail(ctx context.Context, taskType string, payload PaymentEmailPayload, opts ...Option) error {
	switch taskType {
	case TypePaymentSuccessEmail, TypePaymentFailedEmail, TypePaymentRefundedEmail:
	default:
		return fmt.Errorf("queue: %q is not a payment email task", taskType)
	}
	key := fmt.Sprintf("%s:%d", taskType, payload.OrderID)
	return p.enqueue(ctx, taskType, QueueEmail, payload, key, opts...)
}

func (p *Producer) EnqueueAdminAlert(ctx context.Context, taskType string, payload AdminAlertPayload, opts ...Option) error {
	switch taskType {
	case TypeAdminNewOrder, TypeAdminPaymentReceived, TypeAdminPaymentFailed, TypeAdminLowStock:
	default:
		return fmt.Errorf("queue: %q is not an admin alert task", taskType)
	}
	key := fmt.Sprintf("%s:%d:%s", taskType, payload.OrderID, payload.Reference)
	return p.enqueue(ctx, taskType, QueueAdmin, payload, key, opts...)
}

func (p *Producer) EnqueueUserAlert(ctx context.Context, payload UserAlertPayload, opts ...Option) error {
	key := fmt.Sprintf("user:orderstatus:%d:%s", payload.OrderID, payload.Status)
	return p.enqueue(ctx, TypeUserOrderStatus, QueueUser, payload, key, opts...)
}

func (p *Producer) enqueue(ctx context.Context, taskType, queue string, payload any, dedupKey string, opts ...Option) error {
	cfg := enqueueConfig{dedupKey: dedupKey}
	for _, opt := range opts {
		opt(&cfg)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskType, raw)
	_, err = p.client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.TaskID(TaskID(cfg.dedupKey)),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Retention(defaultRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// Same logical event already queued; redelivery collapses here.
		p.log.Debug("duplicate enqueue collapsed",
			zap.String("type", taskType),
			zap.String("dedup_key", cfg.dedupKey),
		)
		return nil
	}
	if err != nil {
		return err
	}

	p.metrics.RecordEnqueue(taskType)
	return nil
}
