package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/kolamart/kolamart/internal/idempotency"
	notificationdomain "github.com/kolamart/kolamart/internal/notification/domain"
	"github.com/kolamart/kolamart/internal/observability/metrics"
	paymentdomain "github.com/kolamart/kolamart/internal/payment/domain"
	"github.com/kolamart/kolamart/internal/queue"
	"go.uber.org/zap"
)

// PaymentHandler consumes the payments queue. Every task runs under the
// two-phase idempotency protocol keyed by the event's semantic identity, so
// queue-level redelivery and cross-worker races both collapse to one
// execution.
type PaymentHandler struct {
	payments paymentdomain.Service
	idem     *idempotency.Store
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewPaymentHandler(payments paymentdomain.Service, idem *idempotency.Store, m *metrics.Metrics, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		idem:     idem,
		metrics:  m,
		log:      log.Named("worker.payment"),
	}
}

func (h *PaymentHandler) HandleVerifyPayment(ctx context.Context, task *asynq.Task) error {
	var payload queue.VerifyPaymentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed verify payload: %w: %w", err, asynq.SkipRetry)
	}
	key := fmt.Sprintf("%s:verify:%s", payload.Provider, payload.Reference)
	return h.reconcile(ctx, key, payload.Provider, payload.Reference)
}

func (h *PaymentHandler) HandlePaymentEvent(ctx context.Context, task *asynq.Task) error {
	var payload queue.PaymentEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed event payload: %w: %w", err, asynq.SkipRetry)
	}
	key := fmt.Sprintf("%s:%s:%s", payload.Provider, payload.Reference, payload.EventType)
	return h.reconcile(ctx, key, payload.Provider, payload.Reference)
}

func (h *PaymentHandler) reconcile(ctx context.Context, key, provider, reference string) error {
	outcome, err := h.idem.Run(ctx, key, func(ctx context.Context) error {
		_, err := h.payments.Reconcile(ctx, provider, reference)
		return err
	})
	if errors.Is(err, idempotency.ErrLockHeld) {
		// Another worker is on this key right now; let the queue retry later.
		h.metrics.RecordLockContention()
		return err
	}
	if err != nil {
		return err
	}
	if outcome == idempotency.OutcomeSkipped {
		h.log.Debug("event already processed", zap.String("key", key))
	}
	return nil
}

// NotificationHandler consumes the email, admin, and user queues. Handlers
// are retried verbatim on failure; the queue's task IDs already deduplicate
// deliveries, so a retry can only re-run a send that never succeeded.
type NotificationHandler struct {
	notifier notificationdomain.Service
	log      *zap.Logger
}

func NewNotificationHandler(notifier notificationdomain.Service, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		log:      log.Named("worker.notification"),
	}
}

func (h *NotificationHandler) HandleOrderStatusEmail(ctx context.Context, task *asynq.Task) error {
	var payload queue.OrderStatusEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed order status payload: %w: %w", err, asynq.SkipRetry)
	}
	return h.notifier.SendOrderStatusEmail(ctx, notificationdomain.OrderStatusEmail{
		OrderID: payload.OrderID,
		Email:   payload.Email,
		Status:  payload.Status,
	})
}

func (h *NotificationHandler) HandlePaymentEmail(ctx context.Context, task *asynq.Task) error {
	var payload queue.PaymentEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed payment email payload: %w: %w", err, asynq.SkipRetry)
	}
	msg := notificationdomain.PaymentEmail{
		OrderID:  payload.OrderID,
		Email:    payload.Email,
		Amount:   payload.Amount,
		Currency: payload.Currency,
		Reason:   payload.Reason,
	}
	switch task.Type() {
	case queue.TypePaymentSuccessEmail:
		return h.notifier.SendPaymentSuccessEmail(ctx, msg)
	case queue.TypePaymentFailedEmail:
		return h.notifier.SendPaymentFailedEmail(ctx, msg)
	case queue.TypePaymentRefundedEmail:
		return h.notifier.SendPaymentRefundedEmail(ctx, msg)
	default:
		return fmt.Errorf("unexpected payment email task %q: %w", task.Type(), asynq.SkipRetry)
	}
}

func (h *NotificationHandler) HandleAdminAlert(ctx context.Context, task *asynq.Task) error {
	var payload queue.AdminAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed admin alert payload: %w: %w", err, asynq.SkipRetry)
	}
	return h.notifier.NotifyAdmins(ctx, notificationdomain.AdminAlert{
		Kind:      payload.Kind,
		OrderID:   payload.OrderID,
		Reference: payload.Reference,
		Amount:    payload.Amount,
		Currency:  payload.Currency,
		Message:   payload.Message,
	})
}

func (h *NotificationHandler) HandleUserAlert(ctx context.Context, task *asynq.Task) error {
	var payload queue.UserAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed user alert payload: %w: %w", err, asynq.SkipRetry)
	}
	return h.notifier.NotifyCustomer(ctx, notificationdomain.CustomerAlert{
		CustomerID: payload.CustomerID,
		OrderID:    payload.OrderID,
		Status:     payload.Status,
		Message:    payload.Message,
	})
}
