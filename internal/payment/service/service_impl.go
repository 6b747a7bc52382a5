package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kolamart/kolamart/internal/clock"
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/idempotency"
	"github.com/kolamart/kolamart/internal/observability/metrics"
	orderdomain "github.com/kolamart/kolamart/internal/order/domain"
	"github.com/kolamart/kolamart/internal/payment/domain"
	"github.com/kolamart/kolamart/internal/payment/providers"
	"github.com/kolamart/kolamart/internal/queue"
	txndomain "github.com/kolamart/kolamart/internal/transaction/domain"
	"go.uber.org/zap"
)

type service struct {
	registry *providers.Registry
	orders   orderdomain.Repository
	txns     txndomain.Repository
	enqueuer queue.Enqueuer
	idem     *idempotency.Store
	clock    clock.Clock
	metrics  *metrics.Metrics
	log      *zap.Logger

	homeCurrency string
	callbackURL  string
}

func NewService(
	registry *providers.Registry,
	orders orderdomain.Repository,
	txns txndomain.Repository,
	enqueuer queue.Enqueuer,
	idem *idempotency.Store,
	clk clock.Clock,
	m *metrics.Metrics,
	cfg config.Config,
	log *zap.Logger,
) domain.Service {
	return &service{
		registry:     registry,
		orders:       orders,
		txns:         txns,
		enqueuer:     enqueuer,
		idem:         idem,
		clock:        clk,
		metrics:      m,
		log:          log.Named("payment.service"),
		homeCurrency: cfg.HomeCurrency,
		callbackURL:  cfg.CallbackURL,
	}
}

// Initialize starts a payment attempt: it freezes the charge amount on the
// order, asks the provider for a checkout session, and pins the provider
// reference so webhook deliveries can find their way back.
func (s *service) Initialize(ctx context.Context, req domain.InitializePaymentRequest) (*domain.InitializePaymentResponse, error) {
	provider, err := s.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, orderdomain.ErrAlreadyPaid
	}
	if order.Status == orderdomain.OrderStatusCancelled {
		return nil, orderdomain.ErrAlreadyCancelled
	}

	currency := order.Currency
	if currency == "" {
		currency = s.homeCurrency
	}
	amount := order.TotalAmount
	if order.AmountAtPayment != nil {
		amount = *order.AmountAtPayment
	}

	resp, err := provider.Initialize(ctx, domain.InitializeRequest{
		Email:       order.CustomerEmail,
		Amount:      amount,
		Currency:    currency,
		CallbackURL: s.callbackURL,
		Metadata: map[string]any{
			"order_id": order.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := order.FreezePayment(resp.Reference, provider.Name(), s.homeCurrency); err != nil {
		return nil, err
	}
	if err := s.orders.UpdatePaymentFields(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("payment initialized",
		zap.Int64("order_id", int64(order.ID)),
		zap.String("provider", provider.Name()),
		zap.String("reference", resp.Reference),
	)
	return &domain.InitializePaymentResponse{
		Reference:        resp.Reference,
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
	}, nil
}

// IngestWebhook is the hot path behind the webhook endpoint: authenticate,
// normalize, enqueue, return. The embedded amounts go along for observability
// but settlement always re-verifies against the provider.
func (s *service) IngestWebhook(ctx context.Context, providerName string, payload []byte, headers http.Header) error {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		s.metrics.RecordWebhookRejected("unknown_provider")
		return err
	}

	if err := provider.VerifyWebhook(payload, headers); err != nil {
		s.metrics.RecordWebhookRejected("signature")
		s.log.Warn("webhook signature rejected", zap.String("provider", providerName))
		return err
	}

	event, err := provider.ParseWebhook(payload)
	if errors.Is(err, domain.ErrEventIgnored) {
		// Authenticated but uninteresting. The caller still acks it.
		return err
	}
	if err != nil {
		s.metrics.RecordWebhookRejected("payload")
		return err
	}

	if err := s.enqueuer.EnqueuePaymentEvent(ctx, queue.PaymentEventPayload{
		Provider:  event.Provider,
		EventType: event.EventType,
		EventID:   event.EventID,
		Reference: event.Reference,
		Amount:    event.Amount,
		Currency:  event.Currency,
	}); err != nil {
		return err
	}

	s.metrics.RecordWebhookAccepted()
	s.log.Info("webhook accepted",
		zap.String("provider", event.Provider),
		zap.String("event_type", event.EventType),
		zap.String("reference", event.Reference),
	)
	return nil
}

// Reconcile fetches the provider's authoritative view of a reference and
// folds it into the order and the transaction ledger. The embedded amounts on
// webhook payloads are never trusted; only the live verify response counts.
func (s *service) Reconcile(ctx context.Context, providerName, reference string) (*domain.ReconcileResult, error) {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	verify, err := provider.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByProviderReference(ctx, reference)
	if errors.Is(err, orderdomain.ErrOrderNotFound) {
		// A reference we never issued. Drop it rather than retry forever.
		s.log.Warn("verify result references unknown order",
			zap.String("provider", providerName),
			zap.String("reference", reference),
		)
		s.metrics.RecordReconciliation(domain.OutcomeIgnored)
		return &domain.ReconcileResult{Outcome: domain.OutcomeIgnored, Reference: reference}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.recordTransaction(ctx, verify); err != nil {
		return nil, err
	}

	result := &domain.ReconcileResult{OrderID: order.ID, Reference: reference}
	switch verify.Status {
	case domain.VerifyStatusSuccess:
		result.Outcome, err = s.settleSuccess(ctx, order, verify)
	case domain.VerifyStatusFailed, domain.VerifyStatusAbandoned:
		result.Outcome, err = s.settleFailure(ctx, order, verify)
	case domain.VerifyStatusRefunded:
		result.Outcome, err = s.settleRefund(ctx, order, verify)
	case domain.VerifyStatusChargeback:
		// Chargebacks land in the ledger; the order stays untouched until an
		// operator resolves the dispute.
		s.log.Warn("chargeback recorded",
			zap.Int64("order_id", int64(order.ID)),
			zap.String("reference", reference),
		)
		result.Outcome = domain.OutcomeLedgerOnly
	case domain.VerifyStatusPending, domain.VerifyStatusOngoing:
		// Not final yet. Fail the attempt so the queue retries with backoff.
		return nil, fmt.Errorf("%w: reference %s", domain.ErrVerifyPending, reference)
	default:
		s.log.Warn("unrecognized verify status",
			zap.String("status", verify.Status),
			zap.String("reference", reference),
		)
		result.Outcome = domain.OutcomeIgnored
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReconciliation(result.Outcome)
	return result, nil
}

// VerifyPoll is the customer-facing "did my payment go through" check. It runs
// a full reconciliation under the verify idempotency key, then reports the
// order's stored state. A lock held by a concurrent webhook worker is fine;
// the stored state is still a truthful answer.
func (s *service) VerifyPoll(ctx context.Context, providerName, reference string) (*domain.PollResult, error) {
	key := fmt.Sprintf("%s:verify:%s", providerName, reference)
	_, err := s.idem.Run(ctx, key, func(ctx context.Context) error {
		_, err := s.Reconcile(ctx, providerName, reference)
		return err
	})
	switch {
	case errors.Is(err, idempotency.ErrLockHeld):
		s.metrics.RecordLockContention()
	case errors.Is(err, domain.ErrVerifyPending):
		// Still settling; report the current snapshot.
	case err != nil:
		return nil, err
	}

	order, err := s.orders.FindByProviderReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return &domain.PollResult{
		OrderID:       order.ID,
		Paid:          order.IsPaid,
		PaymentStatus: string(order.PaymentStatus),
		OrderStatus:   string(order.Status),
	}, nil
}

func (s *service) settleSuccess(ctx context.Context, order *orderdomain.Order, verify *domain.VerifyResult) (string, error) {
	expected := order.TotalAmount
	if order.AmountAtPayment != nil {
		expected = *order.AmountAtPayment
	}
	if verify.Amount != expected || verify.Currency != order.Currency {
		s.log.Error("verified payment does not match order",
			zap.Int64("order_id", int64(order.ID)),
			zap.Int64("expected_amount", expected),
			zap.Int64("verified_amount", verify.Amount),
			zap.String("expected_currency", order.Currency),
			zap.String("verified_currency", verify.Currency),
		)
		if err := s.enqueuer.EnqueueAdminAlert(ctx, queue.TypeAdminPaymentFailed, queue.AdminAlertPayload{
			Kind:      "amount_mismatch",
			OrderID:   int64(order.ID),
			Reference: verify.Reference,
			Amount:    verify.Amount,
			Currency:  verify.Currency,
			Message: fmt.Sprintf("payment %s settled for %d %s but order %d expects %d %s",
				verify.Reference, verify.Amount, verify.Currency, order.ID, expected, order.Currency),
		}); err != nil {
			return "", err
		}
		return domain.OutcomeMismatch, nil
	}

	paidAt := s.clock.Now()
	if verify.PaidAt != nil {
		paidAt = *verify.PaidAt
	}
	first := order.MarkPaid(paidAt)
	if !first {
		return domain.OutcomeAlreadyPaid, nil
	}
	if err := s.orders.UpdatePaymentFields(ctx, order); err != nil {
		return "", err
	}

	if err := s.notifyPaid(ctx, order); err != nil {
		return "", err
	}
	s.log.Info("order marked paid",
		zap.Int64("order_id", int64(order.ID)),
		zap.String("reference", verify.Reference),
		zap.Int64("amount", verify.Amount),
	)
	return domain.OutcomeMarkedPaid, nil
}

func (s *service) settleFailure(ctx context.Context, order *orderdomain.Order, verify *domain.VerifyResult) (string, error) {
	if changed := order.MarkPaymentFailed(); !changed {
		// A failure event that arrives after settlement never un-pays.
		s.log.Warn("failure event for settled payment ignored",
			zap.Int64("order_id", int64(order.ID)),
			zap.String("reference", verify.Reference),
		)
		return domain.OutcomeAlreadyPaid, nil
	}
	if err := s.orders.UpdatePaymentFields(ctx, order); err != nil {
		return "", err
	}

	if err := s.enqueuer.EnqueuePaymentEmail(ctx, queue.TypePaymentFailedEmail, queue.PaymentEmailPayload{
		OrderID:  int64(order.ID),
		Email:    order.CustomerEmail,
		Amount:   verify.Amount,
		Currency: verify.Currency,
		Reason:   verify.GatewayResponse,
	}); err != nil {
		return "", err
	}
	if err := s.enqueuer.EnqueueAdminAlert(ctx, queue.TypeAdminPaymentFailed, queue.AdminAlertPayload{
		Kind:      "payment_failed",
		OrderID:   int64(order.ID),
		Reference: verify.Reference,
		Amount:    verify.Amount,
		Currency:  verify.Currency,
		Message:   fmt.Sprintf("payment for order %d failed: %s", order.ID, verify.GatewayResponse),
	}); err != nil {
		return "", err
	}
	return domain.OutcomeFailed, nil
}

func (s *service) settleRefund(ctx context.Context, order *orderdomain.Order, verify *domain.VerifyResult) (string, error) {
	if err := order.MarkRefunded(); err != nil {
		// Refund for a payment we never saw complete: ledger keeps the record,
		// the order is left alone.
		s.log.Warn("refund event for uncompleted payment",
			zap.Int64("order_id", int64(order.ID)),
			zap.String("reference", verify.Reference),
			zap.Error(err),
		)
		return domain.OutcomeLedgerOnly, nil
	}
	if err := s.orders.UpdatePaymentFields(ctx, order); err != nil {
		return "", err
	}

	if err := s.enqueuer.EnqueuePaymentEmail(ctx, queue.TypePaymentRefundedEmail, queue.PaymentEmailPayload{
		OrderID:  int64(order.ID),
		Email:    order.CustomerEmail,
		Amount:   verify.Amount,
		Currency: verify.Currency,
	}); err != nil {
		return "", err
	}
	return domain.OutcomeRefunded, nil
}

// notifyPaid fans out the first-confirmation side effects. Each task carries
// its own semantic dedup key, so a crash between enqueues is safe to retry.
func (s *service) notifyPaid(ctx context.Context, order *orderdomain.Order) error {
	if err := s.enqueuer.EnqueueOrderStatusEmail(ctx, queue.OrderStatusEmailPayload{
		OrderID: int64(order.ID),
		Email:   order.CustomerEmail,
		Status:  string(order.Status),
	}); err != nil {
		return err
	}
	if err := s.enqueuer.EnqueuePaymentEmail(ctx, queue.TypePaymentSuccessEmail, queue.PaymentEmailPayload{
		OrderID:  int64(order.ID),
		Email:    order.CustomerEmail,
		Amount:   amountOf(order),
		Currency: order.Currency,
	}); err != nil {
		return err
	}
	reference := ""
	if order.ProviderReference != nil {
		reference = *order.ProviderReference
	}
	if err := s.enqueuer.EnqueueAdminAlert(ctx, queue.TypeAdminPaymentReceived, queue.AdminAlertPayload{
		Kind:      "payment_received",
		OrderID:   int64(order.ID),
		Reference: reference,
		Amount:    amountOf(order),
		Currency:  order.Currency,
		Message:   fmt.Sprintf("order %d paid %d %s", order.ID, amountOf(order), order.Currency),
	}); err != nil {
		return err
	}
	return s.enqueuer.EnqueueUserAlert(ctx, queue.UserAlertPayload{
		CustomerID: int64(order.CustomerID),
		OrderID:    int64(order.ID),
		Status:     string(order.Status),
		Message:    fmt.Sprintf("your payment for order %d was received", order.ID),
	})
}

// recordTransaction upserts the provider-side ledger row. Ledger failures on
// transition are logged, not fatal; the order settlement is the priority.
func (s *service) recordTransaction(ctx context.Context, verify *domain.VerifyResult) error {
	if verify.TransactionID == 0 {
		return nil
	}
	now := s.clock.Now()
	status := mapVerifyStatus(verify.Status)

	txn, err := s.txns.FindByID(ctx, verify.TransactionID)
	if errors.Is(err, txndomain.ErrTransactionNotFound) {
		txn = &txndomain.Transaction{
			ID:            verify.TransactionID,
			Status:        status,
			Amount:        verify.Amount,
			Currency:      verify.Currency,
			Reference:     verify.Reference,
			PaidAt:        verify.PaidAt,
			CustomerCode:  verify.Customer.Code,
			CustomerEmail: verify.Customer.Email,
			CustomerName:  customerName(verify.Customer),
		}
		if err := txn.InitHistory(now); err != nil {
			return err
		}
		return s.txns.Create(ctx, txn)
	}
	if err != nil {
		return err
	}

	changed, err := txn.UpdateStatus(status, now)
	if err != nil {
		s.log.Warn("transaction transition rejected",
			zap.Int64("transaction_id", txn.ID),
			zap.String("from", string(txn.Status)),
			zap.String("to", string(status)),
			zap.Error(err),
		)
		return nil
	}
	if !changed {
		return nil
	}
	if verify.PaidAt != nil {
		txn.PaidAt = verify.PaidAt
	}
	return s.txns.Save(ctx, txn)
}

func mapVerifyStatus(status string) txndomain.Status {
	switch status {
	case domain.VerifyStatusSuccess:
		return txndomain.StatusSuccessful
	case domain.VerifyStatusFailed:
		return txndomain.StatusFailed
	case domain.VerifyStatusAbandoned:
		return txndomain.StatusExpired
	case domain.VerifyStatusRefunded:
		return txndomain.StatusRefunded
	case domain.VerifyStatusChargeback:
		return txndomain.StatusChargeback
	case domain.VerifyStatusOngoing:
		return txndomain.StatusProcessing
	default:
		return txndomain.StatusPending
	}
}

func customerName(c domain.Customer) string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

func amountOf(order *orderdomain.Order) int64 {
	if order.AmountAtPayment != nil {
		return *order.AmountAtPayment
	}
	return order.TotalAmount
}
