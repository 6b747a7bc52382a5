package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kolamart/kolamart/internal/clock"
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/idempotency"
	"github.com/kolamart/kolamart/internal/kv"
	orderdomain "github.com/kolamart/kolamart/internal/order/domain"
	"github.com/kolamart/kolamart/internal/payment/domain"
	"github.com/kolamart/kolamart/internal/payment/providers"
	"github.com/kolamart/kolamart/internal/queue"
	txndomain "github.com/kolamart/kolamart/internal/transaction/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	mu          sync.Mutex
	verify      *domain.VerifyResult
	verifyErr   error
	verifyCalls int
	initResp    *domain.InitializeResponse
	initErr     error
	webhookErr  error
	parseEvent  *domain.WebhookEvent
	parseErr    error
}

func (p *fakeProvider) Name() string { return "paystack" }

func (p *fakeProvider) Initialize(ctx context.Context, req domain.InitializeRequest) (*domain.InitializeResponse, error) {
	if p.initErr != nil {
		return nil, p.initErr
	}
	return p.initResp, nil
}

func (p *fakeProvider) Verify(ctx context.Context, reference string) (*domain.VerifyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifyCalls++
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	out := *p.verify
	return &out, nil
}

func (p *fakeProvider) VerifyWebhook(payload []byte, headers http.Header) error {
	return p.webhookErr
}

func (p *fakeProvider) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	if p.parseEvent == nil {
		return nil, domain.ErrEventIgnored
	}
	return p.parseEvent, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyCalls
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[snowflake.ID]*orderdomain.Order
}

func newMemOrderRepo(orders ...*orderdomain.Order) *memOrderRepo {
	repo := &memOrderRepo{orders: map[snowflake.ID]*orderdomain.Order{}}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (r *memOrderRepo) Create(ctx context.Context, order *orderdomain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, id snowflake.ID) (*orderdomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, orderdomain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *memOrderRepo) FindByProviderReference(ctx context.Context, reference string) (*orderdomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.ProviderReference != nil && *order.ProviderReference == reference {
			copied := *order
			return &copied, nil
		}
	}
	return nil, orderdomain.ErrOrderNotFound
}

func (r *memOrderRepo) Save(ctx context.Context, order *orderdomain.Order) error {
	return r.Create(ctx, order)
}

func (r *memOrderRepo) UpdatePaymentFields(ctx context.Context, order *orderdomain.Order) error {
	return r.Create(ctx, order)
}

func (r *memOrderRepo) get(t *testing.T, id snowflake.ID) *orderdomain.Order {
	t.Helper()
	order, err := r.FindByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

type memTxnRepo struct {
	mu   sync.Mutex
	txns map[int64]*txndomain.Transaction
}

func newMemTxnRepo() *memTxnRepo {
	return &memTxnRepo{txns: map[int64]*txndomain.Transaction{}}
}

func (r *memTxnRepo) FindByID(ctx context.Context, id int64) (*txndomain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.txns[id]
	if !ok {
		return nil, txndomain.ErrTransactionNotFound
	}
	copied := *txn
	return &copied, nil
}

func (r *memTxnRepo) Create(ctx context.Context, txn *txndomain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns[txn.ID] = txn
	return nil
}

func (r *memTxnRepo) Save(ctx context.Context, txn *txndomain.Transaction) error {
	return r.Create(ctx, txn)
}

type enqueued struct {
	taskType string
	dedupKey string
}

// recordingEnqueuer captures fan-out and collapses duplicate dedup keys the
// way the real queue does.
type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []enqueued
	seen  map[string]bool
}

func newRecordingEnqueuer() *recordingEnqueuer {
	return &recordingEnqueuer{seen: map[string]bool{}}
}

func (e *recordingEnqueuer) record(taskType, dedupKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen[dedupKey] {
		return nil
	}
	e.seen[dedupKey] = true
	e.tasks = append(e.tasks, enqueued{taskType: taskType, dedupKey: dedupKey})
	return nil
}

func (e *recordingEnqueuer) EnqueueVerifyPayment(ctx context.Context, provider, reference string, opts ...queue.Option) error {
	return e.record(queue.TypeVerifyPayment, provider+":verify:"+reference)
}

func (e *recordingEnqueuer) EnqueuePaymentEvent(ctx context.Context, payload queue.PaymentEventPayload, opts ...queue.Option) error {
	return e.record(queue.TypePaymentEvent, payload.Provider+":"+payload.Reference+":"+payload.EventType)
}

func (e *recordingEnqueuer) EnqueueOrderStatusEmail(ctx context.Context, payload queue.OrderStatusEmailPayload, opts ...queue.Option) error {
	return e.record(queue.TypeOrderStatusEmail, "email:orderstatus:"+payload.Status)
}

func (e *recordingEnqueuer) EnqueuePaymentEmail(ctx context.Context, taskType string, payload queue.PaymentEmailPayload, opts ...queue.Option) error {
	return e.record(taskType, taskType)
}

func (e *recordingEnqueuer) EnqueueAdminAlert(ctx context.Context, taskType string, payload queue.AdminAlertPayload, opts ...queue.Option) error {
	return e.record(taskType, taskType+":"+payload.Kind)
}

func (e *recordingEnqueuer) EnqueueUserAlert(ctx context.Context, payload queue.UserAlertPayload, opts ...queue.Option) error {
	return e.record(queue.TypeUserOrderStatus, "user:orderstatus:"+payload.Status)
}

func (e *recordingEnqueuer) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.tasks))
	for _, task := range e.tasks {
		out = append(out, task.taskType)
	}
	return out
}

type fixture struct {
	svc      domain.Service
	provider *fakeProvider
	orders   *memOrderRepo
	txns     *memTxnRepo
	enqueuer *recordingEnqueuer
	clock    *clock.FakeClock
}

func newFixture(t *testing.T, orders ...*orderdomain.Order) *fixture {
	t.Helper()
	provider := &fakeProvider{}
	orderRepo := newMemOrderRepo(orders...)
	txnRepo := newMemTxnRepo()
	enqueuer := newRecordingEnqueuer()
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	idem := idempotency.NewStore(kv.NewMemoryStore(), time.Minute, time.Hour, zap.NewNop())

	svc := NewService(
		providers.NewRegistry(provider),
		orderRepo,
		txnRepo,
		enqueuer,
		idem,
		fakeClock,
		nil,
		config.Config{HomeCurrency: "NGN", CallbackURL: "https://kolamart.shop/payment/callback"},
		zap.NewNop(),
	)
	return &fixture{
		svc:      svc,
		provider: provider,
		orders:   orderRepo,
		txns:     txnRepo,
		enqueuer: enqueuer,
		clock:    fakeClock,
	}
}

func testOrder(reference string) *orderdomain.Order {
	amount := int64(5000)
	ref := reference
	return &orderdomain.Order{
		ID:                snowflake.ID(1001),
		Status:            orderdomain.OrderStatusNew,
		PaymentStatus:     orderdomain.PaymentStatusProcessing,
		ProviderReference: &ref,
		AmountAtPayment:   &amount,
		TotalAmount:       5000,
		Currency:          "NGN",
		CustomerID:        snowflake.ID(7),
		CustomerEmail:     "ada@example.com",
		CustomerName:      "Ada Obi",
	}
}

func successVerify(reference string) *domain.VerifyResult {
	paidAt := time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC)
	return &domain.VerifyResult{
		Status:          domain.VerifyStatusSuccess,
		Amount:          5000,
		Currency:        "NGN",
		Reference:       reference,
		TransactionID:   901,
		GatewayResponse: "Successful",
		PaidAt:          &paidAt,
		Customer: domain.Customer{
			Code:      "CUS_1",
			FirstName: "Ada",
			LastName:  "Obi",
			Email:     "ada@example.com",
		},
	}
}

func TestReconcileSuccessMarksPaidOnce(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.verify = successVerify("ref_1")

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeMarkedPaid, result.Outcome)

	order := f.orders.get(t, snowflake.ID(1001))
	require.True(t, order.IsPaid)
	require.Equal(t, orderdomain.PaymentStatusCompleted, order.PaymentStatus)
	require.Equal(t, orderdomain.OrderStatusProcessing, order.Status)
	require.NotNil(t, order.PaidAt)
	require.Equal(t, time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC), *order.PaidAt)

	// Full first-confirmation fan-out.
	require.ElementsMatch(t, []string{
		queue.TypeOrderStatusEmail,
		queue.TypePaymentSuccessEmail,
		queue.TypeAdminPaymentReceived,
		queue.TypeUserOrderStatus,
	}, f.enqueuer.types())

	// Ledger row created with seeded history.
	txn, err := f.txns.FindByID(context.Background(), 901)
	require.NoError(t, err)
	require.Equal(t, txndomain.StatusSuccessful, txn.Status)
	history, err := txn.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestReconcileDuplicateDeliveryHasNoSecondFanOut(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.verify = successVerify("ref_1")

	first, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeMarkedPaid, first.Outcome)
	firstPaidAt := *f.orders.get(t, snowflake.ID(1001)).PaidAt
	fanOut := len(f.enqueuer.types())

	second, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAlreadyPaid, second.Outcome)

	require.Equal(t, firstPaidAt, *f.orders.get(t, snowflake.ID(1001)).PaidAt, "paid_at must not shift on redelivery")
	require.Len(t, f.enqueuer.types(), fanOut, "no second notification fan-out")
}

func TestReconcileAmountMismatchLeavesOrderUnpaid(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	verify := successVerify("ref_1")
	verify.Amount = 4000
	f.provider.verify = verify

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeMismatch, result.Outcome)

	order := f.orders.get(t, snowflake.ID(1001))
	require.False(t, order.IsPaid)
	require.Equal(t, orderdomain.PaymentStatusProcessing, order.PaymentStatus)
	require.ElementsMatch(t, []string{queue.TypeAdminPaymentFailed}, f.enqueuer.types())
}

func TestReconcileCurrencyMismatchLeavesOrderUnpaid(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	verify := successVerify("ref_1")
	verify.Currency = "USD"
	f.provider.verify = verify

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeMismatch, result.Outcome)
	require.False(t, f.orders.get(t, snowflake.ID(1001)).IsPaid)
}

func TestReconcileFailureNotifiesCustomerAndAdmin(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	verify := successVerify("ref_1")
	verify.Status = domain.VerifyStatusFailed
	verify.GatewayResponse = "Declined"
	f.provider.verify = verify

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeFailed, result.Outcome)

	order := f.orders.get(t, snowflake.ID(1001))
	require.False(t, order.IsPaid)
	require.Equal(t, orderdomain.PaymentStatusFailed, order.PaymentStatus)
	require.ElementsMatch(t, []string{
		queue.TypePaymentFailedEmail,
		queue.TypeAdminPaymentFailed,
	}, f.enqueuer.types())
}

func TestReconcileLateFailureAfterSettlementIsIgnored(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.verify = successVerify("ref_1")

	_, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	fanOut := len(f.enqueuer.types())

	failed := successVerify("ref_1")
	failed.Status = domain.VerifyStatusFailed
	f.provider.verify = failed

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAlreadyPaid, result.Outcome)

	order := f.orders.get(t, snowflake.ID(1001))
	require.True(t, order.IsPaid, "late failure must not un-pay the order")
	require.Equal(t, orderdomain.PaymentStatusCompleted, order.PaymentStatus)
	require.Len(t, f.enqueuer.types(), fanOut)
}

func TestReconcileRefundAfterSettlement(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.verify = successVerify("ref_1")
	_, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)

	refunded := successVerify("ref_1")
	refunded.Status = domain.VerifyStatusRefunded
	f.provider.verify = refunded

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRefunded, result.Outcome)

	order := f.orders.get(t, snowflake.ID(1001))
	require.Equal(t, orderdomain.PaymentStatusRefunded, order.PaymentStatus)
	require.Contains(t, f.enqueuer.types(), queue.TypePaymentRefundedEmail)

	txn, err := f.txns.FindByID(context.Background(), 901)
	require.NoError(t, err)
	require.Equal(t, txndomain.StatusRefunded, txn.Status)
	history, err := txn.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestReconcileRefundBeforeSettlementIsLedgerOnly(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	refunded := successVerify("ref_1")
	refunded.Status = domain.VerifyStatusRefunded
	f.provider.verify = refunded

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeLedgerOnly, result.Outcome)

	order := f.orders.get(t, snowflake.ID(1001))
	require.False(t, order.IsPaid)
	require.Equal(t, orderdomain.PaymentStatusProcessing, order.PaymentStatus)
}

func TestReconcileChargebackTouchesLedgerOnly(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.verify = successVerify("ref_1")
	_, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)

	disputed := successVerify("ref_1")
	disputed.Status = domain.VerifyStatusChargeback
	f.provider.verify = disputed

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeLedgerOnly, result.Outcome)

	order := f.orders.get(t, snowflake.ID(1001))
	require.True(t, order.IsPaid, "order untouched until the dispute resolves")

	txn, err := f.txns.FindByID(context.Background(), 901)
	require.NoError(t, err)
	require.Equal(t, txndomain.StatusChargeback, txn.Status)
}

func TestReconcileUnknownReferenceIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.provider.verify = successVerify("ref_unknown")

	result, err := f.svc.Reconcile(context.Background(), "paystack", "ref_unknown")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeIgnored, result.Outcome)
}

func TestReconcilePendingIsRetryable(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	pending := successVerify("ref_1")
	pending.Status = domain.VerifyStatusPending
	f.provider.verify = pending

	_, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.ErrorIs(t, err, domain.ErrVerifyPending)
	require.False(t, f.orders.get(t, snowflake.ID(1001)).IsPaid)
}

func TestReconcileProviderOutagePropagates(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.verifyErr = domain.ErrProviderUnavailable

	_, err := f.svc.Reconcile(context.Background(), "paystack", "ref_1")
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestReconcileUnknownProvider(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))

	_, err := f.svc.Reconcile(context.Background(), "flutterwave", "ref_1")
	require.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestVerifyPollRunsReconcileOnceAndSnapshotsAfter(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.verify = successVerify("ref_1")

	result, err := f.svc.VerifyPoll(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.True(t, result.Paid)
	require.Equal(t, string(orderdomain.PaymentStatusCompleted), result.PaymentStatus)
	require.Equal(t, string(orderdomain.OrderStatusProcessing), result.OrderStatus)
	require.Equal(t, 1, f.provider.calls())

	// The durable marker covers the key; a second poll reads stored state.
	result, err = f.svc.VerifyPoll(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.True(t, result.Paid)
	require.Equal(t, 1, f.provider.calls(), "marker must suppress the second verify call")
}

func TestVerifyPollPendingReportsSnapshotWithoutMarker(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	pending := successVerify("ref_1")
	pending.Status = domain.VerifyStatusPending
	f.provider.verify = pending

	result, err := f.svc.VerifyPoll(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.False(t, result.Paid)
	require.Equal(t, string(orderdomain.PaymentStatusProcessing), result.PaymentStatus)

	// No marker was written, so the next poll re-verifies and can settle.
	f.provider.verify = successVerify("ref_1")
	result, err = f.svc.VerifyPoll(context.Background(), "paystack", "ref_1")
	require.NoError(t, err)
	require.True(t, result.Paid)
	require.Equal(t, 2, f.provider.calls())
}

func TestInitializeFreezesAmountAndReference(t *testing.T) {
	order := &orderdomain.Order{
		ID:            snowflake.ID(2002),
		Status:        orderdomain.OrderStatusNew,
		PaymentStatus: orderdomain.PaymentStatusPending,
		TotalAmount:   12500,
		CustomerID:    snowflake.ID(7),
		CustomerEmail: "ada@example.com",
	}
	f := newFixture(t, order)
	f.provider.initResp = &domain.InitializeResponse{
		Reference:        "ref_new",
		AuthorizationURL: "https://checkout.paystack.com/abc",
		AccessCode:       "abc",
	}

	resp, err := f.svc.Initialize(context.Background(), domain.InitializePaymentRequest{
		OrderID:  order.ID,
		Provider: "paystack",
	})
	require.NoError(t, err)
	require.Equal(t, "ref_new", resp.Reference)
	require.Equal(t, "https://checkout.paystack.com/abc", resp.AuthorizationURL)

	stored := f.orders.get(t, order.ID)
	require.NotNil(t, stored.ProviderReference)
	require.Equal(t, "ref_new", *stored.ProviderReference)
	require.NotNil(t, stored.AmountAtPayment)
	require.Equal(t, int64(12500), *stored.AmountAtPayment)
	require.Equal(t, "NGN", stored.Currency)
	require.Equal(t, "paystack", stored.PaymentMethod)
	require.Equal(t, orderdomain.PaymentStatusProcessing, stored.PaymentStatus)
}

func TestInitializePaidOrderRejected(t *testing.T) {
	order := testOrder("ref_1")
	order.MarkPaid(time.Now())
	f := newFixture(t, order)

	_, err := f.svc.Initialize(context.Background(), domain.InitializePaymentRequest{
		OrderID:  order.ID,
		Provider: "paystack",
	})
	require.ErrorIs(t, err, orderdomain.ErrAlreadyPaid)
}

func TestInitializeCancelledOrderRejected(t *testing.T) {
	order := testOrder("ref_1")
	order.Status = orderdomain.OrderStatusCancelled
	f := newFixture(t, order)

	_, err := f.svc.Initialize(context.Background(), domain.InitializePaymentRequest{
		OrderID:  order.ID,
		Provider: "paystack",
	})
	require.ErrorIs(t, err, orderdomain.ErrAlreadyCancelled)
}

func TestIngestWebhookEnqueuesOneEventPerDelivery(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.parseEvent = &domain.WebhookEvent{
		Provider:  "paystack",
		EventType: domain.VerifyStatusSuccess,
		EventID:   "901",
		Reference: "ref_1",
		Amount:    5000,
		Currency:  "NGN",
	}

	require.NoError(t, f.svc.IngestWebhook(context.Background(), "paystack", []byte(`{}`), http.Header{}))
	require.Equal(t, []string{queue.TypePaymentEvent}, f.enqueuer.types())

	// A redelivery of the same logical event collapses at the queue.
	require.NoError(t, f.svc.IngestWebhook(context.Background(), "paystack", []byte(`{}`), http.Header{}))
	require.Len(t, f.enqueuer.types(), 1)

	// No inline reconciliation on the ingress path.
	require.Equal(t, 0, f.provider.calls())
	require.False(t, f.orders.get(t, snowflake.ID(1001)).IsPaid)
}

func TestIngestWebhookBadSignature(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.webhookErr = domain.ErrInvalidSignature

	err := f.svc.IngestWebhook(context.Background(), "paystack", []byte(`{}`), http.Header{})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	require.Empty(t, f.enqueuer.types())
}

func TestIngestWebhookIgnoredEventEnqueuesNothing(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.parseErr = domain.ErrEventIgnored

	err := f.svc.IngestWebhook(context.Background(), "paystack", []byte(`{}`), http.Header{})
	require.ErrorIs(t, err, domain.ErrEventIgnored)
	require.Empty(t, f.enqueuer.types())
}

func TestIngestWebhookUnknownProvider(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))

	err := f.svc.IngestWebhook(context.Background(), "flutterwave", []byte(`{}`), http.Header{})
	require.ErrorIs(t, err, domain.ErrProviderNotFound)
}

// Concurrent polls for the same reference must settle exactly once.
func TestVerifyPollConcurrentSingleSettlement(t *testing.T) {
	f := newFixture(t, testOrder("ref_1"))
	f.provider.verify = successVerify("ref_1")

	const pollers = 8
	var wg sync.WaitGroup
	results := make([]*domain.PollResult, pollers)
	errs := make([]error, pollers)
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.VerifyPoll(context.Background(), "paystack", "ref_1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < pollers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
	}
	require.Equal(t, 1, f.provider.calls(), "exactly one poller may hit the provider")

	order := f.orders.get(t, snowflake.ID(1001))
	require.True(t, order.IsPaid)
	require.LessOrEqual(t, len(f.enqueuer.types()), 4)
}
