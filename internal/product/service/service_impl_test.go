package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/kolamart/kolamart/internal/product/domain"
	"github.com/kolamart/kolamart/internal/product/repository"
	"github.com/kolamart/kolamart/internal/queue"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []queue.AdminAlertPayload
}

func (r *alertRecorder) EnqueueVerifyPayment(ctx context.Context, provider, reference string, opts ...queue.Option) error {
	return nil
}

func (r *alertRecorder) EnqueuePaymentEvent(ctx context.Context, payload queue.PaymentEventPayload, opts ...queue.Option) error {
	return nil
}

func (r *alertRecorder) EnqueueOrderStatusEmail(ctx context.Context, payload queue.OrderStatusEmailPayload, opts ...queue.Option) error {
	return nil
}

func (r *alertRecorder) EnqueuePaymentEmail(ctx context.Context, taskType string, payload queue.PaymentEmailPayload, opts ...queue.Option) error {
	return nil
}

func (r *alertRecorder) EnqueueAdminAlert(ctx context.Context, taskType string, payload queue.AdminAlertPayload, opts ...queue.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, payload)
	return nil
}

func (r *alertRecorder) EnqueueUserAlert(ctx context.Context, payload queue.UserAlertPayload, opts ...queue.Option) error {
	return nil
}

func newTestService(t *testing.T) (domain.Service, *alertRecorder) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	recorder := &alertRecorder{}
	svc := NewService(repository.Provide(gdb), recorder, node, zap.NewNop())
	return svc, recorder
}

func seedProduct(t *testing.T, svc domain.Service, sku string, stock, threshold int) *domain.Product {
	t.Helper()
	product, err := svc.Create(context.Background(), &domain.Product{
		SKU:               sku,
		Name:              "Test " + sku,
		Price:             250000,
		Currency:          "NGN",
		Stock:             stock,
		LowStockThreshold: threshold,
	})
	require.NoError(t, err)
	return product
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	svc, _ := newTestService(t)
	seedProduct(t, svc, "SKU-1", 10, 3)

	_, err := svc.Create(context.Background(), &domain.Product{
		SKU:      "SKU-1",
		Name:     "Other",
		Price:    100,
		Currency: "NGN",
	})
	require.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestAdjustStockAppliesDeltas(t *testing.T) {
	svc, recorder := newTestService(t)
	a := seedProduct(t, svc, "SKU-A", 10, 3)
	b := seedProduct(t, svc, "SKU-B", 20, 3)

	updated, err := svc.AdjustStock(context.Background(), []domain.StockAdjustment{
		{ProductID: a.ID, Delta: -2},
		{ProductID: b.ID, Delta: 5},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)

	got, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, 8, got.Stock)

	got, err = svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	require.Equal(t, 25, got.Stock)

	require.Empty(t, recorder.alerts, "no alert while everything is above threshold")
}

func TestAdjustStockBatchFailsAtomically(t *testing.T) {
	svc, _ := newTestService(t)
	a := seedProduct(t, svc, "SKU-A", 10, 3)
	b := seedProduct(t, svc, "SKU-B", 1, 3)

	_, err := svc.AdjustStock(context.Background(), []domain.StockAdjustment{
		{ProductID: a.ID, Delta: -2},
		{ProductID: b.ID, Delta: -5},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// The first delta must have rolled back with the failed one.
	got, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.Stock)
}

func TestAdjustStockRaisesOneSummaryAlert(t *testing.T) {
	svc, recorder := newTestService(t)
	a := seedProduct(t, svc, "SKU-A", 4, 3)
	b := seedProduct(t, svc, "SKU-B", 5, 3)
	c := seedProduct(t, svc, "SKU-C", 50, 3)

	_, err := svc.AdjustStock(context.Background(), []domain.StockAdjustment{
		{ProductID: a.ID, Delta: -2},
		{ProductID: b.ID, Delta: -3},
		{ProductID: c.ID, Delta: -1},
	})
	require.NoError(t, err)

	require.Len(t, recorder.alerts, 1, "one summary alert per batch, never one per product")
	alert := recorder.alerts[0]
	require.Equal(t, "low_stock", alert.Kind)
	require.Contains(t, alert.Message, "2 product(s) low on stock")
	require.Contains(t, alert.Message, "SKU-A (2 left)")
	require.Contains(t, alert.Message, "SKU-B (2 left)")
	require.NotContains(t, alert.Message, "SKU-C")
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AdjustStock(context.Background(), []domain.StockAdjustment{
		{ProductID: snowflake.ID(424242), Delta: -1},
	})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}
