package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/notification/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentEmail struct {
	to      []string
	subject string
	body    string
}

type fakeEmailProvider struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (p *fakeEmailProvider) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, sentEmail{to: to, subject: subject, body: htmlBody})
	return nil
}

type memAlertRepo struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (r *memAlertRepo) Create(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, *alert)
	return nil
}

func (r *memAlertRepo) ListForCustomer(ctx context.Context, customerID snowflake.ID, unreadOnly bool) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Alert
	for _, a := range r.alerts {
		if a.Audience == domain.AudienceCustomer && a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAlertRepo) ListForAdmins(ctx context.Context, unreadOnly bool) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Alert
	for _, a := range r.alerts {
		if a.Audience == domain.AudienceAdmin {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAlertRepo) MarkRead(ctx context.Context, id snowflake.ID) error { return nil }

func newTestService(t *testing.T, adminEmails ...string) (domain.Service, *fakeEmailProvider, *memAlertRepo) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	provider := &fakeEmailProvider{}
	repo := &memAlertRepo{}
	svc := NewService(provider, repo, node, nil, config.Config{AdminEmails: adminEmails}, zap.NewNop())
	return svc, provider, repo
}

func TestSendOrderStatusEmail(t *testing.T) {
	svc, provider, _ := newTestService(t)

	err := svc.SendOrderStatusEmail(context.Background(), domain.OrderStatusEmail{
		OrderID: 1001,
		Email:   "ada@example.com",
		Status:  "Processing",
	})
	require.NoError(t, err)
	require.Len(t, provider.sent, 1)
	require.Equal(t, []string{"ada@example.com"}, provider.sent[0].to)
	require.Equal(t, "Order #1001 is Processing", provider.sent[0].subject)
	require.Contains(t, provider.sent[0].body, "Processing")
}

func TestSendPaymentSuccessEmailFormatsAmount(t *testing.T) {
	svc, provider, _ := newTestService(t)

	err := svc.SendPaymentSuccessEmail(context.Background(), domain.PaymentEmail{
		OrderID:  1001,
		Email:    "ada@example.com",
		Amount:   500000, // kobo
		Currency: "NGN",
	})
	require.NoError(t, err)
	require.Len(t, provider.sent, 1)
	require.Contains(t, provider.sent[0].body, "NGN 5000.00")
}

func TestSendPaymentFailedEmailIncludesReason(t *testing.T) {
	svc, provider, _ := newTestService(t)

	err := svc.SendPaymentFailedEmail(context.Background(), domain.PaymentEmail{
		OrderID:  1001,
		Email:    "ada@example.com",
		Amount:   500000,
		Currency: "NGN",
		Reason:   "Insufficient funds",
	})
	require.NoError(t, err)
	require.Contains(t, provider.sent[0].body, "Insufficient funds")
}

func TestNotifyAdminsPersistsAlertAndMailsList(t *testing.T) {
	svc, provider, repo := newTestService(t, "ops@kolamart.shop", "owner@kolamart.shop")

	err := svc.NotifyAdmins(context.Background(), domain.AdminAlert{
		Kind:      "payment_received",
		OrderID:   1001,
		Reference: "ref_1",
		Message:   "order 1001 paid 500000 NGN",
	})
	require.NoError(t, err)

	alerts, err := repo.ListForAdmins(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, "payment_received", alerts[0].Kind)
	require.False(t, alerts[0].Read)

	require.Len(t, provider.sent, 1)
	require.Equal(t, []string{"ops@kolamart.shop", "owner@kolamart.shop"}, provider.sent[0].to)
	require.True(t, strings.HasPrefix(provider.sent[0].subject, "[kolamart]"))
}

func TestNotifyAdminsWithoutMailingListStillPersists(t *testing.T) {
	svc, provider, repo := newTestService(t)

	err := svc.NotifyAdmins(context.Background(), domain.AdminAlert{
		Kind:    "low_stock",
		Message: "3 products below threshold",
	})
	require.NoError(t, err)

	alerts, err := repo.ListForAdmins(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Empty(t, provider.sent)
}

func TestNotifyCustomerPersistsAlertOnly(t *testing.T) {
	svc, provider, repo := newTestService(t)

	err := svc.NotifyCustomer(context.Background(), domain.CustomerAlert{
		CustomerID: 7,
		OrderID:    1001,
		Status:     "Processing",
		Message:    "your payment for order 1001 was received",
	})
	require.NoError(t, err)

	alerts, err := repo.ListForCustomer(context.Background(), snowflake.ID(7), false)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, snowflake.ID(1001), alerts[0].OrderID)
	require.Empty(t, provider.sent)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "NGN 5000.00", formatAmount(500000, "NGN"))
	require.Equal(t, "NGN 0.05", formatAmount(5, "NGN"))
	require.Equal(t, "NGN -12.50", formatAmount(-1250, "NGN"))
}
