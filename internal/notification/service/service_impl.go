package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/bwmarrin/snowflake"
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/notification/domain"
	"github.com/kolamart/kolamart/internal/notification/email"
	"github.com/kolamart/kolamart/internal/observability/metrics"
	"go.uber.org/zap"
)

var templates = template.Must(template.New("notifications").Parse(`
{{define "order_status"}}
<p>Hello,</p>
<p>Your order <strong>#{{.OrderID}}</strong> is now <strong>{{.Status}}</strong>.</p>
<p>Thank you for shopping with Kolamart.</p>
{{end}}

{{define "payment_success"}}
<p>Hello,</p>
<p>We received your payment of <strong>{{.AmountDisplay}}</strong> for order <strong>#{{.OrderID}}</strong>.</p>
<p>We are preparing your order now.</p>
{{end}}

{{define "payment_failed"}}
<p>Hello,</p>
<p>Your payment of <strong>{{.AmountDisplay}}</strong> for order <strong>#{{.OrderID}}</strong> did not go through.</p>
{{if .Reason}}<p>The provider said: {{.Reason}}</p>{{end}}
<p>No money left your account for this attempt. You can retry from your order page.</p>
{{end}}

{{define "payment_refunded"}}
<p>Hello,</p>
<p>Your payment of <strong>{{.AmountDisplay}}</strong> for order <strong>#{{.OrderID}}</strong> has been refunded.</p>
<p>Refunds usually reach your account within a few business days.</p>
{{end}}

{{define "admin_alert"}}
<p>{{.Message}}</p>
{{if .Reference}}<p>Reference: {{.Reference}}</p>{{end}}
{{end}}
`))

type service struct {
	provider email.Provider
	alerts   domain.Repository
	genID    *snowflake.Node
	metrics  *metrics.Metrics
	log      *zap.Logger

	adminEmails []string
}

func NewService(
	provider email.Provider,
	alerts domain.Repository,
	genID *snowflake.Node,
	m *metrics.Metrics,
	cfg config.Config,
	log *zap.Logger,
) domain.Service {
	return &service{
		provider:    provider,
		alerts:      alerts,
		genID:       genID,
		metrics:     m,
		log:         log.Named("notification.service"),
		adminEmails: cfg.AdminEmails,
	}
}

type emailData struct {
	OrderID       int64
	Status        string
	AmountDisplay string
	Reason        string
	Reference     string
	Message       string
}

func (s *service) SendOrderStatusEmail(ctx context.Context, msg domain.OrderStatusEmail) error {
	subject := fmt.Sprintf("Order #%d is %s", msg.OrderID, msg.Status)
	return s.sendEmail(ctx, []string{msg.Email}, subject, "order_status", emailData{
		OrderID: msg.OrderID,
		Status:  msg.Status,
	})
}

func (s *service) SendPaymentSuccessEmail(ctx context.Context, msg domain.PaymentEmail) error {
	subject := fmt.Sprintf("Payment received for order #%d", msg.OrderID)
	return s.sendEmail(ctx, []string{msg.Email}, subject, "payment_success", emailData{
		OrderID:       msg.OrderID,
		AmountDisplay: formatAmount(msg.Amount, msg.Currency),
	})
}

func (s *service) SendPaymentFailedEmail(ctx context.Context, msg domain.PaymentEmail) error {
	subject := fmt.Sprintf("Payment failed for order #%d", msg.OrderID)
	return s.sendEmail(ctx, []string{msg.Email}, subject, "payment_failed", emailData{
		OrderID:       msg.OrderID,
		AmountDisplay: formatAmount(msg.Amount, msg.Currency),
		Reason:        msg.Reason,
	})
}

func (s *service) SendPaymentRefundedEmail(ctx context.Context, msg domain.PaymentEmail) error {
	subject := fmt.Sprintf("Refund issued for order #%d", msg.OrderID)
	return s.sendEmail(ctx, []string{msg.Email}, subject, "payment_refunded", emailData{
		OrderID:       msg.OrderID,
		AmountDisplay: formatAmount(msg.Amount, msg.Currency),
	})
}

// NotifyAdmins persists one dashboard alert and mirrors it to the configured
// admin inboxes. A missing admin mailing list is not an error.
func (s *service) NotifyAdmins(ctx context.Context, alert domain.AdminAlert) error {
	if err := s.alerts.Create(ctx, &domain.Alert{
		ID:       s.genID.Generate(),
		Audience: domain.AudienceAdmin,
		OrderID:  snowflake.ID(alert.OrderID),
		Kind:     alert.Kind,
		Message:  alert.Message,
	}); err != nil {
		return err
	}
	s.metrics.RecordNotification("admin")

	if len(s.adminEmails) == 0 {
		return nil
	}
	subject := fmt.Sprintf("[kolamart] %s", alert.Kind)
	return s.sendEmail(ctx, s.adminEmails, subject, "admin_alert", emailData{
		Message:   alert.Message,
		Reference: alert.Reference,
	})
}

func (s *service) NotifyCustomer(ctx context.Context, alert domain.CustomerAlert) error {
	if err := s.alerts.Create(ctx, &domain.Alert{
		ID:         s.genID.Generate(),
		Audience:   domain.AudienceCustomer,
		CustomerID: snowflake.ID(alert.CustomerID),
		OrderID:    snowflake.ID(alert.OrderID),
		Kind:       "order_status",
		Message:    alert.Message,
	}); err != nil {
		return err
	}
	s.metrics.RecordNotification("user")
	return nil
}

func (s *service) sendEmail(ctx context.Context, to []string, subject, tmpl string, data emailData) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	if err := s.provider.Send(ctx, to, subject, body.String()); err != nil {
		return err
	}
	s.metrics.RecordNotification("email")
	s.log.Debug("email sent", zap.String("template", tmpl), zap.String("subject", subject))
	return nil
}

// formatAmount renders minor units as a major-unit money string.
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, minor/100, minor%100)
}
