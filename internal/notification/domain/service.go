package domain

import "context"

type OrderStatusEmail struct {
	OrderID int64
	Email   string
	Status  string
}

type PaymentEmail struct {
	OrderID  int64
	Email    string
	Amount   int64
	Currency string
	Reason   string
}

type AdminAlert struct {
	Kind      string
	OrderID   int64
	Reference string
	Amount    int64
	Currency  string
	Message   string
}

type CustomerAlert struct {
	CustomerID int64
	OrderID    int64
	Status     string
	Message    string
}

// Service renders and delivers notifications. Every method is safe to retry;
// delivery-level dedup is the queue's job, not the dispatcher's.
type Service interface {
	SendOrderStatusEmail(ctx context.Context, msg OrderStatusEmail) error
	SendPaymentSuccessEmail(ctx context.Context, msg PaymentEmail) error
	SendPaymentFailedEmail(ctx context.Context, msg PaymentEmail) error
	SendPaymentRefundedEmail(ctx context.Context, msg PaymentEmail) error
	NotifyAdmins(ctx context.Context, alert AdminAlert) error
	NotifyCustomer(ctx context.Context, alert CustomerAlert) error
}
