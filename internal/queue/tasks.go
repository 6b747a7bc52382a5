package queue

import (
	"crypto/sha256"
	"encoding/hex"
)

// Queue names. Each gets its own worker pool with its own concurrency.
const (
	QueuePayments = "payments"
	QueueEmail    = "email"
	QueueAdmin    = "admin"
	QueueUser     = "user"
)

// Task type names, switched on exhaustively by the workers.
const (
	TypeVerifyPayment = "payment:verify"
	TypePaymentEvent  = "payment:event"

	TypeOrderStatusEmail     = "email:order_status"
	TypePaymentSuccessEmail  = "email:payment_success"
	TypePaymentFailedEmail   = "email:payment_failed"
	TypePaymentRefundedEmail = "email:payment_refunded"

	TypeAdminNewOrder        = "admin:new_order"
	TypeAdminPaymentReceived = "admin:payment_received"
	TypeAdminPaymentFailed   = "admin:payment_failed"
	TypeAdminLowStock        = "admin:low_stock"

	TypeUserOrderStatus = "user:order_status"
)

type VerifyPaymentPayload struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
}

type PaymentEventPayload struct {
	Provider  string `json:"provider"`
	EventType string `json:"event_type"`
	EventID   string `json:"event_id"`
	Reference string `json:"reference"`
	OrderID   int64  `json:"order_id,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

type OrderStatusEmailPayload struct {
	OrderID int64  `json:"order_id"`
	Email   string `json:"email"`
	Status  string `json:"status"`
}

type PaymentEmailPayload struct {
	OrderID  int64  `json:"order_id"`
	Email    string `json:"email"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason,omitempty"`
}

type AdminAlertPayload struct {
	Kind      string `json:"kind"`
	OrderID   int64  `json:"order_id,omitempty"`
	Reference string `json:"reference,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Message   string `json:"message"`
}

type UserAlertPayload struct {
	CustomerID int64  `json:"customer_id"`
	OrderID    int64  `json:"order_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// TaskID derives the queue-level job identity from a semantic dedup key, so
// redelivery of the same logical event collapses onto one queue record.
func TaskID(dedupKey string) string {
	sum := sha256.Sum256([]byte(dedupKey))
	return hex.EncodeToString(sum[:])
}
