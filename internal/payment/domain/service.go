package domain

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
)

// Reconciliation outcomes, labelled on metrics and returned to callers.
const (
	OutcomeMarkedPaid  = "paid"
	OutcomeAlreadyPaid = "already_paid"
	OutcomeFailed      = "failed"
	OutcomeRefunded    = "refunded"
	OutcomeLedgerOnly  = "ledger_only"
	OutcomeMismatch    = "mismatch"
	OutcomeIgnored     = "ignored"
)

type InitializePaymentRequest struct {
	OrderID  snowflake.ID `json:"order_id"`
	Provider string       `json:"provider"`
}

type InitializePaymentResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// ReconcileResult reports what one reconciliation run did to the order.
type ReconcileResult struct {
	Outcome   string
	OrderID   snowflake.ID
	Reference string
}

// PollResult is the customer-facing payment status snapshot.
type PollResult struct {
	OrderID       snowflake.ID `json:"order_id"`
	Paid          bool         `json:"paid"`
	PaymentStatus string       `json:"payment_status"`
	OrderStatus   string       `json:"order_status"`
}

// Service drives payment attempts and reconciles provider truth into orders.
// Reconcile is safe to call repeatedly for the same reference; callers that
// need at-most-once side effects wrap it in the idempotency store.
type Service interface {
	Initialize(ctx context.Context, req InitializePaymentRequest) (*InitializePaymentResponse, error)
	// IngestWebhook authenticates a raw webhook delivery, normalizes it, and
	// queues the reconciliation work. It never processes the event inline;
	// the provider must get its 200 back fast.
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
	Reconcile(ctx context.Context, provider, reference string) (*ReconcileResult, error)
	VerifyPoll(ctx context.Context, provider, reference string) (*PollResult, error)
}
