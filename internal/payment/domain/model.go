package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrInvalidPayload      = errors.New("invalid webhook payload")
	ErrEventIgnored        = errors.New("event ignored")
	ErrProviderNotFound    = errors.New("payment provider not found")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrVerifyFailed        = errors.New("payment verification failed")
	ErrVerifyPending       = errors.New("payment verification still pending")
)

// Normalized verification statuses shared by webhook events and verify calls.
const (
	VerifyStatusSuccess    = "success"
	VerifyStatusFailed     = "failed"
	VerifyStatusAbandoned  = "abandoned"
	VerifyStatusRefunded   = "refunded"
	VerifyStatusChargeback = "chargeback"
	VerifyStatusPending    = "pending"
	VerifyStatusOngoing    = "ongoing"
)

type InitializeRequest struct {
	Email       string
	Amount      int64 // minor units
	Currency    string
	CallbackURL string
	Metadata    map[string]any
}

type InitializeResponse struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

type Customer struct {
	Code      string
	FirstName string
	LastName  string
	Email     string
}

// VerifyResult is the provider's authoritative view of one payment attempt.
type VerifyResult struct {
	Status          string
	Amount          int64 // minor units
	Currency        string
	Reference       string
	TransactionID   int64
	GatewayResponse string
	PaidAt          *time.Time
	Customer        Customer
}

// WebhookEvent is the normalized envelope extracted at the ingress boundary.
// Embedded amounts are a courtesy; the worker re-verifies against the
// provider's live status endpoint.
type WebhookEvent struct {
	Provider  string
	EventType string
	EventID   string
	Reference string
	Amount    int64
	Currency  string
}

// Provider is one external payment processor: live API calls plus webhook
// authentication and envelope parsing.
type Provider interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	VerifyWebhook(payload []byte, headers http.Header) error
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}
