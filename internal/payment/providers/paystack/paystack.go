package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kolamart/kolamart/internal/payment/domain"
)

const (
	ProviderName    = "paystack"
	SignatureHeader = "X-Paystack-Signature"

	defaultBaseURL = "https://api.paystack.co"
)

type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

type Provider struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func New(cfg Config) *Provider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		secretKey: strings.TrimSpace(cfg.SecretKey),
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return ProviderName }

// VerifyWebhook authenticates the raw request bytes against the
// X-Paystack-Signature header (HMAC-SHA512 with the account secret key).
func (p *Provider) VerifyWebhook(payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(SignatureHeader))
	if signature == "" || p.secretKey == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, []byte(p.secretKey))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// ParseWebhook extracts the normalized event type and payment reference.
// Statuses embedded in the payload are ignored downstream; the worker calls
// Verify for the authoritative state.
func (p *Provider) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(envelope.Data.Reference) == "" {
		return nil, domain.ErrInvalidPayload
	}

	var eventType string
	switch strings.TrimSpace(envelope.Event) {
	case "charge.success":
		eventType = domain.VerifyStatusSuccess
	case "charge.failed":
		eventType = domain.VerifyStatusFailed
	case "refund.processed":
		eventType = domain.VerifyStatusRefunded
	case "charge.dispute.create", "charge.dispute.resolve":
		eventType = domain.VerifyStatusChargeback
	default:
		return nil, domain.ErrEventIgnored
	}

	return &domain.WebhookEvent{
		Provider:  ProviderName,
		EventType: eventType,
		EventID:   fmt.Sprintf("%d", envelope.Data.ID),
		Reference: envelope.Data.Reference,
		Amount:    envelope.Data.Amount,
		Currency:  strings.ToUpper(envelope.Data.Currency),
	}, nil
}

type initializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (p *Provider) Initialize(ctx context.Context, req domain.InitializeRequest) (*domain.InitializeResponse, error) {
	body := initializeRequest{
		Email:       req.Email,
		Amount:      req.Amount,
		Currency:    strings.ToUpper(req.Currency),
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	var out initializeResponse
	if err := p.post(ctx, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("paystack initialize rejected: %s", out.Message)
	}

	return &domain.InitializeResponse{
		Reference:        out.Data.Reference,
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID              int64  `json:"id"`
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int64  `json:"amount"`
		Currency        string `json:"currency"`
		GatewayResponse string `json:"gateway_response"`
		PaidAt          string `json:"paid_at"`
		Customer        struct {
			CustomerCode string `json:"customer_code"`
			FirstName    string `json:"first_name"`
			LastName     string `json:"last_name"`
			Email        string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

func (p *Provider) Verify(ctx context.Context, reference string) (*domain.VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.ErrVerifyFailed
	}

	var out verifyResponse
	if err := p.get(ctx, "/transaction/verify/"+reference, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("%w: %s", domain.ErrVerifyFailed, out.Message)
	}

	result := &domain.VerifyResult{
		Status:          normalizeStatus(out.Data.Status),
		Amount:          out.Data.Amount,
		Currency:        strings.ToUpper(out.Data.Currency),
		Reference:       out.Data.Reference,
		TransactionID:   out.Data.ID,
		GatewayResponse: out.Data.GatewayResponse,
		Customer: domain.Customer{
			Code:      out.Data.Customer.CustomerCode,
			FirstName: out.Data.Customer.FirstName,
			LastName:  out.Data.Customer.LastName,
			Email:     out.Data.Customer.Email,
		},
	}
	if out.Data.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, out.Data.PaidAt); err == nil {
			paidAt = paidAt.UTC()
			result.PaidAt = &paidAt
		}
	}
	return result, nil
}

func normalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success":
		return domain.VerifyStatusSuccess
	case "failed":
		return domain.VerifyStatusFailed
	case "abandoned":
		return domain.VerifyStatusAbandoned
	case "reversed":
		return domain.VerifyStatusRefunded
	case "ongoing", "processing", "queued":
		return domain.VerifyStatusOngoing
	default:
		return domain.VerifyStatusPending
	}
}

func (p *Provider) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p *Provider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	return p.do(req, out)
}

func (p *Provider) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("paystack request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}
