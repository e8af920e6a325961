package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable is returned when the gateway cannot be reached or answers
// with a server error. Callers may retry; no local state is left behind.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Config holds payment gateway configuration
type Config struct {
	BaseURL       string
	MerchantID    string
	SigningSecret string // shared secret for confirmation signatures
	Timeout       time.Duration
}

// Client talks to the external payment gateway
type Client struct {
	config Config
	http   *http.Client
}

// CreateIntentRequest represents a payment intent creation request
type CreateIntentRequest struct {
	Amount      int64  // checkout amount, settlement currency units
	Currency    string
	Description string
	ReturnURL   string
}

// CreateIntentResponse represents a payment intent creation response
type CreateIntentResponse struct {
	OrderRef   string `json:"order_ref"`   // gateway's opaque order identifier
	PaymentURL string `json:"payment_url"` // checkout URL for the payer
}

// NewClient creates a new gateway client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: timeout},
	}
}

// CreateIntent registers a payment intent with the gateway and returns its
// opaque order reference. Any transport failure or gateway-side error maps to
// ErrUnavailable so the caller can retry without ambiguity.
func (c *Client) CreateIntent(ctx context.Context, req CreateIntentRequest) (*CreateIntentResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(c.config.MerchantID) == "" {
		return nil, fmt.Errorf("gateway config error: merchant_id is empty")
	}

	body, err := json.Marshal(map[string]interface{}{
		"merchant_id": c.config.MerchantID,
		"amount":      req.Amount,
		"currency":    req.Currency,
		"description": req.Description,
		"return_url":  req.ReturnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to encode intent request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/v1/intents"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to build intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway: intent rejected with status %d", resp.StatusCode)
	}

	var out CreateIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: malformed intent response: %v", ErrUnavailable, err)
	}
	if out.OrderRef == "" {
		return nil, fmt.Errorf("%w: intent response missing order_ref", ErrUnavailable)
	}

	return &out, nil
}

// SigningSecret exposes the shared confirmation secret for verifiers.
func (c *Client) SigningSecret() string {
	return c.config.SigningSecret
}
