// Package payment talks to the card payment provider's intent API.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no provider key is set.
var ErrNotConfigured = errors.New("payment provider is not configured")

// Intent is the provider's view of one payment.
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
}

// Succeeded reports whether the provider captured the payment.
func (i *Intent) Succeeded() bool { return i.Status == "succeeded" }

// APIError is a non-2xx provider response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment provider: %d %s", e.Status, e.Message)
}

// Client creates and fetches payment intents. Requests are form encoded and
// authenticated with the secret key as a bearer token.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// New returns a Client. An empty key makes every call fail with ErrNotConfigured.
func New(baseURL, secretKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     secretKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateIntent starts a payment of amount (smallest currency unit).
func (c *Client) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	return c.do(ctx, http.MethodPost, "/v1/payment_intents", strings.NewReader(form.Encode()))
}

// GetIntent fetches the current state of an intent.
func (c *Client) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if id == "" {
		return nil, errors.New("payment intent id is empty")
	}
	return c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*Intent, error) {
	if c.key == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, &APIError{Status: resp.StatusCode, Message: e.Error.Message}
	}

	var in Intent
	if err := json.NewDecoder(resp.Body).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &in, nil
}
