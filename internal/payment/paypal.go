// Package payment talks to the external payment provider. The order
// service only sees the Provider interface; the PayPal client is the
// production implementation.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider is the authorize/capture surface the checkout flow needs.
type Provider interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*ProviderOrder, error)
	Capture(ctx context.Context, ref string) (*CaptureResult, error)
}

// ProviderOrder is an authorized-but-uncaptured provider order.
type ProviderOrder struct {
	Ref        string `json:"ref"`
	ApproveURL string `json:"approve_url"`
}

// CaptureResult reports whether the provider collected the funds.
type CaptureResult struct {
	Ref       string `json:"ref"`
	Completed bool   `json:"completed"`
}

// PayPalClient drives the v2 checkout API: client-credentials token,
// create order with intent CAPTURE, capture by reference.
type PayPalClient struct {
	BaseURL  string
	ClientID string
	Secret   string
	HTTP     *http.Client
}

func NewPayPalClient(baseURL, clientID, secret string) *PayPalClient {
	return &PayPalClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		Secret:   secret,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal: token request returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("paypal: token decode failed: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("paypal: empty access token")
	}
	return out.AccessToken, nil
}

func (c *PayPalClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*ProviderOrder, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{"amount": map[string]string{
				"currency_code": currency,
				"value":         amount.StringFixed(2),
			}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal: create order failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paypal: create order returned %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("paypal: create order decode failed: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("paypal: create order returned empty id")
	}

	order := &ProviderOrder{Ref: out.ID}
	for _, l := range out.Links {
		if l.Rel == "approve" {
			order.ApproveURL = l.Href
		}
	}
	return order, nil
}

func (c *PayPalClient) Capture(ctx context.Context, ref string) (*CaptureResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v2/checkout/orders/"+url.PathEscape(ref)+"/capture", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal: capture failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paypal: capture returned %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("paypal: capture decode failed: %w", err)
	}

	return &CaptureResult{Ref: out.ID, Completed: out.Status == "COMPLETED"}, nil
}
