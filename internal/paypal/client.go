// Package paypal is a minimal PayPal REST client covering the
// client-credentials token, order creation and order capture.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/config"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrMissingCredentials = errors.New("paypal client id or secret not configured")

// UpstreamError is a non-2xx answer from PayPal. Details holds the raw response body.
type UpstreamError struct {
	Op         string
	StatusCode int
	Details    json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("paypal %s failed with status %d", e.Op, e.StatusCode)
}

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	tokenTimeout time.Duration
	orderTimeout time.Duration
	httpClient   *http.Client
}

func NewClient(cfg config.PayPal) *Client {
	if cfg.TokenTimeout <= 0 {
		cfg.TokenTimeout = 15 * time.Second
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 20 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenTimeout: cfg.TokenTimeout,
		orderTimeout: cfg.OrderTimeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "paypal " + r.Method + " " + r.URL.Path
				}),
			),
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken runs the client-credentials grant. Tokens are not cached.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrMissingCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, c.tokenTimeout)
	defer cancel()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out tokenResponse
	if _, err := c.do(req, "token", &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("paypal token: empty access_token in response")
	}
	return out.AccessToken, nil
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount amount `json:"amount"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) CreateOrder(ctx context.Context, token string, total decimal.Decimal, currency string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.orderTimeout)
	defer cancel()

	body, err := json.Marshal(createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amount{CurrencyCode: currency, Value: total.StringFixed(2)},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := c.jsonRequest(ctx, token, c.baseURL+"/v2/checkout/orders", body)
	if err != nil {
		return nil, err
	}

	var out Order
	if _, err := c.do(req, "create order", &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("paypal create order: missing id in response")
	}
	return &out, nil
}

// Capture is the parsed subset of a capture response plus the raw JSON.
type Capture struct {
	ID         string
	Status     string
	PayerEmail string
	Amount     decimal.Decimal
	Currency   string
	Raw        json.RawMessage
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount amount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (c *Client) CaptureOrder(ctx context.Context, token, orderID string) (*Capture, error) {
	ctx, cancel := context.WithTimeout(ctx, c.orderTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, url.PathEscape(orderID))
	req, err := c.jsonRequest(ctx, token, endpoint, []byte("{}"))
	if err != nil {
		return nil, err
	}

	var out captureResponse
	raw, err := c.do(req, "capture order", &out)
	if err != nil {
		return nil, err
	}

	capture := &Capture{
		ID:         out.ID,
		Status:     out.Status,
		PayerEmail: out.Payer.EmailAddress,
		Raw:        raw,
	}
	for _, pu := range out.PurchaseUnits {
		for _, cp := range pu.Payments.Captures {
			v, err := decimal.NewFromString(cp.Amount.Value)
			if err != nil {
				continue
			}
			capture.Amount = capture.Amount.Add(v)
			if capture.Currency == "" {
				capture.Currency = cp.Amount.CurrencyCode
			}
		}
	}
	return capture, nil
}

func (c *Client) jsonRequest(ctx context.Context, token, endpoint string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx body into out. Non-2xx answers become *UpstreamError.
func (c *Client) do(req *http.Request, op string, out any) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("paypal %s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		details := json.RawMessage(raw)
		if !json.Valid(raw) {
			quoted, _ := json.Marshal(string(raw))
			details = quoted
		}
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Details: details}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("paypal %s: decode response: %w", op, err)
	}
	return raw, nil
}
