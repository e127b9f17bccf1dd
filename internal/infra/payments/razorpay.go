package payments

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"
)

// RazorpayClient wraps the Razorpay REST API with key-id/secret basic auth.
type RazorpayClient struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	HTTPClient *http.Client
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	return &RazorpayClient{
		BaseURL:    baseURL,
		KeyID:      keyID,
		KeySecret:  keySecret,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *RazorpayClient) authHeader() map[string]string {
	basic := base64.StdEncoding.EncodeToString([]byte(c.KeyID + ":" + c.KeySecret))
	return map[string]string{"Authorization": "Basic " + basic}
}

type RazorpayOrder struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"` // paise
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

type RazorpayPayment struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Amount   int64             `json:"amount"` // paise
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Captured bool              `json:"captured"`
	Notes    map[string]string `json:"notes"`
}

// CreateOrder creates an order with the wallet reference in notes.
func (c *RazorpayClient) CreateOrder(ctx context.Context, reference string, usd float64) (*RazorpayOrder, error) {
	body := map[string]any{
		"amount":   int64(usd * 100),
		"currency": "USD",
		"receipt":  reference,
		"notes":    map[string]string{"reference": reference},
	}
	var out RazorpayOrder
	if err := doJSON(ctx, c.HTTPClient, http.MethodPost, c.BaseURL+"/orders", c.authHeader(), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPayment fetches the payment entity; the embedded reference comes from
// its provider-side notes, not from the webhook body.
func (c *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*RazorpayPayment, error) {
	var out RazorpayPayment
	if err := doJSON(ctx, c.HTTPClient, http.MethodGet, c.BaseURL+"/payments/"+paymentID, c.authHeader(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
