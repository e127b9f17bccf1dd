package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// CryptoClient talks to the crypto invoice provider (NOWPayments-style API).
type CryptoClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewCryptoClient(baseURL, apiKey string, timeout time.Duration) *CryptoClient {
	return &CryptoClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type CryptoInvoice struct {
	ID            string  `json:"id"`
	OrderID       string  `json:"order_id"`
	InvoiceURL    string  `json:"invoice_url"`
	PriceAmount   float64 `json:"price_amount,string"`
	PriceCurrency string  `json:"price_currency"`
}

type CryptoPayment struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	OrderID       string      `json:"order_id"`
	PriceAmount   float64     `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
}

// CreateInvoice creates a hosted invoice carrying our order reference.
func (c *CryptoClient) CreateInvoice(ctx context.Context, orderRef string, usd float64, description string) (*CryptoInvoice, error) {
	req := map[string]any{
		"price_amount":      usd,
		"price_currency":    "usd",
		"order_id":          orderRef,
		"order_description": description,
	}
	var inv CryptoInvoice
	err := doJSON(ctx, c.HTTPClient, http.MethodPost, c.BaseURL+"/invoice",
		map[string]string{"x-api-key": c.APIKey}, req, &inv)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetPaymentStatus fetches the provider-side status for a payment id. Used as
// the trust anchor when no IPN secret is configured.
func (c *CryptoClient) GetPaymentStatus(ctx context.Context, paymentID string) (*CryptoPayment, error) {
	var p CryptoPayment
	err := doJSON(ctx, c.HTTPClient, http.MethodGet, c.BaseURL+"/payment/"+paymentID,
		map[string]string{"x-api-key": c.APIKey}, nil, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
