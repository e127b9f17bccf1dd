package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PayPalClient wraps the PayPal Orders v2 API with client-credentials auth.
type PayPalClient struct {
	BaseURL    string
	ClientID   string
	Secret     string
	HTTPClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalClient(baseURL, clientID, secret string, timeout time.Duration) *PayPalClient {
	return &PayPalClient{
		BaseURL:    baseURL,
		ClientID:   clientID,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type PayPalOrder struct {
	ID        string
	Status    string
	CustomID  string
	Amount    float64
	Currency  string
	CaptureID string
}

type paypalOrderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Amount   struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (c *PayPalClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.Secret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payments: paypal token status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tok); err != nil {
		return "", fmt.Errorf("payments: decode token: %w", err)
	}
	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

// CreateOrder creates an order carrying the wallet reference as custom_id and
// returns the approval URL the user is redirected to.
func (c *PayPalClient) CreateOrder(ctx context.Context, reference string, usd float64) (orderID, approveURL string, err error) {
	tok, err := c.token(ctx)
	if err != nil {
		return "", "", err
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"custom_id": reference,
			"amount": map[string]string{
				"currency_code": "USD",
				"value":         fmt.Sprintf("%.2f", usd),
			},
		}},
	}
	var out paypalOrderResponse
	err = doJSON(ctx, c.HTTPClient, http.MethodPost, c.BaseURL+"/v2/checkout/orders", map[string]string{
		"Authorization":     "Bearer " + tok,
		"PayPal-Request-Id": uuid.New().String(),
	}, body, &out)
	if err != nil {
		return "", "", err
	}
	for _, l := range out.Links {
		if l.Rel == "approve" {
			approveURL = l.Href
		}
	}
	return out.ID, approveURL, nil
}

// GetOrder fetches an order; the embedded reference is read from the
// provider-side custom_id, never from the client-supplied body.
func (c *PayPalClient) GetOrder(ctx context.Context, orderID string) (*PayPalOrder, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	var out paypalOrderResponse
	err = doJSON(ctx, c.HTTPClient, http.MethodGet, c.BaseURL+"/v2/checkout/orders/"+orderID,
		map[string]string{"Authorization": "Bearer " + tok}, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.toOrder()
}

// CaptureOrder captures an approved order.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*PayPalOrder, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	var out paypalOrderResponse
	err = doJSON(ctx, c.HTTPClient, http.MethodPost, c.BaseURL+"/v2/checkout/orders/"+orderID+"/capture", map[string]string{
		"Authorization":     "Bearer " + tok,
		"PayPal-Request-Id": uuid.New().String(),
	}, struct{}{}, &out)
	if err != nil {
		return nil, err
	}
	return out.toOrder()
}

func (r *paypalOrderResponse) toOrder() (*PayPalOrder, error) {
	o := &PayPalOrder{ID: r.ID, Status: r.Status}
	if len(r.PurchaseUnits) > 0 {
		pu := r.PurchaseUnits[0]
		o.CustomID = pu.CustomID
		o.Currency = pu.Amount.CurrencyCode
		if pu.Amount.Value != "" {
			amt, err := strconv.ParseFloat(pu.Amount.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("payments: paypal amount %q: %w", pu.Amount.Value, err)
			}
			o.Amount = amt
		}
		if len(pu.Payments.Captures) > 0 {
			o.CaptureID = pu.Payments.Captures[0].ID
		}
	}
	return o, nil
}
