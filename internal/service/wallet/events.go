package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	ProviderManual        = "manual"
	ProviderCryptoInvoice = "cryptoinvoice"
	ProviderPayPal        = "paypal"
	ProviderRazorpay      = "razorpay"
)

var ErrAmountMismatch = errors.New("wallet: reported amount does not match bundle price")

// event is a provider notification normalized to the fields the credit step
// needs. reference carries the encoded wallet order reference.
type event struct {
	provider   string
	externalID string
	reference  string
	status     string
	amount     float64
	currency   string
}

// finality per provider. Anything else is an in-flight status the processor
// acknowledges without crediting.
func (e *event) final() bool {
	switch e.provider {
	case ProviderManual:
		return e.status == "paid" || e.status == "finished"
	case ProviderCryptoInvoice:
		return e.status == "finished" || e.status == "confirmed"
	case ProviderPayPal:
		return e.status == "COMPLETED"
	case ProviderRazorpay:
		return e.status == "captured"
	}
	return false
}

type manualPayload struct {
	PaymentID string  `json:"payment_id"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
}

func parseManual(body []byte) (*event, error) {
	var p manualPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("wallet: manual payload: %w", err)
	}
	if p.PaymentID == "" {
		return nil, fmt.Errorf("wallet: manual payload missing payment_id")
	}
	return &event{
		provider:   ProviderManual,
		externalID: p.PaymentID,
		reference:  p.Reference,
		status:     p.Status,
		amount:     p.Amount,
		currency:   p.Currency,
	}, nil
}

// cryptoPayload is the IPN body of the crypto invoice provider.
type cryptoPayload struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	OrderID       string      `json:"order_id"`
	PriceAmount   float64     `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
}

func parseCrypto(body []byte) (*event, error) {
	var p cryptoPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("wallet: crypto payload: %w", err)
	}
	if p.PaymentID.String() == "" {
		return nil, fmt.Errorf("wallet: crypto payload missing payment_id")
	}
	return &event{
		provider:   ProviderCryptoInvoice,
		externalID: p.PaymentID.String(),
		reference:  p.OrderID,
		status:     p.PaymentStatus,
		amount:     p.PriceAmount,
		currency:   p.PriceCurrency,
	}, nil
}

// paypalWebhook carries just enough to recover the order id; everything else
// is re-fetched from the provider before being trusted.
type paypalWebhook struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

func parsePayPalOrderID(body []byte) (string, error) {
	var p paypalWebhook
	if err := json.Unmarshal(body, &p); err != nil {
		return "", fmt.Errorf("wallet: paypal payload: %w", err)
	}
	switch p.EventType {
	case "CHECKOUT.ORDER.APPROVED", "CHECKOUT.ORDER.COMPLETED":
		return p.Resource.ID, nil
	case "PAYMENT.CAPTURE.COMPLETED":
		return p.Resource.SupplementaryData.RelatedIDs.OrderID, nil
	}
	return "", nil // event type we do not act on
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func parseRazorpayPaymentID(body []byte) (string, error) {
	var p razorpayWebhook
	if err := json.Unmarshal(body, &p); err != nil {
		return "", fmt.Errorf("wallet: razorpay payload: %w", err)
	}
	if p.Event != "payment.captured" {
		return "", nil
	}
	if p.Payload.Payment.Entity.ID == "" {
		return "", fmt.Errorf("wallet: razorpay payload missing payment id")
	}
	return p.Payload.Payment.Entity.ID, nil
}
