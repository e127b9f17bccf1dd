// Package wallet processes payment-provider notifications into idempotent
// ledger credits, and creates the provider orders those notifications settle.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	dwallet "github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/metrics"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/payments"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store"
)

// Headers the providers sign their webhook bodies under.
const (
	cryptoSigHeader   = "x-nowpayments-sig"
	razorpaySigHeader = "X-Razorpay-Signature"
)

type CryptoAPI interface {
	CreateInvoice(ctx context.Context, orderRef string, usd float64, description string) (*payments.CryptoInvoice, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*payments.CryptoPayment, error)
}

type PayPalAPI interface {
	CreateOrder(ctx context.Context, reference string, usd float64) (orderID, approveURL string, err error)
	GetOrder(ctx context.Context, orderID string) (*payments.PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*payments.PayPalOrder, error)
}

type RazorpayAPI interface {
	CreateOrder(ctx context.Context, reference string, usd float64) (*payments.RazorpayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*payments.RazorpayPayment, error)
}

type Recorder interface {
	Record(ctx context.Context, eventType, status string, externalRef *string, payload map[string]any) error
}

type Alerter interface {
	Notify(ctx context.Context, text string)
}

type Secrets struct {
	CryptoIPNSecret       string
	RazorpayWebhookSecret string
}

type Processor struct {
	store     store.Store
	bundles   *dwallet.Bundles
	secrets   Secrets
	crypto    CryptoAPI
	paypal    PayPalAPI
	razorpay  RazorpayAPI
	rdb       *redis.Client
	analytics Recorder
	alerts    Alerter
	log       *slog.Logger
}

func NewProcessor(st store.Store, bundles *dwallet.Bundles, secrets Secrets,
	crypto CryptoAPI, paypal PayPalAPI, razorpay RazorpayAPI,
	rdb *redis.Client, analytics Recorder, alerts Alerter, log *slog.Logger) *Processor {
	return &Processor{
		store:     st,
		bundles:   bundles,
		secrets:   secrets,
		crypto:    crypto,
		paypal:    paypal,
		razorpay:  razorpay,
		rdb:       rdb,
		analytics: analytics,
		alerts:    alerts,
		log:       log,
	}
}

// Receipt reports what a notification did to the ledger.
type Receipt struct {
	Provider   string
	ExternalID string
	Username   string
	Credits    int
	Applied    bool
	Duplicate  bool
}

// HandleWebhook verifies and applies one provider notification. Business
// rejections (bad reference, amount mismatch, unknown bundle) are flagged and
// swallowed by the HTTP layer; only ErrInvalidSignature and provider
// unavailability surface as non-success to the sender.
func (p *Processor) HandleWebhook(ctx context.Context, provider string, body []byte, headers http.Header) (*Receipt, error) {
	var (
		ev  *event
		err error
	)
	switch provider {
	case ProviderManual:
		ev, err = parseManual(body)
	case ProviderCryptoInvoice:
		ev, err = p.cryptoEvent(ctx, body, headers)
	case ProviderPayPal:
		return p.paypalWebhook(ctx, body)
	case ProviderRazorpay:
		ev, err = p.razorpayEvent(ctx, body, headers)
	default:
		return nil, fmt.Errorf("wallet: unknown provider %q", provider)
	}
	if err != nil {
		p.flagRejected(ctx, provider, "", err)
		return nil, err
	}
	if ev == nil {
		// event type we do not act on
		metrics.WebhooksTotal.WithLabelValues(provider, "ignored").Inc()
		return &Receipt{Provider: provider}, nil
	}
	return p.settle(ctx, ev)
}

// cryptoEvent verifies the IPN signature when a secret is configured;
// otherwise it falls back to querying the provider's status API before
// trusting anything in the body.
func (p *Processor) cryptoEvent(ctx context.Context, body []byte, headers http.Header) (*event, error) {
	if p.secrets.CryptoIPNSecret != "" {
		if err := verifySHA512(p.secrets.CryptoIPNSecret, body, headers.Get(cryptoSigHeader)); err != nil {
			return nil, err
		}
		return parseCrypto(body)
	}

	claimed, err := parseCrypto(body)
	if err != nil {
		return nil, err
	}
	status, err := p.crypto.GetPaymentStatus(ctx, claimed.externalID)
	if err != nil {
		return nil, err
	}
	return &event{
		provider:   ProviderCryptoInvoice,
		externalID: status.PaymentID.String(),
		reference:  status.OrderID,
		status:     status.PaymentStatus,
		amount:     status.PriceAmount,
		currency:   status.PriceCurrency,
	}, nil
}

// razorpayEvent verifies the webhook HMAC, then fetches the payment entity so
// the reference comes from provider-side notes, not the client body.
func (p *Processor) razorpayEvent(ctx context.Context, body []byte, headers http.Header) (*event, error) {
	if err := verifySHA256(p.secrets.RazorpayWebhookSecret, body, headers.Get(razorpaySigHeader)); err != nil {
		return nil, err
	}
	paymentID, err := parseRazorpayPaymentID(body)
	if err != nil {
		return nil, err
	}
	if paymentID == "" {
		return nil, nil
	}
	pay, err := p.razorpay.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &event{
		provider:   ProviderRazorpay,
		externalID: pay.ID,
		reference:  pay.Notes["reference"],
		status:     pay.Status,
		amount:     float64(pay.Amount) / 100,
		currency:   pay.Currency,
	}, nil
}

func (p *Processor) paypalWebhook(ctx context.Context, body []byte) (*Receipt, error) {
	orderID, err := parsePayPalOrderID(body)
	if err != nil {
		p.flagRejected(ctx, ProviderPayPal, "", err)
		return nil, err
	}
	if orderID == "" {
		metrics.WebhooksTotal.WithLabelValues(ProviderPayPal, "ignored").Inc()
		return &Receipt{Provider: ProviderPayPal}, nil
	}
	return p.CapturePayPal(ctx, orderID)
}

// CapturePayPal fetches the order from PayPal, captures it if still only
// approved, and applies the credit. Both the webhook and the user-initiated
// capture endpoint land here, sharing the order id as journal key.
func (p *Processor) CapturePayPal(ctx context.Context, orderID string) (*Receipt, error) {
	order, err := p.paypal.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == "APPROVED" {
		order, err = p.paypal.CaptureOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
	}
	return p.settle(ctx, &event{
		provider:   ProviderPayPal,
		externalID: order.ID,
		reference:  order.CustomID,
		status:     order.Status,
		amount:     order.Amount,
		currency:   order.Currency,
	})
}

// settle maps the normalized event onto the ledger: decode reference, check
// the bundle price, then credit exactly once under the journal key.
func (p *Processor) settle(ctx context.Context, ev *event) (*Receipt, error) {
	if !ev.final() {
		p.log.Info("webhook not final, acknowledged", "provider", ev.provider, "external_id", ev.externalID, "status", ev.status)
		metrics.WebhooksTotal.WithLabelValues(ev.provider, "pending").Inc()
		return &Receipt{Provider: ev.provider, ExternalID: ev.externalID}, nil
	}

	ref, err := dwallet.ParseReference(ev.reference)
	if err != nil {
		p.flagRejected(ctx, ev.provider, ev.externalID, err)
		return nil, err
	}
	bundle, err := p.bundles.Get(ref.BundleID)
	if err != nil {
		p.flagRejected(ctx, ev.provider, ev.externalID, err)
		return nil, err
	}
	// bundles are priced in USD; a matching number in another currency is
	// still the wrong amount
	if ev.currency != "" && !strings.EqualFold(ev.currency, "USD") {
		err := fmt.Errorf("%w: currency %q, want USD", ErrAmountMismatch, ev.currency)
		p.flagRejected(ctx, ev.provider, ev.externalID, err)
		return nil, err
	}
	if math.Abs(ev.amount-bundle.USD) > 0.01 {
		err := fmt.Errorf("%w: got %.2f, want %.2f", ErrAmountMismatch, ev.amount, bundle.USD)
		p.flagRejected(ctx, ev.provider, ev.externalID, err)
		return nil, err
	}

	journalKey := ev.provider + ":" + ev.externalID
	if p.seenInCache(ctx, journalKey) {
		metrics.WebhooksTotal.WithLabelValues(ev.provider, "duplicate").Inc()
		return &Receipt{Provider: ev.provider, ExternalID: ev.externalID, Username: ref.Username, Duplicate: true}, nil
	}

	receipt := &Receipt{Provider: ev.provider, ExternalID: ev.externalID, Username: ref.Username, Credits: bundle.Credits}
	err = p.store.InTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetByUsernameForUpdate(ctx, ref.Username)
		if err != nil {
			return err
		}

		fresh, err := tx.Journal().Insert(ctx, &dwallet.PaymentEvent{
			Provider:   ev.provider,
			ExternalID: ev.externalID,
			Username:   ref.Username,
			BundleID:   ref.BundleID,
			USDAmount:  bundle.USD,
			Credits:    bundle.Credits,
			Status:     ev.status,
		})
		if err != nil {
			return err
		}
		if !fresh {
			receipt.Duplicate = true
			return nil
		}
		if err := tx.Users().AddCredits(ctx, user.ID, bundle.Credits); err != nil {
			return err
		}
		receipt.Applied = true

		tx.AfterCommit(func(ctx context.Context) {
			p.markSeen(ctx, journalKey)
			metrics.WebhooksTotal.WithLabelValues(ev.provider, "credited").Inc()
			metrics.CreditsGranted.WithLabelValues(ev.provider).Add(float64(bundle.Credits))
			if p.analytics != nil {
				extRef := journalKey
				if err := p.analytics.Record(ctx, "wallet_credited", "success", &extRef, map[string]any{
					"username": ref.Username,
					"bundle":   ref.BundleID,
					"credits":  bundle.Credits,
					"usd":      bundle.USD,
				}); err != nil {
					p.log.Error("analytics record failed", "err", err)
				}
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if receipt.Duplicate {
		metrics.WebhooksTotal.WithLabelValues(ev.provider, "duplicate").Inc()
	}
	return receipt, nil
}

func (p *Processor) seenInCache(ctx context.Context, key string) bool {
	if p.rdb == nil {
		return false
	}
	n, err := p.rdb.Exists(ctx, "wallet:evt:"+key).Result()
	return err == nil && n > 0
}

// markSeen is only called after a successful commit, so a crashed credit
// never poisons the replay cache.
func (p *Processor) markSeen(ctx context.Context, key string) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.Set(ctx, "wallet:evt:"+key, 1, 72*time.Hour).Err(); err != nil {
		p.log.Warn("replay cache set failed", "key", key, "err", err)
	}
}

func (p *Processor) flagRejected(ctx context.Context, provider, externalID string, cause error) {
	p.log.Warn("webhook rejected", "provider", provider, "external_id", externalID, "err", cause)
	metrics.WebhooksTotal.WithLabelValues(provider, "rejected").Inc()
	if p.analytics != nil {
		var extRef *string
		if externalID != "" {
			s := provider + ":" + externalID
			extRef = &s
		}
		if err := p.analytics.Record(ctx, "wallet_webhook", "rejected", extRef, map[string]any{
			"provider": provider,
			"cause":    cause.Error(),
		}); err != nil {
			p.log.Error("analytics record failed", "err", err)
		}
	}
	if p.alerts != nil {
		p.alerts.Notify(ctx, fmt.Sprintf("wallet webhook rejected (%s): %v", provider, cause))
	}
}

// TopUpOrder is the provider-side order created for a wallet top-up.
type TopUpOrder struct {
	Provider   string
	Reference  string
	OrderID    string
	PaymentURL string
}

// CreateTopUpOrder creates the provider order that, once paid, comes back
// through HandleWebhook with the same reference.
func (p *Processor) CreateTopUpOrder(ctx context.Context, provider, username, bundleID string) (*TopUpOrder, error) {
	bundle, err := p.bundles.Get(bundleID)
	if err != nil {
		return nil, err
	}

	// the reference round-trips through the provider, so validate the user up
	// front rather than at webhook time
	err = p.store.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}

	ref := dwallet.Reference{Username: username, BundleID: bundleID, USD: bundle.USD}
	out := &TopUpOrder{Provider: provider, Reference: ref.String()}

	switch provider {
	case ProviderCryptoInvoice:
		inv, err := p.crypto.CreateInvoice(ctx, ref.String(), bundle.USD, "wallet top-up")
		if err != nil {
			return nil, err
		}
		out.OrderID = inv.ID
		out.PaymentURL = inv.InvoiceURL
	case ProviderPayPal:
		orderID, approveURL, err := p.paypal.CreateOrder(ctx, ref.String(), bundle.USD)
		if err != nil {
			return nil, err
		}
		out.OrderID = orderID
		out.PaymentURL = approveURL
	case ProviderRazorpay:
		order, err := p.razorpay.CreateOrder(ctx, ref.String(), bundle.USD)
		if err != nil {
			return nil, err
		}
		out.OrderID = order.ID
	default:
		return nil, fmt.Errorf("wallet: unknown provider %q", provider)
	}
	return out, nil
}

// Retryable reports whether the failure should be surfaced to the provider
// as non-success so it redelivers.
func Retryable(err error) bool {
	return errors.Is(err, payments.ErrUnavailable)
}
