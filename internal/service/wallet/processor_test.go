package wallet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dwallet "github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/payments"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store/storetest"
)

type fakeCrypto struct {
	status *payments.CryptoPayment
	err    error
}

func (f *fakeCrypto) CreateInvoice(context.Context, string, float64, string) (*payments.CryptoInvoice, error) {
	return &payments.CryptoInvoice{ID: "inv-1", InvoiceURL: "https://pay.example/inv-1"}, nil
}

func (f *fakeCrypto) GetPaymentStatus(context.Context, string) (*payments.CryptoPayment, error) {
	return f.status, f.err
}

type fakePayPal struct {
	order    *payments.PayPalOrder
	captured *payments.PayPalOrder
	captures int
}

func (f *fakePayPal) CreateOrder(context.Context, string, float64) (string, string, error) {
	return "pp-order-1", "https://paypal.example/approve", nil
}

func (f *fakePayPal) GetOrder(context.Context, string) (*payments.PayPalOrder, error) {
	return f.order, nil
}

func (f *fakePayPal) CaptureOrder(context.Context, string) (*payments.PayPalOrder, error) {
	f.captures++
	return f.captured, nil
}

type fakeRazorpay struct {
	payment *payments.RazorpayPayment
}

func (f *fakeRazorpay) CreateOrder(context.Context, string, float64) (*payments.RazorpayOrder, error) {
	return &payments.RazorpayOrder{ID: "rzp-order-1", Status: "created"}, nil
}

func (f *fakeRazorpay) FetchPayment(context.Context, string) (*payments.RazorpayPayment, error) {
	return f.payment, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProcessor(mem *storetest.Memory, secrets Secrets, crypto CryptoAPI, paypal PayPalAPI, razorpay RazorpayAPI) *Processor {
	return NewProcessor(mem, dwallet.NewBundles(dwallet.DefaultBundles()), secrets,
		crypto, paypal, razorpay, nil, nil, nil, testLogger())
}

func manualBody(paymentID, reference string, amount float64, status string) []byte {
	return []byte(fmt.Sprintf(`{"payment_id":%q,"reference":%q,"amount":%g,"currency":"USD","status":%q}`,
		paymentID, reference, amount, status))
}

func TestManualWebhookCreditsOnce(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	p := newTestProcessor(mem, Secrets{}, nil, nil, nil)

	body := manualBody("evt-1", "wallet_alice_5_5", 5, "paid")

	receipt, err := p.HandleWebhook(context.Background(), ProviderManual, body, http.Header{})
	require.NoError(t, err)
	assert.True(t, receipt.Applied)
	assert.False(t, receipt.Duplicate)
	assert.Equal(t, 5, receipt.Credits)
	assert.Equal(t, 5, mem.User(u.ID).Credits)

	// redelivery must not credit again
	receipt, err = p.HandleWebhook(context.Background(), ProviderManual, body, http.Header{})
	require.NoError(t, err)
	assert.False(t, receipt.Applied)
	assert.True(t, receipt.Duplicate)
	assert.Equal(t, 5, mem.User(u.ID).Credits)
	assert.Len(t, mem.JournalEntries(), 1)
}

func TestManualWebhookPendingStatusAcknowledged(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	p := newTestProcessor(mem, Secrets{}, nil, nil, nil)

	body := manualBody("evt-2", "wallet_alice_5_5", 5, "waiting")

	receipt, err := p.HandleWebhook(context.Background(), ProviderManual, body, http.Header{})
	require.NoError(t, err)
	assert.False(t, receipt.Applied)
	assert.Equal(t, 0, mem.User(u.ID).Credits)
	assert.Empty(t, mem.JournalEntries())
}

func TestManualWebhookAmountMismatch(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	p := newTestProcessor(mem, Secrets{}, nil, nil, nil)

	body := manualBody("evt-3", "wallet_alice_5_5", 4.5, "paid")

	_, err := p.HandleWebhook(context.Background(), ProviderManual, body, http.Header{})
	require.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, 0, mem.User(u.ID).Credits)
}

func TestManualWebhookBadReference(t *testing.T) {
	mem := storetest.New()
	mem.SeedUser("alice", 0, nil)
	p := newTestProcessor(mem, Secrets{}, nil, nil, nil)

	body := manualBody("evt-4", "order_alice_5_5", 5, "paid")

	_, err := p.HandleWebhook(context.Background(), ProviderManual, body, http.Header{})
	require.ErrorIs(t, err, dwallet.ErrMalformedReference)
	assert.False(t, Retryable(err))
}

func TestManualWebhookUnknownBundle(t *testing.T) {
	mem := storetest.New()
	mem.SeedUser("alice", 0, nil)
	p := newTestProcessor(mem, Secrets{}, nil, nil, nil)

	body := manualBody("evt-5", "wallet_alice_7_7", 7, "paid")

	_, err := p.HandleWebhook(context.Background(), ProviderManual, body, http.Header{})
	require.ErrorIs(t, err, dwallet.ErrUnknownBundle)
}

func TestCryptoWebhookSignature(t *testing.T) {
	const secret = "ipn-secret"
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	p := newTestProcessor(mem, Secrets{CryptoIPNSecret: secret}, nil, nil, nil)

	body := []byte(`{"payment_id":4421,"payment_status":"finished","order_id":"wallet_alice_10_10","price_amount":10,"price_currency":"usd"}`)

	headers := http.Header{}
	headers.Set("x-nowpayments-sig", signSHA512(secret, body))

	receipt, err := p.HandleWebhook(context.Background(), ProviderCryptoInvoice, body, headers)
	require.NoError(t, err)
	assert.True(t, receipt.Applied)
	assert.Equal(t, "4421", receipt.ExternalID)
	assert.Equal(t, 10, mem.User(u.ID).Credits)

	// a single flipped byte in the body must invalidate the signature
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] ^= 0x01
	_, err = p.HandleWebhook(context.Background(), ProviderCryptoInvoice, tampered, headers)
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, 10, mem.User(u.ID).Credits)

	// missing signature header
	_, err = p.HandleWebhook(context.Background(), ProviderCryptoInvoice, body, http.Header{})
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCryptoWebhookStatusFallbackWithoutSecret(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	crypto := &fakeCrypto{status: &payments.CryptoPayment{
		PaymentID:     "4422",
		PaymentStatus: "finished",
		OrderID:       "wallet_alice_2_2",
		PriceAmount:   2,
		PriceCurrency: "usd",
	}}
	p := newTestProcessor(mem, Secrets{}, crypto, nil, nil)

	// body claims a bigger bundle; the provider-side status is what counts
	body := []byte(`{"payment_id":4422,"payment_status":"finished","order_id":"wallet_alice_50_50","price_amount":50}`)

	receipt, err := p.HandleWebhook(context.Background(), ProviderCryptoInvoice, body, http.Header{})
	require.NoError(t, err)
	assert.True(t, receipt.Applied)
	assert.Equal(t, 2, receipt.Credits)
	assert.Equal(t, 2, mem.User(u.ID).Credits)
}

func TestCryptoWebhookProviderDown(t *testing.T) {
	mem := storetest.New()
	mem.SeedUser("alice", 0, nil)
	crypto := &fakeCrypto{err: fmt.Errorf("status: %w", payments.ErrUnavailable)}
	p := newTestProcessor(mem, Secrets{}, crypto, nil, nil)

	body := []byte(`{"payment_id":4423,"payment_status":"finished","order_id":"wallet_alice_5_5","price_amount":5}`)

	_, err := p.HandleWebhook(context.Background(), ProviderCryptoInvoice, body, http.Header{})
	require.Error(t, err)
	assert.True(t, Retryable(err))
}

func TestRazorpayWebhook(t *testing.T) {
	const secret = "rzp-webhook-secret"
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	rzp := &fakeRazorpay{payment: &payments.RazorpayPayment{
		ID:       "pay_1",
		Amount:   500,
		Currency: "USD",
		Status:   "captured",
		Notes:    map[string]string{"reference": "wallet_alice_5_5"},
	}}
	p := newTestProcessor(mem, Secrets{RazorpayWebhookSecret: secret}, nil, nil, rzp)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`)
	headers := http.Header{}
	headers.Set("X-Razorpay-Signature", signSHA256(secret, body))

	receipt, err := p.HandleWebhook(context.Background(), ProviderRazorpay, body, headers)
	require.NoError(t, err)
	assert.True(t, receipt.Applied)
	assert.Equal(t, 5, mem.User(u.ID).Credits)

	headers.Set("X-Razorpay-Signature", "deadbeef")
	_, err = p.HandleWebhook(context.Background(), ProviderRazorpay, body, headers)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestRazorpayWebhookRejectsForeignCurrency(t *testing.T) {
	const secret = "rzp-webhook-secret"
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	// 500 paise is numerically 5.00 after the paise division, but it is not
	// five dollars
	rzp := &fakeRazorpay{payment: &payments.RazorpayPayment{
		ID:       "pay_inr",
		Amount:   500,
		Currency: "INR",
		Status:   "captured",
		Notes:    map[string]string{"reference": "wallet_alice_5_5"},
	}}
	p := newTestProcessor(mem, Secrets{RazorpayWebhookSecret: secret}, nil, nil, rzp)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_inr"}}}}`)
	headers := http.Header{}
	headers.Set("X-Razorpay-Signature", signSHA256(secret, body))

	_, err := p.HandleWebhook(context.Background(), ProviderRazorpay, body, headers)
	require.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, 0, mem.User(u.ID).Credits)
	assert.Empty(t, mem.JournalEntries())
}

func TestRazorpayWebhookIgnoresOtherEvents(t *testing.T) {
	const secret = "rzp-webhook-secret"
	mem := storetest.New()
	mem.SeedUser("alice", 0, nil)
	p := newTestProcessor(mem, Secrets{RazorpayWebhookSecret: secret}, nil, nil, &fakeRazorpay{})

	body := []byte(`{"event":"order.paid","payload":{}}`)
	headers := http.Header{}
	headers.Set("X-Razorpay-Signature", signSHA256(secret, body))

	receipt, err := p.HandleWebhook(context.Background(), ProviderRazorpay, body, headers)
	require.NoError(t, err)
	assert.False(t, receipt.Applied)
	assert.Empty(t, mem.JournalEntries())
}

func TestPayPalCaptureFlow(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	pp := &fakePayPal{
		order:    &payments.PayPalOrder{ID: "pp-1", Status: "APPROVED", CustomID: "wallet_alice_10_10", Amount: 10, Currency: "USD"},
		captured: &payments.PayPalOrder{ID: "pp-1", Status: "COMPLETED", CustomID: "wallet_alice_10_10", Amount: 10, Currency: "USD"},
	}
	p := newTestProcessor(mem, Secrets{}, nil, pp, nil)

	receipt, err := p.CapturePayPal(context.Background(), "pp-1")
	require.NoError(t, err)
	assert.True(t, receipt.Applied)
	assert.Equal(t, 1, pp.captures)
	assert.Equal(t, 10, mem.User(u.ID).Credits)

	// webhook arriving after the user-initiated capture shares the order id,
	// so the journal dedupes it
	pp.order.Status = "COMPLETED"
	body := []byte(`{"event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"pp-1"}}`)
	receipt, err = p.HandleWebhook(context.Background(), ProviderPayPal, body, http.Header{})
	require.NoError(t, err)
	assert.True(t, receipt.Duplicate)
	assert.Equal(t, 1, pp.captures)
	assert.Equal(t, 10, mem.User(u.ID).Credits)
}

func TestPayPalWebhookCaptureCompleted(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	pp := &fakePayPal{
		order: &payments.PayPalOrder{ID: "pp-2", Status: "COMPLETED", CustomID: "wallet_alice_1_1", Amount: 1, Currency: "USD"},
	}
	p := newTestProcessor(mem, Secrets{}, nil, pp, nil)

	body := []byte(`{"event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"cap-9","supplementary_data":{"related_ids":{"order_id":"pp-2"}}}}`)
	receipt, err := p.HandleWebhook(context.Background(), ProviderPayPal, body, http.Header{})
	require.NoError(t, err)
	assert.True(t, receipt.Applied)
	assert.Equal(t, 0, pp.captures)
	assert.Equal(t, 1, mem.User(u.ID).Credits)
}

func TestPayPalWebhookIgnoresOtherEvents(t *testing.T) {
	mem := storetest.New()
	p := newTestProcessor(mem, Secrets{}, nil, &fakePayPal{}, nil)

	body := []byte(`{"event_type":"PAYMENT.CAPTURE.REFUNDED","resource":{"id":"cap-9"}}`)
	receipt, err := p.HandleWebhook(context.Background(), ProviderPayPal, body, http.Header{})
	require.NoError(t, err)
	assert.False(t, receipt.Applied)
}

func TestHandleWebhookUnknownProvider(t *testing.T) {
	mem := storetest.New()
	p := newTestProcessor(mem, Secrets{}, nil, nil, nil)

	_, err := p.HandleWebhook(context.Background(), "stripe", []byte(`{}`), http.Header{})
	require.Error(t, err)
}

func TestCreateTopUpOrder(t *testing.T) {
	mem := storetest.New()
	mem.SeedUser("alice", 0, nil)
	p := newTestProcessor(mem, Secrets{}, &fakeCrypto{}, &fakePayPal{}, &fakeRazorpay{})

	order, err := p.CreateTopUpOrder(context.Background(), ProviderCryptoInvoice, "alice", "5")
	require.NoError(t, err)
	assert.Equal(t, "wallet_alice_5_5", order.Reference)
	assert.Equal(t, "inv-1", order.OrderID)
	assert.NotEmpty(t, order.PaymentURL)

	order, err = p.CreateTopUpOrder(context.Background(), ProviderPayPal, "alice", "20")
	require.NoError(t, err)
	assert.Equal(t, "pp-order-1", order.OrderID)

	_, err = p.CreateTopUpOrder(context.Background(), ProviderManual, "alice", "5")
	require.Error(t, err)

	_, err = p.CreateTopUpOrder(context.Background(), ProviderCryptoInvoice, "alice", "99")
	assert.ErrorIs(t, err, dwallet.ErrUnknownBundle)

	_, err = p.CreateTopUpOrder(context.Background(), ProviderCryptoInvoice, "nobody", "5")
	require.Error(t, err)
}
