package http

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dwallet "github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/service/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store/storetest"
)

func newTestServer(t *testing.T, mem *storetest.Memory, secrets wallet.Secrets) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	processor := wallet.NewProcessor(mem, dwallet.NewBundles(dwallet.DefaultBundles()), secrets,
		nil, nil, nil, nil, nil, nil, log)
	srv := New(":0", "test", Deps{
		Log:        log,
		AdminToken: "secret-token",
		Wallet:     processor,
	})
	return srv.srv.Handler
}

func postWebhook(h http.Handler, provider string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/"+provider, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWebhookEndpointCreditsWallet(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	h := newTestServer(t, mem, wallet.Secrets{})

	body := []byte(`{"payment_id":"evt-1","reference":"wallet_alice_5_5","amount":5,"currency":"USD","status":"paid"}`)
	w := postWebhook(h, "manual", body, map[string]string{"X-Admin-Token": "secret-token"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applied":true`)
	assert.Equal(t, 5, mem.User(u.ID).Credits)
}

func TestManualWebhookRequiresAdminToken(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	h := newTestServer(t, mem, wallet.Secrets{})

	body := []byte(`{"payment_id":"evt-9","reference":"wallet_alice_50_50","amount":50,"currency":"USD","status":"paid"}`)

	// no token at all
	w := postWebhook(h, "manual", body, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, mem.User(u.ID).Credits)

	// wrong token
	w = postWebhook(h, "manual", body, map[string]string{"X-Admin-Token": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, mem.User(u.ID).Credits)
	assert.Empty(t, mem.JournalEntries())
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	h := newTestServer(t, mem, wallet.Secrets{CryptoIPNSecret: "ipn-secret"})

	body := []byte(`{"payment_id":1,"payment_status":"finished","order_id":"wallet_alice_5_5","price_amount":5}`)
	w := postWebhook(h, "cryptoinvoice", body, map[string]string{"x-nowpayments-sig": "bogus"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, mem.User(u.ID).Credits)
}

func TestWebhookEndpointSwallowsBusinessRejection(t *testing.T) {
	mem := storetest.New()
	u := mem.SeedUser("alice", 0, nil)
	h := newTestServer(t, mem, wallet.Secrets{})

	// amount does not match the bundle price; provider still gets a 200 so it
	// stops redelivering
	body := []byte(`{"payment_id":"evt-2","reference":"wallet_alice_5_5","amount":4,"currency":"USD","status":"paid"}`)
	w := postWebhook(h, "manual", body, map[string]string{"X-Admin-Token": "secret-token"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
	assert.Equal(t, 0, mem.User(u.ID).Credits)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newTestServer(t, storetest.New(), wallet.Secrets{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req.Header.Set("X-Admin-Token", "wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, storetest.New(), wallet.Secrets{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
