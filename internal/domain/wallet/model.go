package wallet

import "time"

// PaymentEvent is one row of the webhook-idempotency journal, keyed by
// (provider, external_id). Redelivery of the same notification maps to the
// same key and is skipped.
type PaymentEvent struct {
	ID         int64
	Provider   string
	ExternalID string
	Username   string
	BundleID   string
	USDAmount  float64
	Credits    int
	Status     string
	CreatedAt  time.Time
}

// JournalKey is the provider:externalID form used in logs and caches.
func (e *PaymentEvent) JournalKey() string {
	return e.Provider + ":" + e.ExternalID
}
