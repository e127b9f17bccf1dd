package catalog

import "time"

type Service struct {
	ID     int64
	Name   string
	Image  string
	Active bool
}

// Account is a credential slot within a service. Subscriptions are leased
// against it up to its own expiry; seat limits beyond the date are not tracked.
type Account struct {
	ID         int64
	ServiceID  int64
	AccountRef string
	ExpiresAt  *time.Time
	Active     bool
}

// DurationCredit is a per-service price override for one duration key.
// Durations without an override use the configured default cost.
type DurationCredit struct {
	ID          int64
	ServiceID   int64
	DurationKey string
	Credits     int
}

// Covers reports whether the account can host a subscription ending at end.
// A NULL expiry means the account never expires.
func (a *Account) Covers(end time.Time) bool {
	if !a.Active {
		return false
	}
	return a.ExpiresAt == nil || !a.ExpiresAt.Before(end)
}
