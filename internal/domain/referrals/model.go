package referrals

import "time"

// Credit is the one-time award for bringing in a new user. The
// (referrer, referred) pair is unique, so a second award attempt is a no-op.
type Credit struct {
	ID             int64
	ReferrerID     int64
	ReferredID     int64
	Credits        int
	SubscriptionID *int64
	CreatedAt      time.Time
}
