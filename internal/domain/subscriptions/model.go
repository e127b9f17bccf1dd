package subscriptions

import "time"

type Subscription struct {
	ID                int64
	UserID            int64
	ServiceID         int64
	AccountID         *int64
	StartedAt         time.Time
	ExpiresAt         time.Time
	Active            bool
	DurationKey       string
	TotalDurationDays int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
