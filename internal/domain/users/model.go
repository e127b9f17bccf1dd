package users

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Credits      int
	ReferredBy   *int64
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
