package assign

import (
	"errors"
	"time"
)

var (
	ErrInvalidRequest = errors.New("assign: invalid request")
	ErrNoCapacity     = errors.New("assign: no account can satisfy the requested span")
	ErrExpiryExceeded = errors.New("assign: requested duration exceeds account expiry")
)

// Request names the user and exactly one selector form: a service plus a
// configured duration, or a concrete account plus an explicit end date.
type Request struct {
	Username string
	Service  *ServiceSelector
	Account  *AccountSelector
}

type ServiceSelector struct {
	Name        string
	DurationKey string
}

// AccountSelectorKind replaces the old try-every-format resolution cascade
// with a single typed lookup.
type AccountSelectorKind int

const (
	ByExternalRef AccountSelectorKind = iota + 1
	ByAccountID
	ByServiceName
)

type AccountSelector struct {
	Kind        AccountSelectorKind
	ExternalRef string
	AccountID   int64
	ServiceName string
	EndDate     time.Time
}

func (r Request) validate() error {
	if r.Username == "" {
		return ErrInvalidRequest
	}
	if (r.Service == nil) == (r.Account == nil) {
		return ErrInvalidRequest
	}
	if r.Service != nil {
		if r.Service.Name == "" || r.Service.DurationKey == "" {
			return ErrInvalidRequest
		}
		return nil
	}
	sel := r.Account
	if sel.EndDate.IsZero() {
		return ErrInvalidRequest
	}
	switch sel.Kind {
	case ByExternalRef:
		if sel.ExternalRef == "" {
			return ErrInvalidRequest
		}
	case ByAccountID:
		if sel.AccountID <= 0 {
			return ErrInvalidRequest
		}
	case ByServiceName:
		if sel.ServiceName == "" {
			return ErrInvalidRequest
		}
	default:
		return ErrInvalidRequest
	}
	return nil
}
