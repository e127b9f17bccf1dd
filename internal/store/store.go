// Package store defines the unit-of-work the core services run inside.
// Multi-step operations (assign, webhook credit, referral award) get a single
// transaction threaded through every read and write, so partial failure
// leaves no residual state.
package store

import (
	"context"
	"time"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/catalog"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/users"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
)

type Store interface {
	// InTx runs fn inside one transaction. Hooks registered via
	// Tx.AfterCommit run only after a successful commit; their failures are
	// isolated from the primary operation.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Users() Users
	Catalog() Catalog
	Subscriptions() Subscriptions
	Referrals() Referrals
	Journal() Journal

	AfterCommit(fn func(ctx context.Context))
}

type Users interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
	GetByUsername(ctx context.Context, username string) (*users.User, error)
	GetByUsernameForUpdate(ctx context.Context, username string) (*users.User, error)
	AddCredits(ctx context.Context, id int64, amount int) error
	DebitCredits(ctx context.Context, id int64, amount int) error
}

type Catalog interface {
	GetServiceByName(ctx context.Context, name string) (*catalog.Service, error)
	GetServiceByID(ctx context.Context, id int64) (*catalog.Service, error)
	GetAccountByID(ctx context.Context, id int64) (*catalog.Account, error)
	GetAccountByRef(ctx context.Context, ref string) (*catalog.Account, error)
	FindAccountForService(ctx context.Context, serviceID int64, until time.Time) (*catalog.Account, error)
	GetDurationCredit(ctx context.Context, serviceID int64, durationKey string) (int, bool, error)
}

type Subscriptions interface {
	GetActive(ctx context.Context, userID, serviceID int64) (*subscriptions.Subscription, error)
	Create(ctx context.Context, userID, serviceID int64, accountID *int64,
		start, end time.Time, durationKey string, days int) (*subscriptions.Subscription, error)
	Extend(ctx context.Context, id int64, accountID *int64, end time.Time,
		durationKey string, addDays int) (*subscriptions.Subscription, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
}

type Referrals interface {
	Create(ctx context.Context, referrerID, referredID int64, credits int, subscriptionID *int64) (bool, error)
}

type Journal interface {
	Insert(ctx context.Context, e *wallet.PaymentEvent) (bool, error)
}
