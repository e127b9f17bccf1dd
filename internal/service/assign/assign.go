// Package assign implements admin-driven assignment of service accounts to
// users. Account selection, cost computation, the extend-or-create of the
// subscription record, and the ledger debit run as one atomic unit.
package assign

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/config"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/catalog"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/users"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/metrics"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store"
)

// Recorder is the analytics sink; writes are best-effort.
type Recorder interface {
	Record(ctx context.Context, eventType, status string, externalRef *string, payload map[string]any) error
}

// Awarder is invoked after a new subscription commits.
type Awarder interface {
	MaybeAward(ctx context.Context, referredUserID, subscriptionID int64)
}

type Service struct {
	store     store.Store
	durations map[string]config.Duration
	analytics Recorder
	awarder   Awarder
	log       *slog.Logger

	now func() time.Time
}

func New(st store.Store, durations map[string]config.Duration, analytics Recorder, awarder Awarder, log *slog.Logger) *Service {
	return &Service{
		store:     st,
		durations: durations,
		analytics: analytics,
		awarder:   awarder,
		log:       log,
		now:       time.Now,
	}
}

type Result struct {
	Cost           int
	EndDate        time.Time
	AccountRef     string
	SubscriptionID int64
	Created        bool
}

// outcome is the resolved plan before the debit/upsert step.
type outcome struct {
	service     *catalog.Service
	account     *catalog.Account
	existing    *subscriptions.Subscription
	end         time.Time
	cost        int
	durationKey string
	days        int
}

// Assign resolves the selector, debits the user and upserts the subscription
// inside one transaction. No credits are deducted without a persisted
// subscription row, and vice versa.
func (s *Service) Assign(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	today := dateOnly(s.now())

	var res *Result
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetByUsernameForUpdate(ctx, req.Username)
		if err != nil {
			return err
		}

		var out *outcome
		if req.Service != nil {
			out, err = s.planByService(ctx, tx, user, *req.Service, today)
		} else {
			out, err = s.planByAccount(ctx, tx, user, *req.Account, today)
		}
		if err != nil {
			return err
		}

		if user.Credits < out.cost {
			return users.ErrInsufficientCredits
		}
		if err := tx.Users().DebitCredits(ctx, user.ID, out.cost); err != nil {
			return err
		}

		var sub *subscriptions.Subscription
		if out.existing != nil {
			sub, err = tx.Subscriptions().Extend(ctx, out.existing.ID, &out.account.ID, out.end, out.durationKey, out.days)
		} else {
			sub, err = tx.Subscriptions().Create(ctx, user.ID, out.service.ID, &out.account.ID, today, out.end, out.durationKey, out.days)
		}
		if err != nil {
			return err
		}

		created := out.existing == nil
		res = &Result{
			Cost:           out.cost,
			EndDate:        out.end,
			AccountRef:     out.account.AccountRef,
			SubscriptionID: sub.ID,
			Created:        created,
		}

		userID, subID, cost := user.ID, sub.ID, out.cost
		serviceName := out.service.Name
		tx.AfterCommit(func(ctx context.Context) {
			kind := "extension"
			if created {
				kind = "new"
			}
			metrics.SubscriptionsAssigned.WithLabelValues(kind).Inc()
			if s.analytics != nil {
				if err := s.analytics.Record(ctx, "subscription_assigned", "success", nil, map[string]any{
					"username": req.Username,
					"service":  serviceName,
					"cost":     cost,
					"kind":     kind,
				}); err != nil {
					s.log.Error("analytics record failed", "err", err)
				}
			}
			if created && s.awarder != nil {
				s.awarder.MaybeAward(ctx, userID, subID)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) planByService(ctx context.Context, tx store.Tx, user *users.User, sel ServiceSelector, today time.Time) (*outcome, error) {
	svc, err := tx.Catalog().GetServiceByName(ctx, sel.Name)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, catalog.ErrServiceNotFound
	}
	dur, ok := s.durations[sel.DurationKey]
	if !ok {
		return nil, ErrInvalidRequest
	}

	existing, err := s.activeSubscription(ctx, tx, user.ID, svc.ID)
	if err != nil {
		return nil, err
	}

	base := today
	if existing != nil && existing.ExpiresAt.After(today) {
		base = dateOnly(existing.ExpiresAt)
	}
	end := base.AddDate(0, 0, dur.Days)

	account, err := tx.Catalog().FindAccountForService(ctx, svc.ID, end)
	if err != nil {
		if !errors.Is(err, catalog.ErrAccountNotFound) {
			return nil, err
		}
		// An account that could host a fresh span but not the stacked
		// extension means the extension is what exceeds the expiry.
		if existing != nil {
			if _, err2 := tx.Catalog().FindAccountForService(ctx, svc.ID, today.AddDate(0, 0, dur.Days)); err2 == nil {
				return nil, ErrExpiryExceeded
			}
		}
		return nil, ErrNoCapacity
	}

	cost, err := s.costForDuration(ctx, tx, svc.ID, sel.DurationKey)
	if err != nil {
		return nil, err
	}

	return &outcome{
		service:     svc,
		account:     account,
		existing:    existing,
		end:         end,
		cost:        cost,
		durationKey: sel.DurationKey,
		days:        dur.Days,
	}, nil
}

func (s *Service) planByAccount(ctx context.Context, tx store.Tx, user *users.User, sel AccountSelector, today time.Time) (*outcome, error) {
	reqEnd := dateOnly(sel.EndDate)
	if !reqEnd.After(today) {
		return nil, ErrInvalidRequest
	}
	days := daysBetween(today, reqEnd)

	var (
		account *catalog.Account
		svc     *catalog.Service
		err     error
	)
	switch sel.Kind {
	case ByExternalRef:
		account, err = tx.Catalog().GetAccountByRef(ctx, sel.ExternalRef)
	case ByAccountID:
		account, err = tx.Catalog().GetAccountByID(ctx, sel.AccountID)
	case ByServiceName:
		svc, err = tx.Catalog().GetServiceByName(ctx, sel.ServiceName)
		if err != nil {
			return nil, err
		}
		account, err = tx.Catalog().FindAccountForService(ctx, svc.ID, reqEnd)
		if errors.Is(err, catalog.ErrAccountNotFound) {
			return nil, ErrNoCapacity
		}
	}
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, catalog.ErrAccountNotFound
	}
	if svc == nil {
		svc, err = tx.Catalog().GetServiceByID(ctx, account.ServiceID)
		if err != nil {
			return nil, err
		}
	}

	existing, err := s.activeSubscription(ctx, tx, user.ID, svc.ID)
	if err != nil {
		return nil, err
	}

	end := reqEnd
	if existing != nil && existing.ExpiresAt.After(today) {
		end = dateOnly(existing.ExpiresAt).AddDate(0, 0, days)
	}
	if !account.Covers(end) {
		return nil, ErrExpiryExceeded
	}

	cost, key, err := s.costForSpan(ctx, tx, svc.ID, days)
	if err != nil {
		return nil, err
	}

	return &outcome{
		service:     svc,
		account:     account,
		existing:    existing,
		end:         end,
		cost:        cost,
		durationKey: key,
		days:        days,
	}, nil
}

func (s *Service) activeSubscription(ctx context.Context, tx store.Tx, userID, serviceID int64) (*subscriptions.Subscription, error) {
	sub, err := tx.Subscriptions().GetActive(ctx, userID, serviceID)
	if errors.Is(err, subscriptions.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// costForDuration applies the per-service override when one exists, else the
// configured default for the duration key.
func (s *Service) costForDuration(ctx context.Context, tx store.Tx, serviceID int64, key string) (int, error) {
	if cost, ok, err := tx.Catalog().GetDurationCredit(ctx, serviceID, key); err != nil {
		return 0, err
	} else if ok {
		return cost, nil
	}
	dur, ok := s.durations[key]
	if !ok {
		return 0, ErrInvalidRequest
	}
	return dur.Credits, nil
}

// costForSpan prices an explicit span: smallest covering duration, else
// linear interpolation from the largest configured one.
func (s *Service) costForSpan(ctx context.Context, tx store.Tx, serviceID int64, days int) (int, string, error) {
	if key, _, ok := spanDuration(s.durations, days); ok {
		cost, err := s.costForDuration(ctx, tx, serviceID, key)
		return cost, key, err
	}
	key, largest, ok := largestDuration(s.durations)
	if !ok {
		return 0, "", ErrInvalidRequest
	}
	cost, err := s.costForDuration(ctx, tx, serviceID, key)
	if err != nil {
		return 0, "", err
	}
	return interpolateCost(cost, largest.Days, days), key, nil
}
