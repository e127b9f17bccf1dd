// Package storetest provides an in-memory store.Store for service tests.
// Transactions are copy-on-write: a failed InTx leaves the data untouched,
// matching the rollback semantics of the pgx store.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/catalog"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/referrals"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/users"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store"
)

type Memory struct {
	mu   sync.Mutex
	data *data
}

type data struct {
	users     map[int64]users.User
	services  map[int64]catalog.Service
	accounts  map[int64]catalog.Account
	durCost   map[string]int // "serviceID/durationKey"
	subs      map[int64]subscriptions.Subscription
	referrals map[string]referrals.Credit // "referrerID/referredID"
	journal   map[string]wallet.PaymentEvent
	nextID    int64
}

func New() *Memory {
	return &Memory{data: &data{
		users:     map[int64]users.User{},
		services:  map[int64]catalog.Service{},
		accounts:  map[int64]catalog.Account{},
		durCost:   map[string]int{},
		subs:      map[int64]subscriptions.Subscription{},
		referrals: map[string]referrals.Credit{},
		journal:   map[string]wallet.PaymentEvent{},
	}}
}

func (d *data) clone() *data {
	c := &data{
		users:     make(map[int64]users.User, len(d.users)),
		services:  make(map[int64]catalog.Service, len(d.services)),
		accounts:  make(map[int64]catalog.Account, len(d.accounts)),
		durCost:   make(map[string]int, len(d.durCost)),
		subs:      make(map[int64]subscriptions.Subscription, len(d.subs)),
		referrals: make(map[string]referrals.Credit, len(d.referrals)),
		journal:   make(map[string]wallet.PaymentEvent, len(d.journal)),
		nextID:    d.nextID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.services {
		c.services[k] = v
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.durCost {
		c.durCost[k] = v
	}
	for k, v := range d.subs {
		c.subs[k] = v
	}
	for k, v := range d.referrals {
		c.referrals[k] = v
	}
	for k, v := range d.journal {
		c.journal[k] = v
	}
	return c
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

func (m *Memory) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()

	t := &tx{data: m.data.clone()}
	if err := fn(t); err != nil {
		m.mu.Unlock()
		return err
	}
	m.data = t.data
	hooks := t.hooks
	m.mu.Unlock()

	// hooks run unlocked so they may re-enter the store, like a post-commit
	// hook starting its own transaction does against the real pool
	for _, fn := range hooks {
		fn(ctx)
	}
	return nil
}

// Seed helpers. These mutate the committed state directly.

func (m *Memory) SeedUser(username string, credits int, referredBy *int64) *users.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := users.User{
		ID:         m.data.id(),
		Username:   username,
		Email:      username + "@example.com",
		Credits:    credits,
		ReferredBy: referredBy,
	}
	m.data.users[u.ID] = u
	return &u
}

func (m *Memory) SeedService(name string) *catalog.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := catalog.Service{ID: m.data.id(), Name: name, Active: true}
	m.data.services[s.ID] = s
	return &s
}

func (m *Memory) SeedAccount(serviceID int64, ref string, expiresAt *time.Time) *catalog.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := catalog.Account{ID: m.data.id(), ServiceID: serviceID, AccountRef: ref, ExpiresAt: expiresAt, Active: true}
	m.data.accounts[a.ID] = a
	return &a
}

func (m *Memory) SeedDurationCredit(serviceID int64, key string, credits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.durCost[fmt.Sprintf("%d/%s", serviceID, key)] = credits
}

func (m *Memory) SeedSubscription(s subscriptions.Subscription) *subscriptions.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.data.id()
	m.data.subs[s.ID] = s
	return &s
}

// State accessors for assertions.

func (m *Memory) User(id int64) users.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.users[id]
}

func (m *Memory) Subscriptions() []subscriptions.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]subscriptions.Subscription, 0, len(m.data.subs))
	for _, s := range m.data.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) JournalEntries() []wallet.PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]wallet.PaymentEvent, 0, len(m.data.journal))
	for _, e := range m.data.journal {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ReferralCredits() []referrals.Credit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]referrals.Credit, 0, len(m.data.referrals))
	for _, c := range m.data.referrals {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Transaction view.

type tx struct {
	data  *data
	hooks []func(ctx context.Context)
}

func (t *tx) Users() store.Users                 { return (*txUsers)(t) }
func (t *tx) Catalog() store.Catalog             { return (*txCatalog)(t) }
func (t *tx) Subscriptions() store.Subscriptions { return (*txSubs)(t) }
func (t *tx) Referrals() store.Referrals         { return (*txReferrals)(t) }
func (t *tx) Journal() store.Journal             { return (*txJournal)(t) }

func (t *tx) AfterCommit(fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, fn)
}

type txUsers tx

func (t *txUsers) GetByID(_ context.Context, id int64) (*users.User, error) {
	u, ok := t.data.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &u, nil
}

func (t *txUsers) GetByUsername(_ context.Context, username string) (*users.User, error) {
	for _, u := range t.data.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, users.ErrNotFound
}

func (t *txUsers) GetByUsernameForUpdate(ctx context.Context, username string) (*users.User, error) {
	return t.GetByUsername(ctx, username)
}

func (t *txUsers) AddCredits(_ context.Context, id int64, amount int) error {
	u, ok := t.data.users[id]
	if !ok {
		return users.ErrNotFound
	}
	u.Credits += amount
	t.data.users[id] = u
	return nil
}

func (t *txUsers) DebitCredits(_ context.Context, id int64, amount int) error {
	u, ok := t.data.users[id]
	if !ok || u.Credits < amount {
		return users.ErrInsufficientCredits
	}
	u.Credits -= amount
	t.data.users[id] = u
	return nil
}

type txCatalog tx

func (t *txCatalog) GetServiceByName(_ context.Context, name string) (*catalog.Service, error) {
	for _, s := range t.data.services {
		if s.Name == name {
			s := s
			return &s, nil
		}
	}
	return nil, catalog.ErrServiceNotFound
}

func (t *txCatalog) GetServiceByID(_ context.Context, id int64) (*catalog.Service, error) {
	s, ok := t.data.services[id]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	return &s, nil
}

func (t *txCatalog) GetAccountByID(_ context.Context, id int64) (*catalog.Account, error) {
	a, ok := t.data.accounts[id]
	if !ok {
		return nil, catalog.ErrAccountNotFound
	}
	return &a, nil
}

func (t *txCatalog) GetAccountByRef(_ context.Context, ref string) (*catalog.Account, error) {
	for _, a := range t.data.accounts {
		if a.AccountRef == ref {
			a := a
			return &a, nil
		}
	}
	return nil, catalog.ErrAccountNotFound
}

func (t *txCatalog) FindAccountForService(_ context.Context, serviceID int64, until time.Time) (*catalog.Account, error) {
	var best *catalog.Account
	for _, a := range t.data.accounts {
		a := a
		if a.ServiceID != serviceID || !a.Covers(until) {
			continue
		}
		// soonest expiry first, NULL expiry last
		if best == nil {
			best = &a
			continue
		}
		switch {
		case a.ExpiresAt == nil:
		case best.ExpiresAt == nil, a.ExpiresAt.Before(*best.ExpiresAt):
			best = &a
		}
	}
	if best == nil {
		return nil, catalog.ErrAccountNotFound
	}
	return best, nil
}

func (t *txCatalog) GetDurationCredit(_ context.Context, serviceID int64, durationKey string) (int, bool, error) {
	c, ok := t.data.durCost[fmt.Sprintf("%d/%s", serviceID, durationKey)]
	return c, ok, nil
}

type txSubs tx

func (t *txSubs) GetActive(_ context.Context, userID, serviceID int64) (*subscriptions.Subscription, error) {
	for _, s := range t.data.subs {
		if s.UserID == userID && s.ServiceID == serviceID && s.Active {
			s := s
			return &s, nil
		}
	}
	return nil, subscriptions.ErrNotFound
}

func (t *txSubs) Create(_ context.Context, userID, serviceID int64, accountID *int64,
	start, end time.Time, durationKey string, days int) (*subscriptions.Subscription, error) {
	s := subscriptions.Subscription{
		ID:                t.data.id(),
		UserID:            userID,
		ServiceID:         serviceID,
		AccountID:         accountID,
		StartedAt:         start,
		ExpiresAt:         end,
		Active:            true,
		DurationKey:       durationKey,
		TotalDurationDays: days,
	}
	t.data.subs[s.ID] = s
	return &s, nil
}

func (t *txSubs) Extend(_ context.Context, id int64, accountID *int64, end time.Time,
	durationKey string, addDays int) (*subscriptions.Subscription, error) {
	s, ok := t.data.subs[id]
	if !ok {
		return nil, subscriptions.ErrNotFound
	}
	s.AccountID = accountID
	s.ExpiresAt = end
	s.DurationKey = durationKey
	s.TotalDurationDays += addDays
	t.data.subs[id] = s
	return &s, nil
}

func (t *txSubs) CountByUser(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, s := range t.data.subs {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

type txReferrals tx

func (t *txReferrals) Create(_ context.Context, referrerID, referredID int64, credits int, subscriptionID *int64) (bool, error) {
	key := fmt.Sprintf("%d/%d", referrerID, referredID)
	if _, ok := t.data.referrals[key]; ok {
		return false, nil
	}
	t.data.referrals[key] = referrals.Credit{
		ID:             t.data.id(),
		ReferrerID:     referrerID,
		ReferredID:     referredID,
		Credits:        credits,
		SubscriptionID: subscriptionID,
	}
	return true, nil
}

type txJournal tx

func (t *txJournal) Insert(_ context.Context, e *wallet.PaymentEvent) (bool, error) {
	key := e.JournalKey()
	if _, ok := t.data.journal[key]; ok {
		return false, nil
	}
	stored := *e
	stored.ID = t.data.id()
	t.data.journal[key] = stored
	return true, nil
}
