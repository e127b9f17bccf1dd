package pgxstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/catalog"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/referrals"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/users"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store"
)

// Store is the PostgreSQL unit-of-work over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger

	usersRepo    *users.Repo
	catalogRepo  *catalog.Repo
	subsRepo     *subscriptions.Repo
	referralRepo *referrals.Repo
	journalRepo  *wallet.JournalRepo
}

func New(pool *pgxpool.Pool, log *slog.Logger) *Store {
	return &Store{
		pool:         pool,
		log:          log,
		usersRepo:    users.NewRepo(pool),
		catalogRepo:  catalog.NewRepo(pool),
		subsRepo:     subscriptions.NewRepo(pool),
		referralRepo: referrals.NewRepo(pool),
		journalRepo:  wallet.NewJournalRepo(pool),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	t := &tx{store: s, pgtx: pgtx}
	if err := fn(t); err != nil {
		_ = pgtx.Rollback(ctx)
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	t.runHooks(ctx)
	return nil
}

type tx struct {
	store *Store
	pgtx  pgx.Tx
	hooks []func(ctx context.Context)
}

func (t *tx) Users() store.Users                 { return t.store.usersRepo.WithTx(t.pgtx) }
func (t *tx) Catalog() store.Catalog             { return t.store.catalogRepo.WithTx(t.pgtx) }
func (t *tx) Subscriptions() store.Subscriptions { return t.store.subsRepo.WithTx(t.pgtx) }
func (t *tx) Referrals() store.Referrals         { return t.store.referralRepo.WithTx(t.pgtx) }
func (t *tx) Journal() store.Journal             { return t.store.journalRepo.WithTx(t.pgtx) }

func (t *tx) AfterCommit(fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, fn)
}

func (t *tx) runHooks(ctx context.Context) {
	for _, fn := range t.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.store.log.Error("post-commit hook panic", "panic", r)
				}
			}()
			fn(ctx)
		}()
	}
}
