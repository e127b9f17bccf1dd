package referrals

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/db"
)

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

func (r *Repo) WithTx(tx pgx.Tx) *Repo { return &Repo{db: tx} }

// Create inserts the award record. Returns false when the pair was already
// awarded; the unique constraint is the backstop against double-crediting.
func (r *Repo) Create(ctx context.Context, referrerID, referredID int64, credits int, subscriptionID *int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO referral_credits (referrer_id, referred_id, credits, subscription_id)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (referrer_id, referred_id) DO NOTHING
	`, referrerID, referredID, credits, subscriptionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) Exists(ctx context.Context, referrerID, referredID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM referral_credits WHERE referrer_id=$1 AND referred_id=$2)
	`, referrerID, referredID).Scan(&exists)
	return exists, err
}
