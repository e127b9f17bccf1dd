package wallet

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/db"
)

type JournalRepo struct{ db db.DBTX }

func NewJournalRepo(conn db.DBTX) *JournalRepo { return &JournalRepo{db: conn} }

func (r *JournalRepo) WithTx(tx pgx.Tx) *JournalRepo { return &JournalRepo{db: tx} }

// Insert records the event. Returns false when the (provider, external_id)
// key already exists, which is how redelivered webhooks are detected.
func (r *JournalRepo) Insert(ctx context.Context, e *PaymentEvent) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO payment_events (provider, external_id, username, bundle_id, usd_amount, credits, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (provider, external_id) DO NOTHING
	`, e.Provider, e.ExternalID, e.Username, e.BundleID, e.USDAmount, e.Credits, e.Status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *JournalRepo) ListByUsername(ctx context.Context, username string, limit int) ([]PaymentEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, provider, external_id, username, bundle_id, usd_amount, credits, status, created_at
		FROM payment_events
		WHERE username=$1 ORDER BY created_at DESC LIMIT $2
	`, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentEvent
	for rows.Next() {
		var e PaymentEvent
		if err := rows.Scan(&e.ID, &e.Provider, &e.ExternalID, &e.Username, &e.BundleID,
			&e.USDAmount, &e.Credits, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
