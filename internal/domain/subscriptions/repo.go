package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/db"
)

var ErrNotFound = errors.New("subscriptions: not found")

const subColumns = `id, user_id, service_id, account_id, started_at, expires_at, active, duration_key, total_duration_days, created_at, updated_at`

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

func (r *Repo) WithTx(tx pgx.Tx) *Repo { return &Repo{db: tx} }

func scanSub(row pgx.Row) (*Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.ServiceID, &s.AccountID, &s.StartedAt, &s.ExpiresAt,
		&s.Active, &s.DurationKey, &s.TotalDurationDays, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetActive returns the active subscription for (user, service), or
// ErrNotFound. At most one active row exists per pair (partial unique index).
func (r *Repo) GetActive(ctx context.Context, userID, serviceID int64) (*Subscription, error) {
	return scanSub(r.db.QueryRow(ctx, `
		SELECT `+subColumns+` FROM user_subscriptions
		WHERE user_id=$1 AND service_id=$2 AND active
	`, userID, serviceID))
}

func (r *Repo) Create(ctx context.Context, userID, serviceID int64, accountID *int64,
	start, end time.Time, durationKey string, days int) (*Subscription, error) {
	return scanSub(r.db.QueryRow(ctx, `
		INSERT INTO user_subscriptions
			(user_id, service_id, account_id, started_at, expires_at, active, duration_key, total_duration_days)
		VALUES ($1,$2,$3,$4,$5,true,$6,$7)
		RETURNING `+subColumns, userID, serviceID, accountID, start, end, durationKey, days))
}

// Extend pushes the end date out and accumulates the purchased days.
func (r *Repo) Extend(ctx context.Context, id int64, accountID *int64, end time.Time,
	durationKey string, addDays int) (*Subscription, error) {
	return scanSub(r.db.QueryRow(ctx, `
		UPDATE user_subscriptions
		SET account_id=$2, expires_at=$3, duration_key=$4,
		    total_duration_days = total_duration_days + $5, updated_at=now()
		WHERE id=$1
		RETURNING `+subColumns, id, accountID, end, durationKey, addDays))
}

// CountByUser counts all subscriptions the user has ever had, active or not.
func (r *Repo) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_subscriptions WHERE user_id=$1
	`, userID).Scan(&n)
	return n, err
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subColumns+` FROM user_subscriptions
		WHERE user_id=$1 ORDER BY expires_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.ServiceID, &s.AccountID, &s.StartedAt, &s.ExpiresAt,
			&s.Active, &s.DurationKey, &s.TotalDurationDays, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Remove is the explicit admin removal path; the assignor never deletes.
func (r *Repo) Remove(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReportRow is the admin report projection across users/services/accounts.
type ReportRow struct {
	Username    string
	ServiceName string
	AccountRef  string
	StartedAt   time.Time
	ExpiresAt   time.Time
	Active      bool
	DurationKey string
	TotalDays   int
	Credits     int
}

func (r *Repo) ListReport(ctx context.Context) ([]ReportRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.username, sv.name, COALESCE(a.account_ref, ''),
		       s.started_at, s.expires_at, s.active, s.duration_key, s.total_duration_days, u.credits
		FROM user_subscriptions s
		JOIN users u ON u.id = s.user_id
		JOIN services sv ON sv.id = s.service_id
		LEFT JOIN service_accounts a ON a.id = s.account_id
		ORDER BY u.username, sv.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var rr ReportRow
		if err := rows.Scan(&rr.Username, &rr.ServiceName, &rr.AccountRef, &rr.StartedAt, &rr.ExpiresAt,
			&rr.Active, &rr.DurationKey, &rr.TotalDays, &rr.Credits); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
