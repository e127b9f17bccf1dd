package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/db"
)

var (
	ErrServiceNotFound = errors.New("catalog: service not found")
	ErrAccountNotFound = errors.New("catalog: account not found")
)

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

func (r *Repo) WithTx(tx pgx.Tx) *Repo { return &Repo{db: tx} }

func (r *Repo) GetServiceByName(ctx context.Context, name string) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, image, active FROM services WHERE name=$1
	`, name)
	var s Service
	if err := row.Scan(&s.ID, &s.Name, &s.Image, &s.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetServiceByID(ctx context.Context, id int64) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, image, active FROM services WHERE id=$1
	`, id)
	var s Service
	if err := row.Scan(&s.ID, &s.Name, &s.Image, &s.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) CreateService(ctx context.Context, name, image string) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO services (name, image, active) VALUES ($1,$2,true)
		RETURNING id, name, image, active
	`, name, image)
	var s Service
	if err := row.Scan(&s.ID, &s.Name, &s.Image, &s.Active); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) ListServices(ctx context.Context, activeOnly bool) ([]Service, error) {
	q := `SELECT id, name, image, active FROM services ORDER BY name`
	if activeOnly {
		q = `SELECT id, name, image, active FROM services WHERE active ORDER BY name`
	}
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Image, &s.Active); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.ServiceID, &a.AccountRef, &a.ExpiresAt, &a.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) GetAccountByID(ctx context.Context, id int64) (*Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `
		SELECT id, service_id, account_ref, expires_at, active
		FROM service_accounts WHERE id=$1
	`, id))
}

func (r *Repo) GetAccountByRef(ctx context.Context, ref string) (*Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `
		SELECT id, service_id, account_ref, expires_at, active
		FROM service_accounts WHERE account_ref=$1
	`, ref))
}

// FindAccountForService returns an active account of the service whose expiry
// covers until (NULL expiry always covers). Accounts expiring soonest first,
// so short leases go to accounts that would otherwise go to waste.
func (r *Repo) FindAccountForService(ctx context.Context, serviceID int64, until time.Time) (*Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `
		SELECT id, service_id, account_ref, expires_at, active
		FROM service_accounts
		WHERE service_id=$1 AND active AND (expires_at IS NULL OR expires_at >= $2)
		ORDER BY expires_at ASC NULLS LAST
		LIMIT 1
	`, serviceID, until))
}

func (r *Repo) CreateAccount(ctx context.Context, serviceID int64, ref string, expiresAt *time.Time) (*Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `
		INSERT INTO service_accounts (service_id, account_ref, expires_at, active)
		VALUES ($1,$2,$3,true)
		RETURNING id, service_id, account_ref, expires_at, active
	`, serviceID, ref, expiresAt))
}

// GetDurationCredit returns the per-service cost override for the duration
// key, or (0, false) when no override exists.
func (r *Repo) GetDurationCredit(ctx context.Context, serviceID int64, durationKey string) (int, bool, error) {
	row := r.db.QueryRow(ctx, `
		SELECT credits FROM service_duration_credits
		WHERE service_id=$1 AND duration_key=$2
	`, serviceID, durationKey)
	var credits int
	if err := row.Scan(&credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return credits, true, nil
}

func (r *Repo) SetDurationCredit(ctx context.Context, serviceID int64, durationKey string, credits int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO service_duration_credits (service_id, duration_key, credits)
		VALUES ($1,$2,$3)
		ON CONFLICT (service_id, duration_key)
		DO UPDATE SET credits = EXCLUDED.credits
	`, serviceID, durationKey, credits)
	return err
}
