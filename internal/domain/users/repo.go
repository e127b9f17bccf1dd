package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/db"
)

var (
	ErrNotFound            = errors.New("users: not found")
	ErrInsufficientCredits = errors.New("users: insufficient credits")
)

const userColumns = `id, username, email, password_hash, credits, referred_by, is_admin, created_at, updated_at`

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

// WithTx returns a copy of the repo bound to the given transaction.
func (r *Repo) WithTx(tx pgx.Tx) *Repo { return &Repo{db: tx} }

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Credits, &u.ReferredBy, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username))
}

// GetByUsernameForUpdate takes a row lock so concurrent ledger writers for the
// same user serialize on the user row. Only meaningful inside a transaction.
func (r *Repo) GetByUsernameForUpdate(ctx context.Context, username string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1 FOR UPDATE`, username))
}

func (r *Repo) Create(ctx context.Context, username, email, passwordHash string, referredBy *int64) (*User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, referred_by)
		VALUES ($1,$2,$3,$4)
		RETURNING `+userColumns, username, email, passwordHash, referredBy)
	return scanUser(row)
}

func (r *Repo) AddCredits(ctx context.Context, id int64, amount int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET credits = credits + $2, updated_at = now() WHERE id = $1
	`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DebitCredits refuses to take the balance below zero.
func (r *Repo) DebitCredits(ctx context.Context, id int64, amount int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET credits = credits - $2, updated_at = now()
		WHERE id = $1 AND credits >= $2
	`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Credits, &u.ReferredBy, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
