package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id::text, email, name, role, pwd_hash, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		a    model.Account
		role string
	)
	err := row.Scan(&a.User.ID, &a.User.Email, &a.User.Name, &role, &a.PwdHash, &a.User.CreatedAt, &a.User.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.User.Role = model.Role(role)
	return &a, nil
}

// Create inserts a new user row and fills in the timestamps.
func (r *UserRepo) Create(ctx context.Context, a *model.Account) error {
	id, err := uuid.FromString(a.User.ID)
	if err != nil {
		return fmt.Errorf("user id: %w", errs.ErrValidation)
	}
	const q = `
INSERT INTO users (id, email, name, role, pwd_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	err = r.db.Pool.QueryRow(ctx, q, id, a.User.Email, a.User.Name, string(a.User.Role), a.PwdHash).
		Scan(&a.User.CreatedAt, &a.User.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanAccount(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email)=lower($1)`
	return scanAccount(r.db.Pool.QueryRow(ctx, q, email))
}

// UpdateName sets the display name.
func (r *UserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error) {
	const q = `
UPDATE users SET name=$2, updated_at=now()
WHERE id=$1
RETURNING ` + userCols
	a, err := scanAccount(r.db.Pool.QueryRow(ctx, q, id, name))
	if err != nil {
		return nil, err
	}
	return &a.User, nil
}

// UpdatePassword replaces the password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, pwdHash string) error {
	const q = `UPDATE users SET pwd_hash=$2, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, pwdHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreatePasswordReset stores a reset token digest.
func (r *UserRepo) CreatePasswordReset(ctx context.Context, userID uuid.UUID, digest []byte, expiresAt time.Time) error {
	const q = `INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, digest, userID, expiresAt)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}
