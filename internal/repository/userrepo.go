// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/learnkeeper/internal/model"
)

// UserRepository stores accounts and password-reset requests.
type UserRepository interface {
	// Create inserts a new account; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByEmail loads an account by (case-insensitive) email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// UpdateName sets the display name and returns the updated profile.
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error)
	// UpdatePassword replaces the encoded password hash.
	UpdatePassword(ctx context.Context, id uuid.UUID, pwdHash string) error
	// CreatePasswordReset stores the digest of a one-time reset token.
	CreatePasswordReset(ctx context.Context, userID uuid.UUID, digest []byte, expiresAt time.Time) error
}
