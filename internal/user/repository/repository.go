package repository

import (
	"context"
	"errors"
	"time"

	"github.com/meisaku0/backend/internal/user/domain"
)

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already taken")
)

// Repository defines persistence for users and their email and password records.
// Lookups return (nil, nil) for a missing row.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// UsernameTaken reports whether a user other than exceptID holds username.
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	EmailTaken(ctx context.Context, address string) (bool, error)
	// CreateWithCredentials inserts the user, email and password in one transaction.
	// Unique violations surface as ErrUsernameTaken or ErrEmailTaken.
	CreateWithCredentials(ctx context.Context, u *domain.User, e *domain.Email, p *domain.Password) error
	UpdateUsername(ctx context.Context, id, username string) error

	GetEmailByUser(ctx context.Context, userID string) (*domain.Email, error)
	// ActivateEmail activates the inactive email holding token and replaces the token with next.
	// It reports false when no inactive email holds token.
	ActivateEmail(ctx context.Context, token, next string) (bool, error)

	GetPasswordByUser(ctx context.Context, userID string) (*domain.Password, error)
	GetPasswordByResetToken(ctx context.Context, token string) (*domain.Password, error)
	// UpdatePasswordHash replaces hash and salt and clears any pending reset token.
	UpdatePasswordHash(ctx context.Context, passwordID, hash, salt string) error
	// SetResetToken stores token and its cooldown, then runs deliver. The write is
	// kept only when deliver returns nil.
	SetResetToken(ctx context.Context, passwordID, token string, retryUntil time.Time, deliver func(ctx context.Context) error) error
}
