package repository

import (
	"context"
	"errors"

	"github.com/meisaku0/backend/internal/session/domain"
)

// ErrNotActive is returned by Supersede when the session being replaced is no longer active.
var ErrNotActive = errors.New("session is not active")

// Repository defines persistence for sessions. It applies no policy: callers decide
// when rows are created or deactivated. Lookups return (nil, nil) for a missing row.
type Repository interface {
	Insert(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// FindActiveAccess returns the active access session with id, or nil.
	FindActiveAccess(ctx context.Context, id string) (*domain.Session, error)
	FindByUserAndToken(ctx context.Context, userID, token string, tokenType domain.TokenType) (*domain.Session, error)
	// Deactivate sets the session inactive. It reports false when no active row matched.
	Deactivate(ctx context.Context, id string) (bool, error)
	// DeactivateByUserAndToken deactivates the active session of userID carrying token.
	// It reports false when no active row matched.
	DeactivateByUserAndToken(ctx context.Context, userID, token string, tokenType domain.TokenType) (bool, error)
	// Supersede deactivates oldID and inserts next in one transaction. It returns
	// ErrNotActive, with nothing written, when oldID is missing or already inactive.
	Supersede(ctx context.Context, oldID string, next *domain.Session) error
	// DeactivateAllByUser deactivates every session of userID and returns how many were active.
	DeactivateAllByUser(ctx context.Context, userID string) (int64, error)
	// Paginate lists active sessions of userID matching f, newest first. page is 1-based.
	Paginate(ctx context.Context, userID string, f domain.Filter, page, perPage int) (*domain.Page, error)
}
