package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/meisaku0/backend/internal/session/domain"
)

// MemoryRepository is an in-memory Repository for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*domain.Session)}
}

// Insert stores a copy of s.
func (r *MemoryRepository) Insert(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.sessions[s.ID] = &c
	return nil
}

// GetByID returns the session for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copySession(r.sessions[id]), nil
}

// FindActiveAccess returns session id if it is an active access session, or nil.
func (r *MemoryRepository) FindActiveAccess(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.sessions[id]
	if s == nil || !s.Active || s.TokenType != domain.TokenTypeAccess {
		return nil, nil
	}
	return copySession(s), nil
}

// FindByUserAndToken returns the session issued with token, preferring active then newest rows.
func (r *MemoryRepository) FindByUserAndToken(ctx context.Context, userID, token string, tokenType domain.TokenType) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *domain.Session
	for _, s := range r.sessions {
		if s.UserID != userID || s.Token != token || s.TokenType != tokenType {
			continue
		}
		if found == nil || (s.Active && !found.Active) || (s.Active == found.Active && s.CreatedAt.After(found.CreatedAt)) {
			found = s
		}
	}
	return copySession(found), nil
}

// Deactivate marks session id inactive and reports whether it was active.
func (r *MemoryRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil || !s.Active {
		return false, nil
	}
	s.Active = false
	return true, nil
}

// DeactivateByUserAndToken deactivates the active sessions issued with token and reports whether any changed.
func (r *MemoryRepository) DeactivateByUserAndToken(ctx context.Context, userID, token string, tokenType domain.TokenType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	for _, s := range r.sessions {
		if s.Active && s.UserID == userID && s.Token == token && s.TokenType == tokenType {
			s.Active = false
			changed = true
		}
	}
	return changed, nil
}

// Supersede deactivates oldID and stores next under one lock. It returns ErrNotActive if oldID is not active.
func (r *MemoryRepository) Supersede(ctx context.Context, oldID string, next *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.sessions[oldID]
	if old == nil || !old.Active {
		return ErrNotActive
	}
	old.Active = false
	c := *next
	r.sessions[next.ID] = &c
	return nil
}

// DeactivateAllByUser deactivates every session of userID and returns how many were active.
func (r *MemoryRepository) DeactivateAllByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.Active {
			s.Active = false
			n++
		}
	}
	return n, nil
}

// Paginate returns one page of the active sessions of userID matching f, newest first.
func (r *MemoryRepository) Paginate(ctx context.Context, userID string, f domain.Filter, page, perPage int) (*domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	r.mu.RLock()
	var matched []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.Active && f.Matches(s) {
			matched = append(matched, copySession(s))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (page - 1) * perPage
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+perPage, len(matched))
	return domain.NewPage(matched[start:end], total, page, perPage), nil
}

// Count returns how many sessions of userID are active. Tests use it to check invariants.
func (r *MemoryRepository) Count(userID string, tokenType domain.TokenType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.TokenType == tokenType && s.Active {
			n++
		}
	}
	return n
}

func copySession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
