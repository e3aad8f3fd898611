package repository

import (
	"context"
	"sync"
	"time"

	"github.com/meisaku0/backend/internal/user/domain"
)

// MemoryRepository is an in-memory Repository for development and tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	emails    map[string]*domain.Email    // by user id
	passwords map[string]*domain.Password // by user id
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[string]*domain.User),
		emails:    make(map[string]*domain.Email),
		passwords: make(map[string]*domain.Password),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyUser(r.users[id]), nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usernameTakenLocked(username, exceptID), nil
}

func (r *MemoryRepository) usernameTakenLocked(username, exceptID string) bool {
	for _, u := range r.users {
		if u.Username == username && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) EmailTaken(ctx context.Context, address string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.emailTakenLocked(address), nil
}

func (r *MemoryRepository) emailTakenLocked(address string) bool {
	for _, e := range r.emails {
		if e.Address == address {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateWithCredentials(ctx context.Context, u *domain.User, e *domain.Email, p *domain.Password) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usernameTakenLocked(u.Username, "") {
		return ErrUsernameTaken
	}
	if r.emailTakenLocked(e.Address) {
		return ErrEmailTaken
	}
	uc, ec, pc := *u, *e, *p
	ec.UserID, pc.UserID = u.ID, u.ID
	r.users[u.ID] = &uc
	r.emails[u.ID] = &ec
	r.passwords[u.ID] = &pc
	return nil
}

func (r *MemoryRepository) UpdateUsername(ctx context.Context, id, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usernameTakenLocked(username, id) {
		return ErrUsernameTaken
	}
	if u := r.users[id]; u != nil {
		u.Username = username
	}
	return nil
}

func (r *MemoryRepository) GetEmailByUser(ctx context.Context, userID string) (*domain.Email, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.emails[userID]
	if e == nil {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (r *MemoryRepository) ActivateEmail(ctx context.Context, token, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.emails {
		if !e.Active && e.ActivationToken == token {
			e.Active = true
			e.ActivationToken = next
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) GetPasswordByUser(ctx context.Context, userID string) (*domain.Password, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyPassword(r.passwords[userID]), nil
}

func (r *MemoryRepository) GetPasswordByResetToken(ctx context.Context, token string) (*domain.Password, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if token == "" {
		return nil, nil
	}
	for _, p := range r.passwords {
		if p.ResetToken == token {
			return copyPassword(p), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, passwordID, hash, salt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.passwordByIDLocked(passwordID); p != nil {
		p.Hash, p.Salt, p.ResetToken = hash, salt, ""
	}
	return nil
}

func (r *MemoryRepository) SetResetToken(ctx context.Context, passwordID, token string, retryUntil time.Time, deliver func(ctx context.Context) error) error {
	r.mu.Lock()
	p := r.passwordByIDLocked(passwordID)
	var prev domain.Password
	if p != nil {
		prev = *p
		retry := retryUntil
		p.ResetToken, p.ResetTokenRetry = token, &retry
	}
	r.mu.Unlock()

	if err := deliver(ctx); err != nil {
		if p != nil {
			r.mu.Lock()
			p.ResetToken, p.ResetTokenRetry = prev.ResetToken, prev.ResetTokenRetry
			r.mu.Unlock()
		}
		return err
	}
	return nil
}

func (r *MemoryRepository) passwordByIDLocked(id string) *domain.Password {
	for _, p := range r.passwords {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// SetBan marks a user banned with reason. It exists for tests and seeding.
func (r *MemoryRepository) SetBan(id string, ban bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.users[id]; u != nil {
		u.Ban, u.BanReason = ban, reason
	}
}

// DeletePassword removes the password record of userID. It exists for tests.
func (r *MemoryRepository) DeletePassword(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.passwords, userID)
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func copyPassword(p *domain.Password) *domain.Password {
	if p == nil {
		return nil
	}
	c := *p
	if p.ResetTokenRetry != nil {
		t := *p.ResetTokenRetry
		c.ResetTokenRetry = &t
	}
	return &c
}
