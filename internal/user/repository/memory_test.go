package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meisaku0/backend/internal/user/domain"
)

func seed(t *testing.T, repo *MemoryRepository, id, username, address string) {
	t.Helper()
	now := time.Now()
	err := repo.CreateWithCredentials(context.Background(),
		&domain.User{ID: id, Username: username, CreatedAt: now, UpdatedAt: now},
		&domain.Email{ID: "e-" + id, Address: address, ActivationToken: "act-" + id},
		&domain.Password{ID: "p-" + id, Hash: "h", Salt: "s"})
	require.NoError(t, err)
}

func TestMemoryRepository_CreateWithCredentials_Uniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	seed(t, repo, "u1", "alice", "alice@example.com")
	ctx := context.Background()

	err := repo.CreateWithCredentials(ctx, &domain.User{ID: "u2", Username: "alice"},
		&domain.Email{ID: "e2", Address: "other@example.com"}, &domain.Password{ID: "p2"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = repo.CreateWithCredentials(ctx, &domain.User{ID: "u2", Username: "bob"},
		&domain.Email{ID: "e2", Address: "alice@example.com"}, &domain.Password{ID: "p2"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	u, _ := repo.GetByID(ctx, "u2")
	assert.Nil(t, u, "failed creation leaves nothing behind")

	u, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
	p, _ := repo.GetPasswordByUser(ctx, "u1")
	require.NotNil(t, p)
	assert.Equal(t, "u1", p.UserID)
}

func TestMemoryRepository_UsernameTaken(t *testing.T) {
	repo := NewMemoryRepository()
	seed(t, repo, "u1", "alice", "a@example.com")
	ctx := context.Background()

	taken, _ := repo.UsernameTaken(ctx, "alice", "")
	assert.True(t, taken)
	taken, _ = repo.UsernameTaken(ctx, "alice", "u1")
	assert.False(t, taken, "own username does not count")
	assert.NoError(t, repo.UpdateUsername(ctx, "u1", "alice2"))

	seed(t, repo, "u2", "bob", "b@example.com")
	assert.ErrorIs(t, repo.UpdateUsername(ctx, "u2", "alice2"), ErrUsernameTaken)
}

func TestMemoryRepository_ActivateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	seed(t, repo, "u1", "alice", "a@example.com")
	ctx := context.Background()

	ok, err := repo.ActivateEmail(ctx, "act-u1", "rotated")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = repo.ActivateEmail(ctx, "act-u1", "again")
	assert.False(t, ok, "token was rotated")
	ok, _ = repo.ActivateEmail(ctx, "rotated", "again")
	assert.False(t, ok, "email already active")

	e, _ := repo.GetEmailByUser(ctx, "u1")
	assert.True(t, e.Active)
}

func TestMemoryRepository_SetResetToken_RollsBackOnDeliveryFailure(t *testing.T) {
	repo := NewMemoryRepository()
	seed(t, repo, "u1", "alice", "a@example.com")
	ctx := context.Background()
	until := time.Now().Add(time.Hour)

	err := repo.SetResetToken(ctx, "p-u1", "tok", until, func(context.Context) error {
		return errors.New("smtp down")
	})
	require.Error(t, err)
	p, _ := repo.GetPasswordByUser(ctx, "u1")
	assert.Empty(t, p.ResetToken)
	assert.Nil(t, p.ResetTokenRetry)

	require.NoError(t, repo.SetResetToken(ctx, "p-u1", "tok", until, func(context.Context) error { return nil }))
	p, _ = repo.GetPasswordByResetToken(ctx, "tok")
	require.NotNil(t, p)
	assert.True(t, p.ResetTokenRetry.Equal(until))

	require.NoError(t, repo.UpdatePasswordHash(ctx, "p-u1", "h2", "s2"))
	p, _ = repo.GetPasswordByResetToken(ctx, "tok")
	assert.Nil(t, p, "new hash clears the reset token")
	p, _ = repo.GetPasswordByUser(ctx, "u1")
	assert.Equal(t, "h2", p.Hash)
	assert.NotNil(t, p.ResetTokenRetry, "cooldown survives the reset")
}
