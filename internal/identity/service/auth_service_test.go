package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditdomain "github.com/meisaku0/backend/internal/audit/domain"
	"github.com/meisaku0/backend/internal/autherr"
	identitydomain "github.com/meisaku0/backend/internal/identity/domain"
	"github.com/meisaku0/backend/internal/identity/guard"
	"github.com/meisaku0/backend/internal/security"
	sessiondomain "github.com/meisaku0/backend/internal/session/domain"
	sessionrepo "github.com/meisaku0/backend/internal/session/repository"
	userdomain "github.com/meisaku0/backend/internal/user/domain"
	userrepo "github.com/meisaku0/backend/internal/user/repository"
)

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAudit) LogEvent(_ context.Context, _, action, _, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func (a *recordingAudit) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, got := range a.actions {
		if got == action {
			return true
		}
	}
	return false
}

type fixture struct {
	clock    *security.TestClock
	codec    *security.TokenCodec
	users    *userrepo.MemoryRepository
	sessions *sessionrepo.MemoryRepository
	audit    *recordingAudit
	svc      *AuthService
}

func newFixture(t *testing.T, rotate bool) *fixture {
	t.Helper()
	clk := security.NewTestClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	hasher := security.NewTestHasher()
	f := &fixture{
		clock:    clk,
		codec:    security.NewTestTokenCodec(clk),
		users:    userrepo.NewMemoryRepository(),
		sessions: sessionrepo.NewMemoryRepository(),
		audit:    &recordingAudit{},
	}
	f.addUser(t, hasher, "u1", "alice", "secret1")
	f.addUser(t, hasher, "u2", "bob", "hunter22")
	f.svc = NewAuthService(Deps{
		Users:     f.users,
		Sessions:  f.sessions,
		Tokens:    f.codec,
		Passwords: hasher,
		Clock:     clk,
		Audit:     f.audit,
	}, Config{RotateRefreshTokens: rotate})
	return f
}

func (f *fixture) addUser(t *testing.T, h *security.Hasher, id, username, password string) {
	t.Helper()
	hash, salt, err := h.Hash(password)
	require.NoError(t, err)
	require.NoError(t, f.users.CreateWithCredentials(context.Background(),
		&userdomain.User{ID: id, Username: username},
		&userdomain.Email{ID: "e-" + id, Address: username + "@example.com"},
		&userdomain.Password{ID: "p-" + id, Hash: hash, Salt: salt}))
}

func (f *fixture) guardDeps() guard.Deps {
	return guard.Deps{Tokens: f.codec, Users: f.users, Sessions: f.sessions}
}

func (f *fixture) authenticate(token string) (*identitydomain.Identity, error) {
	return guard.Authenticate(context.Background(), "Bearer "+token, f.guardDeps())
}

func (f *fixture) signIn(t *testing.T, username, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.SignIn(context.Background(), username, password, ClientInfo{IP: "10.0.0.1", UserAgent: firefoxUA})
	require.NoError(t, err)
	return res
}

func TestScenario_SignInRefreshRevokeAll(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	first := f.signIn(t, "alice", "secret1")
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)
	assert.Equal(t, int64(43200), first.ExpiresIn)
	assert.Equal(t, "Bearer", first.TokenType)
	assert.Equal(t, "alice", first.Username)
	assert.Equal(t, "u1", first.UserID)

	second, err := f.svc.Refresh(ctx, first.RefreshToken, ClientInfo{IP: "10.0.0.2", UserAgent: firefoxUA})
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	_, err = f.authenticate(first.AccessToken)
	assert.ErrorIs(t, err, autherr.ErrInvalidAccessToken)
	id, err := f.authenticate(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, second.SessionID, id.SessionID)

	require.NoError(t, f.svc.RevokeAll(ctx, "u1"))
	_, err = f.authenticate(second.AccessToken)
	assert.ErrorIs(t, err, autherr.ErrInvalidAccessToken)
}

func TestSignIn_CreatesOneActiveAccessSession(t *testing.T) {
	f := newFixture(t, true)
	res := f.signIn(t, "alice", "secret1")

	assert.Equal(t, 1, f.sessions.Count("u1", sessiondomain.TokenTypeAccess))
	sess, err := f.sessions.GetByID(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, res.AccessToken, sess.Token)
	assert.Equal(t, "10.0.0.1", sess.IP)
	assert.Equal(t, "Firefox", sess.Browser)
	assert.Contains(t, sess.OS, "Linux")
	assert.True(t, sess.Active)
	assert.Equal(t, f.clock.Now(), sess.CreatedAt)

	claims, err := f.codec.VerifyScope(res.RefreshToken, security.ScopeRefresh)
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, claims.Subject)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), claims.ExpiresAt.Time)
	assert.True(t, f.audit.has(auditdomain.ActionSignIn))
}

func TestSignIn_Failures(t *testing.T) {
	f := newFixture(t, true)
	f.users.SetBan("u2", true, "spam")

	tests := []struct {
		name       string
		username   string
		password   string
		wantKind   autherr.Kind
		wantReason string
		wantDetail string
	}{
		{"unknown user", "mallory", "secret1", autherr.InvalidCredentials, autherr.ReasonUserNotFound, ""},
		{"wrong password", "alice", "secret2", autherr.InvalidCredentials, autherr.ReasonWrongPassword, ""},
		{"empty password", "alice", "", autherr.InvalidCredentials, autherr.ReasonUserNotFound, ""},
		{"banned wrong password", "bob", "nope", autherr.InvalidCredentials, autherr.ReasonWrongPassword, ""},
		{"banned", "bob", "hunter22", autherr.UserBanned, "", "spam"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.SignIn(context.Background(), tt.username, tt.password, ClientInfo{})
			require.Error(t, err)
			assert.Nil(t, res)
			var ae *autherr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.wantKind, ae.Kind)
			assert.Equal(t, tt.wantReason, ae.Reason)
			assert.Equal(t, tt.wantDetail, ae.Detail)
		})
	}
	assert.Zero(t, f.sessions.Count("u1", sessiondomain.TokenTypeAccess))
	assert.Zero(t, f.sessions.Count("u2", sessiondomain.TokenTypeAccess))
	assert.True(t, f.audit.has(auditdomain.ActionSignInFailure))
}

func TestSignIn_NoPasswordRecord(t *testing.T) {
	f := newFixture(t, true)
	f.users.DeletePassword("u1")

	_, err := f.svc.SignIn(context.Background(), "alice", "secret1", ClientInfo{})
	var ae *autherr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, autherr.InvalidCredentials, ae.Kind)
	assert.Equal(t, autherr.ReasonNoPassword, ae.Reason)
}

func TestSignIn_ClockError(t *testing.T) {
	f := newFixture(t, true)
	f.clock.Set(time.Time{})

	_, err := f.svc.SignIn(context.Background(), "alice", "secret1", ClientInfo{})
	assert.ErrorIs(t, err, autherr.ErrClock)
	assert.Zero(t, f.sessions.Count("u1", sessiondomain.TokenTypeAccess))
}

type failingInsert struct {
	*sessionrepo.MemoryRepository
}

func (failingInsert) Insert(context.Context, *sessiondomain.Session) error {
	return errors.New("connection reset")
}

func TestSignIn_StorageFailure(t *testing.T) {
	f := newFixture(t, true)
	svc := NewAuthService(Deps{
		Users:     f.users,
		Sessions:  failingInsert{f.sessions},
		Tokens:    f.codec,
		Passwords: security.NewTestHasher(),
		Clock:     f.clock,
	}, Config{})

	_, err := svc.SignIn(context.Background(), "alice", "secret1", ClientInfo{})
	assert.ErrorIs(t, err, autherr.ErrStorageFailure)
}

func TestRefresh_RotatesAndSupersedes(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	first := f.signIn(t, "alice", "secret1")

	second, err := f.svc.Refresh(ctx, first.RefreshToken, ClientInfo{IP: "10.0.0.9", UserAgent: firefoxUA})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, f.sessions.Count("u1", sessiondomain.TokenTypeAccess))

	old, err := f.sessions.GetByID(ctx, first.SessionID)
	require.NoError(t, err)
	assert.False(t, old.Active)
	next, err := f.sessions.GetByID(ctx, second.SessionID)
	require.NoError(t, err)
	assert.True(t, next.Active)
	assert.Equal(t, "10.0.0.9", next.IP)

	// The superseded refresh token is bound to an inactive session.
	_, err = f.svc.Refresh(ctx, first.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, autherr.ErrInvalidAccessToken)

	_, err = f.svc.Refresh(ctx, second.RefreshToken, ClientInfo{})
	require.NoError(t, err)
	assert.True(t, f.audit.has(auditdomain.ActionRefresh))
}

func TestRefresh_OutlivesAccessToken(t *testing.T) {
	f := newFixture(t, true)
	first := f.signIn(t, "alice", "secret1")
	f.clock.Advance(13 * time.Hour)

	_, err := f.authenticate(first.AccessToken)
	require.ErrorIs(t, err, autherr.ErrExpiredToken)

	second, err := f.svc.Refresh(context.Background(), first.RefreshToken, ClientInfo{})
	require.NoError(t, err)
	_, err = f.authenticate(second.AccessToken)
	assert.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.Refresh(context.Background(), second.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, autherr.ErrExpiredToken)
}

func TestRefresh_Failures(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.signIn(t, "alice", "secret1")

	_, err := f.svc.Refresh(ctx, res.AccessToken, ClientInfo{})
	assert.ErrorIs(t, err, autherr.ErrInvalidRefreshToken, "access token lacks refresh scope")

	_, err = f.svc.Refresh(ctx, res.RefreshToken+"x", ClientInfo{})
	assert.ErrorIs(t, err, autherr.ErrSignatureInvalid)

	unknown, err := f.codec.Issue(uuid.NewString(), []string{security.ScopeRefresh}, time.Hour)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, unknown, ClientInfo{})
	assert.ErrorIs(t, err, autherr.ErrInvalidAccessToken)

	f.users.SetBan("u1", true, "")
	_, err = f.svc.Refresh(ctx, res.RefreshToken, ClientInfo{})
	var ae *autherr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, autherr.UserBanned, ae.Kind)
	assert.Equal(t, userdomain.DefaultBanReason, ae.Detail)
	assert.Equal(t, 1, f.sessions.Count("u1", sessiondomain.TokenTypeAccess), "failed refresh leaves the session alone")
}

func TestRefresh_RevokedSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.signIn(t, "alice", "secret1")
	id, err := f.authenticate(res.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(ctx, id, res.SessionID))
	_, err = f.svc.Refresh(ctx, res.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, autherr.ErrInvalidAccessToken)
}

func TestRefresh_ConcurrentUseOfOneToken(t *testing.T) {
	f := newFixture(t, true)
	res := f.signIn(t, "alice", "secret1")

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Refresh(context.Background(), res.RefreshToken, ClientInfo{})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, autherr.ErrInvalidAccessToken)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.sessions.Count("u1", sessiondomain.TokenTypeAccess))
}

func TestSignOut(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.signIn(t, "alice", "secret1")
	other := f.signIn(t, "alice", "secret1")
	id, err := f.authenticate(res.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, id))
	_, err = f.authenticate(res.AccessToken)
	assert.ErrorIs(t, err, autherr.ErrInvalidAccessToken)
	_, err = f.authenticate(other.AccessToken)
	assert.NoError(t, err, "other sessions stay active")

	err = f.svc.SignOut(ctx, id)
	assert.ErrorIs(t, err, autherr.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.SignOut(ctx, nil), autherr.ErrUnauthorized)
	assert.True(t, f.audit.has(auditdomain.ActionSignOut))
}

func TestRevoke(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	mine := f.signIn(t, "alice", "secret1")
	spare := f.signIn(t, "alice", "secret1")
	theirs := f.signIn(t, "bob", "hunter22")
	id, err := f.authenticate(mine.AccessToken)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Revoke(ctx, id, "not-a-uuid"), autherr.ErrInvalidInput)
	assert.ErrorIs(t, f.svc.Revoke(ctx, id, uuid.NewString()), autherr.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Revoke(ctx, id, theirs.SessionID), autherr.ErrSessionNotBelongToUser)
	assert.Equal(t, 1, f.sessions.Count("u2", sessiondomain.TokenTypeAccess))

	require.NoError(t, f.svc.Revoke(ctx, id, spare.SessionID))
	assert.ErrorIs(t, f.svc.Revoke(ctx, id, spare.SessionID), autherr.ErrSessionAlreadyRevoked)
	assert.Equal(t, 1, f.sessions.Count("u1", sessiondomain.TokenTypeAccess))
	assert.True(t, f.audit.has(auditdomain.ActionRevoke))

	require.NoError(t, f.svc.Revoke(ctx, id, ""))
	assert.Zero(t, f.sessions.Count("u1", sessiondomain.TokenTypeAccess))
	assert.Equal(t, 1, f.sessions.Count("u2", sessiondomain.TokenTypeAccess))
	assert.True(t, f.audit.has(auditdomain.ActionRevokeAll))
}

func TestRevokeAll_Idempotent(t *testing.T) {
	f := newFixture(t, true)
	f.signIn(t, "alice", "secret1")

	require.NoError(t, f.svc.RevokeAll(context.Background(), "u1"))
	require.NoError(t, f.svc.RevokeAll(context.Background(), "u1"))
	assert.Zero(t, f.sessions.Count("u1", sessiondomain.TokenTypeAccess))
}

func TestListSessions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	var ids []string
	for range 3 {
		ids = append(ids, f.signIn(t, "alice", "secret1").SessionID)
		f.clock.Advance(time.Minute)
	}
	f.signIn(t, "bob", "hunter22")

	page, err := f.svc.ListSessions(ctx, "u1", sessiondomain.Filter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID, "newest first")
	assert.Equal(t, ids[1], page.Items[1].ID)

	page, err = f.svc.ListSessions(ctx, "u1", sessiondomain.Filter{Browser: "Chrome"}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	for _, bad := range [][2]int{{0, 10}, {1, 0}, {1, 100}, {100, 1}} {
		_, err := f.svc.ListSessions(ctx, "u1", sessiondomain.Filter{}, bad[0], bad[1])
		assert.ErrorIs(t, err, autherr.ErrInvalidInput, "page=%d per_page=%d", bad[0], bad[1])
	}
}

func TestNewAuthService_DefaultTTL(t *testing.T) {
	svc := NewAuthService(Deps{}, Config{})
	assert.Equal(t, DefaultAccessTTL, svc.accessTTL)
	assert.Equal(t, 2*DefaultAccessTTL, svc.refreshTTL)

	svc = NewAuthService(Deps{}, Config{AccessTTL: time.Hour})
	assert.Equal(t, 2*time.Hour, svc.refreshTTL)
}
