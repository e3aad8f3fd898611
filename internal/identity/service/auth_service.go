package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meisaku0/backend/internal/audit"
	auditdomain "github.com/meisaku0/backend/internal/audit/domain"
	"github.com/meisaku0/backend/internal/autherr"
	identitydomain "github.com/meisaku0/backend/internal/identity/domain"
	"github.com/meisaku0/backend/internal/platform/clock"
	"github.com/meisaku0/backend/internal/security"
	sessiondomain "github.com/meisaku0/backend/internal/session/domain"
	sessionrepo "github.com/meisaku0/backend/internal/session/repository"
	"github.com/meisaku0/backend/internal/telemetry"
	telemetrydomain "github.com/meisaku0/backend/internal/telemetry/domain"
	telemetryotel "github.com/meisaku0/backend/internal/telemetry/otel"
	userdomain "github.com/meisaku0/backend/internal/user/domain"
	"github.com/meisaku0/backend/internal/useragent"
)

const (
	// DefaultAccessTTL is the access token lifetime; refresh tokens live twice as long.
	DefaultAccessTTL = 12 * time.Hour
	// MaxPerPage bounds session listing page sizes.
	MaxPerPage = 99

	tokenTypeBearer = "Bearer"
	eventSource     = "auth_service"
)

// AuthResult is returned by SignIn and Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime in seconds
	TokenType    string
	Username     string
	UserID       string
	SessionID    string
}

// ClientInfo describes the caller of a sign-in or refresh; it is stored on the session row.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	GetPasswordByUser(ctx context.Context, userID string) (*userdomain.Password, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Insert(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	FindActiveAccess(ctx context.Context, id string) (*sessiondomain.Session, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	DeactivateByUserAndToken(ctx context.Context, userID, token string, tokenType sessiondomain.TokenType) (bool, error)
	Supersede(ctx context.Context, oldID string, next *sessiondomain.Session) error
	DeactivateAllByUser(ctx context.Context, userID string) (int64, error)
	Paginate(ctx context.Context, userID string, f sessiondomain.Filter, page, perPage int) (*sessiondomain.Page, error)
}

// Tokens issues and verifies signed tokens; *security.TokenCodec satisfies it.
type Tokens interface {
	Issue(subject string, scopes []string, ttl time.Duration) (string, error)
	VerifyScope(token, scope string) (*security.Claims, error)
}

// PasswordVerifier checks a password against a stored hash; *security.Hasher satisfies it.
type PasswordVerifier interface {
	Verify(password, encoded string) bool
}

// Deps are the collaborators of AuthService. Audit, Events and Metrics are optional.
type Deps struct {
	Users     UserRepo
	Sessions  SessionRepo
	Tokens    Tokens
	Passwords PasswordVerifier
	Clock     clock.Clock
	Audit     audit.AuditLogger
	Events    telemetry.EventEmitter
	Metrics   *telemetryotel.AuthMetrics
}

// Config tunes token lifetimes and the refresh policy.
type Config struct {
	AccessTTL time.Duration
	// RotateRefreshTokens issues a new refresh token on every refresh. When false the
	// presented refresh token is returned unchanged.
	RotateRefreshTokens bool
}

// AuthService owns the session lifecycle: sign-in, refresh, sign-out and revocation.
// It keeps no state between calls and is safe for concurrent use.
type AuthService struct {
	deps       Deps
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
}

// NewAuthService returns an AuthService. A zero AccessTTL means DefaultAccessTTL.
func NewAuthService(deps Deps, cfg Config) *AuthService {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &AuthService{deps: deps, accessTTL: ttl, refreshTTL: 2 * ttl, rotate: cfg.RotateRefreshTokens}
}

// SignIn verifies username and password and opens a new access session. Unknown user,
// missing password and wrong password all fail with InvalidCredentials; the password is
// checked before the ban state so a ban reason is never revealed to a wrong password.
func (s *AuthService) SignIn(ctx context.Context, username, password string, client ClientInfo) (*AuthResult, error) {
	res, err := s.signIn(ctx, username, password, client)
	s.deps.Metrics.SignIn(ctx, errCode(err))
	if err != nil {
		var userID string
		if res != nil {
			userID = res.UserID
		}
		s.record(ctx, userID, "", client.IP, auditdomain.ActionSignInFailure, telemetrydomain.EventSignInFailure,
			map[string]string{"code": errCode(err), "reason": reason(err)})
		return nil, err
	}
	s.record(ctx, res.UserID, res.SessionID, client.IP, auditdomain.ActionSignIn, telemetrydomain.EventSignIn, nil)
	return res, nil
}

// signIn returns a partial result carrying only UserID on failures after the user was found.
func (s *AuthService) signIn(ctx context.Context, username, password string, client ClientInfo) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, autherr.WithReason(autherr.InvalidCredentials, autherr.ReasonUserNotFound)
	}
	user, err := s.deps.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, autherr.Storage(err)
	}
	if user == nil {
		return nil, autherr.WithReason(autherr.InvalidCredentials, autherr.ReasonUserNotFound)
	}
	known := &AuthResult{UserID: user.ID}
	pw, err := s.deps.Users.GetPasswordByUser(ctx, user.ID)
	if err != nil {
		return known, autherr.Storage(err)
	}
	if pw == nil || pw.Hash == "" {
		return known, autherr.WithReason(autherr.InvalidCredentials, autherr.ReasonNoPassword)
	}
	if !s.deps.Passwords.Verify(password, pw.Hash) {
		return known, autherr.WithReason(autherr.InvalidCredentials, autherr.ReasonWrongPassword)
	}
	if user.Ban {
		return known, autherr.New(autherr.UserBanned, user.BanReasonOrDefault())
	}

	sessionID := uuid.NewString()
	access, refresh, err := s.issuePair(user.ID, sessionID, "")
	if err != nil {
		return known, err
	}
	sess := s.newSession(sessionID, user.ID, access, client)
	if err := s.deps.Sessions.Insert(ctx, sess); err != nil {
		return known, autherr.Storage(err)
	}
	return s.result(user, sess, access, refresh), nil
}

// Refresh exchanges a refresh token for a new access session. The refresh token's
// subject is the session it was issued with; that session must still be the active
// access session, and it is superseded by the new one atomically.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResult, error) {
	res, oldID, err := s.refresh(ctx, refreshToken, client)
	s.deps.Metrics.Refresh(ctx, errCode(err))
	if err != nil {
		s.emit(ctx, "", oldID, client.IP, telemetrydomain.EventRefreshFailure, map[string]string{"code": errCode(err)})
		return nil, err
	}
	s.record(ctx, res.UserID, res.SessionID, client.IP, auditdomain.ActionRefresh, telemetrydomain.EventRefresh,
		map[string]string{"previous_session_id": oldID})
	return res, nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResult, string, error) {
	claims, err := s.deps.Tokens.VerifyScope(refreshToken, security.ScopeRefresh)
	if errors.Is(err, autherr.ErrMissingScope) {
		return nil, "", autherr.New(autherr.InvalidRefreshToken, "refresh scope required")
	}
	if err != nil {
		return nil, "", err
	}
	oldID := claims.Subject

	old, err := s.deps.Sessions.FindActiveAccess(ctx, oldID)
	if err != nil {
		return nil, oldID, autherr.Storage(err)
	}
	if old == nil {
		return nil, oldID, autherr.ErrInvalidAccessToken
	}
	user, err := s.deps.Users.GetByID(ctx, old.UserID)
	if err != nil {
		return nil, oldID, autherr.Storage(err)
	}
	if user == nil {
		return nil, oldID, autherr.New(autherr.Unauthorized, "user not found")
	}
	if user.Ban {
		return nil, oldID, autherr.New(autherr.UserBanned, user.BanReasonOrDefault())
	}

	sessionID := uuid.NewString()
	keep := ""
	if !s.rotate {
		keep = refreshToken
	}
	access, refresh, err := s.issuePair(user.ID, sessionID, keep)
	if err != nil {
		return nil, oldID, err
	}
	next := s.newSession(sessionID, user.ID, access, client)
	if err := s.deps.Sessions.Supersede(ctx, old.ID, next); err != nil {
		if errors.Is(err, sessionrepo.ErrNotActive) {
			return nil, oldID, autherr.ErrInvalidAccessToken
		}
		return nil, oldID, autherr.Storage(err)
	}
	return s.result(user, next, access, refresh), oldID, nil
}

// SignOut deactivates the session the identity's access token was issued with.
// It fails with Unauthorized when that session is no longer active.
func (s *AuthService) SignOut(ctx context.Context, id *identitydomain.Identity) error {
	if id == nil || id.Token == "" {
		return autherr.ErrUnauthorized
	}
	ok, err := s.deps.Sessions.DeactivateByUserAndToken(ctx, id.UserID(), id.Token, sessiondomain.TokenTypeAccess)
	if err != nil {
		return autherr.Storage(err)
	}
	if !ok {
		return autherr.New(autherr.Unauthorized, "session is not active")
	}
	s.deps.Metrics.SignOut(ctx)
	s.record(ctx, id.UserID(), id.SessionID, "", auditdomain.ActionSignOut, telemetrydomain.EventSignOut, nil)
	return nil
}

// Revoke deactivates one session of the identity's user. An empty sessionID revokes all
// of them. Nothing is written when the session is missing, foreign or already inactive.
func (s *AuthService) Revoke(ctx context.Context, id *identitydomain.Identity, sessionID string) error {
	if id == nil {
		return autherr.ErrUnauthorized
	}
	if sessionID == "" {
		return s.RevokeAll(ctx, id.UserID())
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return autherr.New(autherr.InvalidInput, "session id must be a UUID")
	}
	sess, err := s.deps.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return autherr.Storage(err)
	}
	if sess == nil {
		return autherr.ErrSessionNotFound
	}
	if sess.UserID != id.UserID() {
		return autherr.ErrSessionNotBelongToUser
	}
	if !sess.Active {
		return autherr.ErrSessionAlreadyRevoked
	}
	ok, err := s.deps.Sessions.Deactivate(ctx, sessionID)
	if err != nil {
		return autherr.Storage(err)
	}
	if !ok {
		return autherr.ErrSessionAlreadyRevoked
	}
	s.deps.Metrics.Revoked(ctx, "one", 1)
	s.record(ctx, id.UserID(), sessionID, "", auditdomain.ActionRevoke, telemetrydomain.EventRevoke, nil)
	return nil
}

// RevokeAll deactivates every session of userID. It is idempotent.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.deps.Sessions.DeactivateAllByUser(ctx, userID)
	if err != nil {
		return autherr.Storage(err)
	}
	s.deps.Metrics.Revoked(ctx, "all", n)
	s.record(ctx, userID, "", "", auditdomain.ActionRevokeAll, telemetrydomain.EventRevokeAll, nil)
	return nil
}

// ListSessions returns one page of the user's active sessions, newest first.
// page and perPage must be in 1..MaxPerPage.
func (s *AuthService) ListSessions(ctx context.Context, userID string, f sessiondomain.Filter, page, perPage int) (*sessiondomain.Page, error) {
	if page < 1 || page > MaxPerPage {
		return nil, autherr.Newf(autherr.InvalidInput, "page must be between 1 and %d", MaxPerPage)
	}
	if perPage < 1 || perPage > MaxPerPage {
		return nil, autherr.Newf(autherr.InvalidInput, "per_page must be between 1 and %d", MaxPerPage)
	}
	p, err := s.deps.Sessions.Paginate(ctx, userID, f, page, perPage)
	if err != nil {
		return nil, autherr.Storage(err)
	}
	return p, nil
}

// issuePair issues an access token for userID and a refresh token bound to sessionID.
// A non-empty keepRefresh is returned instead of a new refresh token.
func (s *AuthService) issuePair(userID, sessionID, keepRefresh string) (string, string, error) {
	access, err := s.deps.Tokens.Issue(userID, []string{security.ScopeAccess}, s.accessTTL)
	if err != nil {
		return "", "", classify(err)
	}
	if keepRefresh != "" {
		return access, keepRefresh, nil
	}
	refresh, err := s.deps.Tokens.Issue(sessionID, []string{security.ScopeRefresh}, s.refreshTTL)
	if err != nil {
		return "", "", classify(err)
	}
	return access, refresh, nil
}

func (s *AuthService) newSession(id, userID, token string, client ClientInfo) *sessiondomain.Session {
	ua := useragent.Parse(client.UserAgent)
	now := s.deps.Clock.Now()
	return &sessiondomain.Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		TokenType: sessiondomain.TokenTypeAccess,
		IP:        client.IP,
		OS:        ua.OS,
		Device:    ua.Device,
		Browser:   ua.Browser,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *AuthService) result(user *userdomain.User, sess *sessiondomain.Session, access, refresh string) *AuthResult {
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL / time.Second),
		TokenType:    tokenTypeBearer,
		Username:     user.Username,
		UserID:       user.ID,
		SessionID:    sess.ID,
	}
}

// record writes the audit entry and emits the auth event for one transition.
func (s *AuthService) record(ctx context.Context, userID, sessionID, ip, action, eventType string, meta map[string]string) {
	if s.deps.Audit != nil {
		s.deps.Audit.LogEvent(ctx, userID, action, auditdomain.ResourceSession, sessionID)
	}
	s.emit(ctx, userID, sessionID, ip, eventType, meta)
}

func (s *AuthService) emit(ctx context.Context, userID, sessionID, ip, eventType string, meta map[string]string) {
	telemetry.EmitAsync(s.deps.Events, ctx, &telemetrydomain.AuthEvent{
		Type:      eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        ip,
		Source:    eventSource,
		Metadata:  meta,
		CreatedAt: s.deps.Clock.Now(),
	})
}

func classify(err error) error {
	var ae *autherr.Error
	if errors.As(err, &ae) {
		return err
	}
	return autherr.Wrap(autherr.Internal, err)
}

func errCode(err error) string {
	if err == nil {
		return ""
	}
	return autherr.KindOf(err).String()
}

func reason(err error) string {
	var ae *autherr.Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
