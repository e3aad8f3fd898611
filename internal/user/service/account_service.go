package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meisaku0/backend/internal/audit"
	auditdomain "github.com/meisaku0/backend/internal/audit/domain"
	"github.com/meisaku0/backend/internal/autherr"
	"github.com/meisaku0/backend/internal/mail"
	"github.com/meisaku0/backend/internal/platform/clock"
	"github.com/meisaku0/backend/internal/security"
	"github.com/meisaku0/backend/internal/user/domain"
	userrepo "github.com/meisaku0/backend/internal/user/repository"
)

const (
	// ResetTokenTTL is the lifetime of a reset link and the cooldown between requests.
	ResetTokenTTL = time.Hour

	resetSubject      = "Reset password for your Meisaku account"
	activationSubject = "Activate your Meisaku account"
)

// PasswordHasher hashes and verifies passwords; *security.Hasher satisfies it.
type PasswordHasher interface {
	Hash(password string) (hash, salt string, err error)
	Verify(password, encoded string) bool
}

// Tokens issues and verifies signed tokens; *security.TokenCodec satisfies it.
type Tokens interface {
	Issue(subject string, scopes []string, ttl time.Duration) (string, error)
	VerifyScope(token, scope string) (*security.Claims, error)
}

// Deps are the collaborators of AccountService. Audit may be nil.
type Deps struct {
	Users  userrepo.Repository
	Hasher PasswordHasher
	Tokens Tokens
	Mailer mail.Mailer
	Clock  clock.Clock
	Audit  audit.AuditLogger
	// BaseAPIURL prefixes links sent by mail, e.g. https://api.example.com.
	BaseAPIURL string
}

// CreatedUser identifies the rows written by CreateUser.
type CreatedUser struct {
	ID         string
	Username   string
	EmailID    string
	PasswordID string
}

// Profile is the current user as returned by Me.
type Profile struct {
	ID          string
	Username    string
	Email       string
	EmailActive bool
	CreatedAt   time.Time
}

// AccountService manages registration, email activation and credentials.
type AccountService struct {
	deps Deps
}

// NewAccountService returns an AccountService.
func NewAccountService(deps Deps) *AccountService {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Mailer == nil {
		deps.Mailer = mail.LogMailer{}
	}
	return &AccountService{deps: deps}
}

// CreateUser registers a user with an inactive email and a password, then mails the
// activation link. A mail failure is logged and does not undo the registration.
func (s *AccountService) CreateUser(ctx context.Context, username, email, password string) (*CreatedUser, error) {
	taken, err := s.deps.Users.UsernameTaken(ctx, username, "")
	if err != nil {
		return nil, autherr.Storage(err)
	}
	if taken {
		return nil, autherr.New(autherr.UsernameTaken, username)
	}
	taken, err = s.deps.Users.EmailTaken(ctx, email)
	if err != nil {
		return nil, autherr.Storage(err)
	}
	if taken {
		return nil, autherr.ErrEmailTaken
	}

	hash, salt, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return nil, autherr.Wrap(autherr.PasswordHashingFailure, err)
	}
	now := s.deps.Clock.Now()
	u := &domain.User{ID: uuid.NewString(), Username: username, CreatedAt: now, UpdatedAt: now}
	e := &domain.Email{
		ID:              uuid.NewString(),
		UserID:          u.ID,
		Address:         email,
		ActivationToken: uuid.NewString(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	p := &domain.Password{ID: uuid.NewString(), UserID: u.ID, Hash: hash, Salt: salt, CreatedAt: now, UpdatedAt: now}
	if err := s.deps.Users.CreateWithCredentials(ctx, u, e, p); err != nil {
		return nil, mapUnique(err, username)
	}

	msg := &mail.Message{
		To:       []string{email},
		Subject:  activationSubject,
		Template: mail.TemplateActivateEmail,
		Data: map[string]string{
			"user_name":       username,
			"activation_link": s.link("/user/activate-email", e.ActivationToken),
		},
	}
	if err := s.deps.Mailer.Send(ctx, msg); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("account: activation mail not sent")
	}
	s.audit(ctx, u.ID, auditdomain.ActionUserCreate, auditdomain.ResourceUser, "")
	return &CreatedUser{ID: u.ID, Username: u.Username, EmailID: e.ID, PasswordID: p.ID}, nil
}

// ActivateEmail activates the inactive email holding token and rotates the token so
// the link cannot be replayed.
func (s *AccountService) ActivateEmail(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return autherr.ErrInvalidActivationToken
	}
	ok, err := s.deps.Users.ActivateEmail(ctx, token, uuid.NewString())
	if err != nil {
		return autherr.Storage(err)
	}
	if !ok {
		return autherr.ErrInvalidActivationToken
	}
	s.audit(ctx, "", auditdomain.ActionEmailActivate, auditdomain.ResourceEmail, "")
	return nil
}

// ChangePassword replaces the password of userID after checking current. Any pending
// reset token is cleared.
func (s *AccountService) ChangePassword(ctx context.Context, userID, current, next string) error {
	pw, err := s.deps.Users.GetPasswordByUser(ctx, userID)
	if err != nil {
		return autherr.Storage(err)
	}
	if pw == nil {
		return autherr.New(autherr.Unauthorized, "password not available or disabled")
	}
	if !s.deps.Hasher.Verify(current, pw.Hash) {
		return autherr.ErrPasswordMismatch
	}
	if err := s.setPassword(ctx, pw.ID, next); err != nil {
		return err
	}
	s.audit(ctx, userID, auditdomain.ActionPasswordChange, auditdomain.ResourcePassword, "")
	return nil
}

// RequestPasswordReset stores a fresh reset token for username and mails a signed link
// carrying it. Requests within ResetTokenTTL of the previous one fail with
// ResetAlreadySent. When the mail cannot be queued the token is not stored.
func (s *AccountService) RequestPasswordReset(ctx context.Context, username string) error {
	user, err := s.deps.Users.GetByUsername(ctx, username)
	if err != nil {
		return autherr.Storage(err)
	}
	if user == nil {
		return autherr.ErrUserNotFound
	}
	pw, err := s.deps.Users.GetPasswordByUser(ctx, user.ID)
	if err != nil {
		return autherr.Storage(err)
	}
	if pw == nil {
		return autherr.Wrap(autherr.Internal, fmt.Errorf("user %s has no password record", user.ID))
	}
	now := s.deps.Clock.Now()
	if pw.ResetCoolingDown(now) {
		return autherr.ErrResetAlreadySent
	}
	email, err := s.deps.Users.GetEmailByUser(ctx, user.ID)
	if err != nil {
		return autherr.Storage(err)
	}
	if email == nil {
		return autherr.Wrap(autherr.Internal, fmt.Errorf("user %s has no email", user.ID))
	}

	resetToken := uuid.NewString()
	signed, err := s.deps.Tokens.Issue(resetToken, []string{security.ScopeResetPassword}, ResetTokenTTL)
	if err != nil {
		var ae *autherr.Error
		if errors.As(err, &ae) {
			return err
		}
		return autherr.Wrap(autherr.Internal, err)
	}
	msg := &mail.Message{
		To:       []string{email.Address},
		Subject:  resetSubject,
		Template: mail.TemplateResetPassword,
		Data: map[string]string{
			"user_name":  user.Username,
			"reset_link": s.link("/user/reset-password", signed),
		},
	}
	deliver := func(ctx context.Context) error {
		if err := s.deps.Mailer.Send(ctx, msg); err != nil {
			return autherr.Wrap(autherr.MailFailure, err)
		}
		return nil
	}
	if err := s.deps.Users.SetResetToken(ctx, pw.ID, resetToken, now.Add(ResetTokenTTL), deliver); err != nil {
		return autherr.Storage(err)
	}
	s.audit(ctx, user.ID, auditdomain.ActionPasswordResetRequest, auditdomain.ResourcePassword, "")
	return nil
}

// ResetPassword sets a new password for the holder of a reset link token. The token
// must carry the reset-password scope and reference the pending reset.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.deps.Tokens.VerifyScope(token, security.ScopeResetPassword)
	if errors.Is(err, autherr.ErrMissingScope) {
		return autherr.ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	pw, err := s.deps.Users.GetPasswordByResetToken(ctx, claims.Subject)
	if err != nil {
		return autherr.Storage(err)
	}
	if pw == nil {
		return autherr.ErrInvalidResetToken
	}
	if err := s.setPassword(ctx, pw.ID, newPassword); err != nil {
		return err
	}
	s.audit(ctx, pw.UserID, auditdomain.ActionPasswordReset, auditdomain.ResourcePassword, "")
	return nil
}

// Me returns the profile of a non-banned user.
func (s *AccountService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, autherr.Storage(err)
	}
	if user == nil || user.Ban {
		return nil, autherr.ErrUserNotFound
	}
	p := &Profile{ID: user.ID, Username: user.Username, CreatedAt: user.CreatedAt}
	email, err := s.deps.Users.GetEmailByUser(ctx, user.ID)
	if err != nil {
		return nil, autherr.Storage(err)
	}
	if email != nil {
		p.Email, p.EmailActive = email.Address, email.Active
	}
	return p, nil
}

// ChangeUsername renames userID. It fails with UsernameTaken when another user holds username.
func (s *AccountService) ChangeUsername(ctx context.Context, userID, username string) error {
	taken, err := s.deps.Users.UsernameTaken(ctx, username, userID)
	if err != nil {
		return autherr.Storage(err)
	}
	if taken {
		return autherr.New(autherr.UsernameTaken, username)
	}
	if err := s.deps.Users.UpdateUsername(ctx, userID, username); err != nil {
		return mapUnique(err, username)
	}
	s.audit(ctx, userID, auditdomain.ActionUsernameChange, auditdomain.ResourceUser, username)
	return nil
}

func (s *AccountService) setPassword(ctx context.Context, passwordID, password string) error {
	hash, salt, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return autherr.Wrap(autherr.PasswordHashingFailure, err)
	}
	if err := s.deps.Users.UpdatePasswordHash(ctx, passwordID, hash, salt); err != nil {
		return autherr.Storage(err)
	}
	return nil
}

func (s *AccountService) link(path, token string) string {
	return s.deps.BaseAPIURL + path + "?token=" + url.QueryEscape(token)
}

func (s *AccountService) audit(ctx context.Context, userID, action, resource, metadata string) {
	if s.deps.Audit != nil {
		s.deps.Audit.LogEvent(ctx, userID, action, resource, metadata)
	}
}

func mapUnique(err error, username string) error {
	switch {
	case errors.Is(err, userrepo.ErrUsernameTaken):
		return autherr.New(autherr.UsernameTaken, username)
	case errors.Is(err, userrepo.ErrEmailTaken):
		return autherr.ErrEmailTaken
	default:
		return autherr.Storage(err)
	}
}
