// Package autherr defines the typed error kinds produced by the token codec, the session
// lifecycle engine, the access guard and the account service. Internal code matches on
// kinds with errors.Is; the HTTP boundary renders them through Describe.
package autherr

import (
	"errors"
	"fmt"
)

// Kind identifies one failure class.
type Kind int

const (
	Internal Kind = iota
	InvalidCredentials
	UserBanned
	ExpiredToken
	SignatureInvalid
	MissingScope
	InvalidRefreshToken
	InvalidAccessToken
	Unauthorized
	SessionNotFound
	SessionAlreadyRevoked
	SessionNotBelongToUser
	PasswordHashingFailure
	StorageFailure
	ClockError
	InvalidInput
	UsernameTaken
	EmailTaken
	InvalidActivationToken
	PasswordMismatch
	ResetAlreadySent
	UserNotFound
	InvalidResetToken
	MailFailure
)

var kindNames = map[Kind]string{
	Internal:               "internal_error",
	InvalidCredentials:     "invalid_credentials",
	UserBanned:             "user_banned",
	ExpiredToken:           "expired_token",
	SignatureInvalid:       "signature_invalid",
	MissingScope:           "missing_scope",
	InvalidRefreshToken:    "invalid_refresh_token",
	InvalidAccessToken:     "invalid_access_token",
	Unauthorized:           "unauthorized",
	SessionNotFound:        "session_not_found",
	SessionAlreadyRevoked:  "session_already_revoked",
	SessionNotBelongToUser: "session_not_belong_to_user",
	PasswordHashingFailure: "password_hashing_failure",
	StorageFailure:         "storage_failure",
	ClockError:             "clock_error",
	InvalidInput:           "invalid_input",
	UsernameTaken:          "username_taken",
	EmailTaken:             "email_taken",
	InvalidActivationToken: "invalid_activation_token",
	PasswordMismatch:       "password_mismatch",
	ResetAlreadySent:       "reset_already_sent",
	UserNotFound:           "user_not_found",
	InvalidResetToken:      "invalid_reset_token",
	MailFailure:            "mail_failure",
}

// String returns the machine-readable code of k.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[Internal]
}

// Internal reasons. They are logged but never rendered to clients.
const (
	ReasonUserNotFound  = "user_not_found"
	ReasonWrongPassword = "wrong_password"
	ReasonNoPassword    = "no_password"
)

// Error is a classified failure. Detail is client-visible (e.g. the ban reason);
// Reason and Err are for logs only.
type Error struct {
	Kind   Kind
	Detail string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so the package-level
// sentinels work with errors.Is regardless of detail or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidCredentials     = &Error{Kind: InvalidCredentials}
	ErrUserBanned             = &Error{Kind: UserBanned}
	ErrExpiredToken           = &Error{Kind: ExpiredToken}
	ErrSignatureInvalid       = &Error{Kind: SignatureInvalid}
	ErrMissingScope           = &Error{Kind: MissingScope}
	ErrInvalidRefreshToken    = &Error{Kind: InvalidRefreshToken}
	ErrInvalidAccessToken     = &Error{Kind: InvalidAccessToken}
	ErrUnauthorized           = &Error{Kind: Unauthorized}
	ErrSessionNotFound        = &Error{Kind: SessionNotFound}
	ErrSessionAlreadyRevoked  = &Error{Kind: SessionAlreadyRevoked}
	ErrSessionNotBelongToUser = &Error{Kind: SessionNotBelongToUser}
	ErrPasswordHashingFailure = &Error{Kind: PasswordHashingFailure}
	ErrStorageFailure         = &Error{Kind: StorageFailure}
	ErrClock                  = &Error{Kind: ClockError}
	ErrInvalidInput           = &Error{Kind: InvalidInput}
	ErrUsernameTaken          = &Error{Kind: UsernameTaken}
	ErrEmailTaken             = &Error{Kind: EmailTaken}
	ErrInvalidActivationToken = &Error{Kind: InvalidActivationToken}
	ErrPasswordMismatch       = &Error{Kind: PasswordMismatch}
	ErrResetAlreadySent       = &Error{Kind: ResetAlreadySent}
	ErrUserNotFound           = &Error{Kind: UserNotFound}
	ErrInvalidResetToken      = &Error{Kind: InvalidResetToken}
	ErrMailFailure            = &Error{Kind: MailFailure}
)

// New returns an error of kind k with a client-visible detail.
func New(k Kind, detail string) *Error {
	return &Error{Kind: k, Detail: detail}
}

// Newf is New with fmt formatting of the detail.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Detail: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as kind k.
func Wrap(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}

// WithReason returns an error of kind k carrying an internal-only reason.
func WithReason(k Kind, reason string) *Error {
	return &Error{Kind: k, Reason: reason}
}

// Storage wraps a repository error as StorageFailure. Errors that are already
// classified pass through unchanged.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Wrap(StorageFailure, err)
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
