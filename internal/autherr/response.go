package autherr

import (
	"errors"
	"net/http"
)

// Response is the client-facing rendering of an error kind.
type Response struct {
	Status  int
	Code    string
	Message string
}

// table is the single mapping from kind to HTTP status and message. It is consulted
// only by the HTTP layer.
var table = map[Kind]Response{
	Internal:               {http.StatusInternalServerError, "internal_error", "Internal error"},
	InvalidCredentials:     {http.StatusUnauthorized, "invalid_credentials", "Invalid username or password"},
	UserBanned:             {http.StatusForbidden, "user_banned", "User is banned"},
	ExpiredToken:           {http.StatusUnauthorized, "expired_token", "Token has expired"},
	SignatureInvalid:       {http.StatusUnauthorized, "signature_invalid", "Token is invalid"},
	MissingScope:           {http.StatusForbidden, "missing_scope", "Token does not grant the required scope"},
	InvalidRefreshToken:    {http.StatusUnauthorized, "invalid_refresh_token", "Invalid refresh token"},
	InvalidAccessToken:     {http.StatusUnauthorized, "invalid_access_token", "Session is no longer active"},
	Unauthorized:           {http.StatusUnauthorized, "unauthorized", "Unauthorized"},
	SessionNotFound:        {http.StatusNotFound, "session_not_found", "Session not found"},
	SessionAlreadyRevoked:  {http.StatusBadRequest, "session_already_revoked", "Session already revoked"},
	SessionNotBelongToUser: {http.StatusForbidden, "session_not_belong_to_user", "Session does not belong to user"},
	PasswordHashingFailure: {http.StatusInternalServerError, "password_hashing_failure", "Password could not be processed"},
	StorageFailure:         {http.StatusInternalServerError, "storage_failure", "Internal error"},
	ClockError:             {http.StatusInternalServerError, "clock_error", "Internal error"},
	InvalidInput:           {http.StatusBadRequest, "invalid_input", "Invalid request"},
	UsernameTaken:          {http.StatusBadRequest, "username_taken", "Username is not available"},
	EmailTaken:             {http.StatusBadRequest, "email_taken", "Email already exists"},
	InvalidActivationToken: {http.StatusBadRequest, "invalid_activation_token", "Invalid activation token"},
	PasswordMismatch:       {http.StatusUnauthorized, "password_mismatch", "Password does not match"},
	ResetAlreadySent:       {http.StatusBadRequest, "reset_already_sent", "Reset password token already sent"},
	UserNotFound:           {http.StatusNotFound, "user_not_found", "User not found"},
	InvalidResetToken:      {http.StatusUnauthorized, "invalid_reset_token", "Invalid reset token"},
	MailFailure:            {http.StatusInternalServerError, "mail_failure", "Email could not be sent"},
}

// Describe maps err to its client response. Unclassified errors render as 500.
// Details are appended for client errors only; causes and internal reasons never are.
func Describe(err error) Response {
	var e *Error
	if !errors.As(err, &e) {
		return table[Internal]
	}
	resp, ok := table[e.Kind]
	if !ok {
		return table[Internal]
	}
	if e.Detail != "" && resp.Status < http.StatusInternalServerError && e.Kind != InvalidCredentials {
		resp.Message += ": " + e.Detail
	}
	return resp
}
