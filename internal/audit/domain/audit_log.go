package domain

import "time"

// Audit actions written by the session authority and the account service.
const (
	ActionSignIn               = "sign_in"
	ActionSignInFailure        = "sign_in_failure"
	ActionRefresh              = "session_refresh"
	ActionSignOut              = "sign_out"
	ActionRevoke               = "session_revoke"
	ActionRevokeAll            = "session_revoke_all"
	ActionUserCreate           = "user_create"
	ActionEmailActivate        = "email_activate"
	ActionPasswordChange       = "password_change"
	ActionPasswordResetRequest = "password_reset_request"
	ActionPasswordReset        = "password_reset"
	ActionUsernameChange       = "username_change"
)

// Audit resources.
const (
	ResourceSession  = "session"
	ResourceUser     = "user"
	ResourceEmail    = "email"
	ResourcePassword = "password"
)

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	UserID    string // empty when the actor is unknown
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
