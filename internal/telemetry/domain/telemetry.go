package domain

import "time"

// Auth event types.
const (
	EventSignIn         = "sign_in"
	EventSignInFailure  = "sign_in_failure"
	EventRefresh        = "session_refresh"
	EventRefreshFailure = "session_refresh_failure"
	EventSignOut        = "sign_out"
	EventRevoke         = "session_revoke"
	EventRevokeAll      = "session_revoke_all"
	EventAccessDenied   = "access_denied"
)

// AuthEvent is one observable transition of the session authority. UserID and SessionID
// are empty when unknown (e.g. a failed sign-in for a missing user).
type AuthEvent struct {
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
