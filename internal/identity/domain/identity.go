package domain

import (
	"github.com/meisaku0/backend/internal/security"
	userdomain "github.com/meisaku0/backend/internal/user/domain"
)

// Identity is the authenticated caller of one request, produced by the access guard.
// Token is the raw access token; sign-out needs it to find the exact session row.
type Identity struct {
	Claims    *security.Claims
	Token     string
	User      *userdomain.User
	SessionID string
}

// UserID returns the id of the authenticated user.
func (i *Identity) UserID() string {
	if i == nil || i.User == nil {
		return ""
	}
	return i.User.ID
}
