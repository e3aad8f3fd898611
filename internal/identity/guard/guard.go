// Package guard authenticates requests: it checks the bearer token, the user's ban
// state and the session row on every call, with nothing cached between requests.
package guard

import (
	"context"
	"strings"

	"github.com/meisaku0/backend/internal/autherr"
	identitydomain "github.com/meisaku0/backend/internal/identity/domain"
	"github.com/meisaku0/backend/internal/security"
	sessiondomain "github.com/meisaku0/backend/internal/session/domain"
	userdomain "github.com/meisaku0/backend/internal/user/domain"
)

const bearerPrefix = "Bearer "

// TokenVerifier verifies signed tokens; *security.TokenCodec satisfies it.
type TokenVerifier interface {
	VerifyScope(token, scope string) (*security.Claims, error)
}

// UserFinder loads users by id.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// SessionFinder looks up the session row issued for a token.
type SessionFinder interface {
	FindByUserAndToken(ctx context.Context, userID, token string, tokenType sessiondomain.TokenType) (*sessiondomain.Session, error)
}

// Deps are the collaborators Authenticate consults.
type Deps struct {
	Tokens   TokenVerifier
	Users    UserFinder
	Sessions SessionFinder
}

// Authenticate resolves an Authorization header value to an Identity. Token failures
// (expired, bad signature, missing access scope) propagate unchanged. A banned user
// fails with UserBanned carrying the ban reason; a token whose session row is missing
// or inactive fails with InvalidAccessToken.
func Authenticate(ctx context.Context, header string, deps Deps) (*identitydomain.Identity, error) {
	token := ExtractBearer(header)
	if token == "" {
		return nil, autherr.New(autherr.Unauthorized, "missing or invalid authorization header")
	}

	claims, err := deps.Tokens.VerifyScope(token, security.ScopeAccess)
	if err != nil {
		return nil, err
	}

	user, err := deps.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, autherr.Storage(err)
	}
	if user == nil {
		return nil, autherr.New(autherr.Unauthorized, "user not found")
	}
	if user.Ban {
		return nil, autherr.New(autherr.UserBanned, user.BanReasonOrDefault())
	}

	sess, err := deps.Sessions.FindByUserAndToken(ctx, user.ID, token, sessiondomain.TokenTypeAccess)
	if err != nil {
		return nil, autherr.Storage(err)
	}
	if sess == nil || !sess.Active {
		return nil, autherr.ErrInvalidAccessToken
	}

	return &identitydomain.Identity{Claims: claims, Token: token, User: user, SessionID: sess.ID}, nil
}

// ExtractBearer returns the token of a "Bearer <token>" header value, or "" when the
// scheme is missing. The scheme match is case-insensitive.
func ExtractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
