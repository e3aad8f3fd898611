package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meisaku0/backend/internal/autherr"
	"github.com/meisaku0/backend/internal/platform/clock"
)

// Token scopes.
const (
	ScopeAccess        = "access"
	ScopeRefresh       = "refresh"
	ScopeResetPassword = "reset-password"
)

// MinSecretLength is the minimum HS256 secret size in bytes.
const MinSecretLength = 32

// Claims is the signed claim set: sub, exp, iat, jti and a set of scopes. exp is
// rounded up to whole seconds for other JWT consumers; ExpiresAtNano carries the exact
// expiry this codec enforces.
type Claims struct {
	jwt.RegisteredClaims
	Scopes        []string `json:"scopes"`
	ExpiresAtNano int64    `json:"exp_ns,omitempty"`
}

// Deadline returns the instant the token stops being valid.
func (c *Claims) Deadline() time.Time {
	if c.ExpiresAtNano != 0 {
		return time.Unix(0, c.ExpiresAtNano).UTC()
	}
	return c.ExpiresAt.Time
}

// HasScope reports whether scope is in the claim set.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// TokenCodec signs and verifies HS256 tokens. The secret is copied at construction and
// never changes; a TokenCodec is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	clock  clock.Clock
	parser *jwt.Parser
}

// NewTokenCodec returns a codec for secret using clk for issue and expiry checks.
func NewTokenCodec(secret []byte, clk clock.Clock) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("security: token secret must be at least %d bytes", MinSecretLength)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &TokenCodec{
		secret: append([]byte(nil), secret...),
		clock:  clk,
		// Expiry is checked by Verify against the injected clock after the signature.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Issue signs a claim set for subject with the given scopes, expiring ttl from now.
func (c *TokenCodec) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("security: token subject is required")
	}
	if ttl < time.Second {
		return "", errors.New("security: token ttl must be at least one second")
	}
	now := c.clock.Now()
	if now.IsZero() || now.Before(time.Unix(0, 0)) {
		return "", autherr.Wrap(autherr.ClockError, fmt.Errorf("clock returned %v", now))
	}
	jti, err := generateJTI()
	if err != nil {
		return "", err
	}
	exp := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp.Add(time.Second - 1)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		Scopes:        uniqueScopes(scopes),
		ExpiresAtNano: exp.UnixNano(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature and structure, then expiry. Tampered or malformed tokens fail
// with SignatureInvalid; well-formed tokens past exp fail with ExpiredToken.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, autherr.Wrap(autherr.SignatureInvalid, err)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, autherr.New(autherr.SignatureInvalid, "token is missing sub or exp")
	}
	if !c.clock.Now().Before(claims.Deadline()) {
		return nil, autherr.ErrExpiredToken
	}
	return claims, nil
}

// VerifyScope verifies token and requires scope in its claim set.
func (c *TokenCodec) VerifyScope(token, scope string) (*Claims, error) {
	claims, err := c.Verify(token)
	if err != nil {
		return nil, err
	}
	if !claims.HasScope(scope) {
		return nil, autherr.Newf(autherr.MissingScope, "%s scope required", scope)
	}
	return claims, nil
}

func uniqueScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
