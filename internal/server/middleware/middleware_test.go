package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meisaku0/backend/internal/identity/guard"
	"github.com/meisaku0/backend/internal/security"
	"github.com/meisaku0/backend/internal/server/respond"
	sessiondomain "github.com/meisaku0/backend/internal/session/domain"
	sessionrepo "github.com/meisaku0/backend/internal/session/repository"
	userdomain "github.com/meisaku0/backend/internal/user/domain"
	userrepo "github.com/meisaku0/backend/internal/user/repository"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRequestIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.7"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 203.0.113.8 "}, "", "203.0.113.8"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:1234", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
		{"unknown", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, RequestIP(r))
		})
	}
}

func TestClientIP_StoresInContext(t *testing.T) {
	r := gin.New()
	var got string
	r.Use(ClientIP())
	r.GET("/", func(c *gin.Context) { got = ClientIPFrom(c.Request.Context()) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.9")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.9", got)
	assert.Empty(t, ClientIPFrom(context.Background()))
}

func TestRequireUserAgent(t *testing.T) {
	r := gin.New()
	r.Use(RequireUserAgent())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Del("User-Agent")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req.Header.Set("User-Agent", "curl/8.0")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireAuth(t *testing.T) {
	ctx := context.Background()
	clk := security.NewTestClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	codec := security.NewTestTokenCodec(clk)
	users := userrepo.NewMemoryRepository()
	sessions := sessionrepo.NewMemoryRepository()
	require.NoError(t, users.CreateWithCredentials(ctx,
		&userdomain.User{ID: "u1", Username: "alice"},
		&userdomain.Email{ID: "e1", Address: "alice@example.com"},
		&userdomain.Password{ID: "p1"}))
	tok, err := codec.Issue("u1", []string{security.ScopeAccess}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, sessions.Insert(ctx, &sessiondomain.Session{
		ID: "s1", UserID: "u1", Token: tok, TokenType: sessiondomain.TokenTypeAccess, Active: true, CreatedAt: clk.Now(),
	}))

	r := gin.New()
	r.Use(RequireAuth(guard.Deps{Tokens: codec, Users: users, Sessions: sessions}, nil))
	r.GET("/me", func(c *gin.Context) {
		id, ok := IdentityFrom(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID(), "session_id": id.SessionID})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u1","session_id":"s1"}`, w.Body.String())

	_, err = sessions.Deactivate(ctx, "s1")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body respond.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_access_token", body.Code)

	req.Header.Del("Authorization")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentityFrom_Empty(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)
	_, ok = IdentityFrom(WithIdentity(context.Background(), nil))
	assert.False(t, ok)
}
