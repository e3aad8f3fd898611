// Package middleware holds the gin middleware shared by the API routes.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meisaku0/backend/internal/autherr"
	"github.com/meisaku0/backend/internal/identity/guard"
	"github.com/meisaku0/backend/internal/server/respond"
	telemetryotel "github.com/meisaku0/backend/internal/telemetry/otel"
)

// RequireAuth authenticates the Authorization header on every request through the
// access guard and stores the identity in the request context. Rejections are counted
// by code and rendered through the error table.
func RequireAuth(deps guard.Deps, metrics *telemetryotel.AuthMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := guard.Authenticate(ctx, c.GetHeader("Authorization"), deps)
		if err != nil {
			metrics.GuardRejected(ctx, autherr.KindOf(err).String())
			respond.Error(c, err)
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(ctx, id))
		c.Next()
	}
}

// RequireUserAgent rejects requests without a User-Agent header; sessions record the
// client's OS, device and browser from it.
func RequireUserAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("User-Agent")) == "" {
			respond.Error(c, autherr.New(autherr.InvalidInput, "User-Agent header is required"))
			return
		}
		c.Next()
	}
}
