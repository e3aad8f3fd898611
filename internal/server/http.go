// Package server assembles the HTTP API and the gRPC health server.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	healthhandler "github.com/meisaku0/backend/internal/health/handler"
	identityhandler "github.com/meisaku0/backend/internal/identity/handler"
	"github.com/meisaku0/backend/internal/identity/guard"
	identityservice "github.com/meisaku0/backend/internal/identity/service"
	"github.com/meisaku0/backend/internal/logger"
	"github.com/meisaku0/backend/internal/server/middleware"
	sessionhandler "github.com/meisaku0/backend/internal/session/handler"
	telemetryotel "github.com/meisaku0/backend/internal/telemetry/otel"
	userhandler "github.com/meisaku0/backend/internal/user/handler"
	userservice "github.com/meisaku0/backend/internal/user/service"
)

// Deps holds the services the HTTP routes are served by.
type Deps struct {
	Logger   zerolog.Logger
	Auth     *identityservice.AuthService
	Accounts *userservice.AccountService
	// Guard is consulted by RequireAuth on every protected route.
	Guard   guard.Deps
	Metrics *telemetryotel.AuthMetrics
	Health  *healthhandler.Server
}

// NewRouter returns the gin engine for the JSON API.
//
// Route → handler mapping:
//   - /user (create, activate, reset), /user/me, /user/username, /user/password → internal/user/handler
//   - /user/sign-in, /user/refresh-session, /user/sign-out                      → internal/identity/handler
//   - /user/sessions                                                             → internal/session/handler
//   - /healthz                                                                   → internal/health/handler
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Requests(deps.Logger), middleware.ClientIP())

	health := deps.Health
	if health == nil {
		health = healthhandler.NewServer(nil)
	}
	r.GET("/healthz", health.Healthz)

	public := r.Group("/user")
	protected := r.Group("/user", middleware.RequireAuth(deps.Guard, deps.Metrics))

	identityhandler.NewAuthHandler(deps.Auth).Register(public, protected)
	sessionhandler.NewSessionHandler(deps.Auth).Register(protected)
	userhandler.NewAccountHandler(deps.Accounts).Register(public, protected)
	return r
}
