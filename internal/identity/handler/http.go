// Package handler exposes sign-in, refresh and sign-out over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meisaku0/backend/internal/autherr"
	"github.com/meisaku0/backend/internal/identity/service"
	"github.com/meisaku0/backend/internal/server/middleware"
	"github.com/meisaku0/backend/internal/server/respond"
)

// AuthHandler serves the credential endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler returns an AuthHandler over auth.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register mounts the public routes on public and the authenticated ones on protected.
func (h *AuthHandler) Register(public, protected gin.IRoutes) {
	public.POST("/sign-in", middleware.RequireUserAgent(), h.SignIn)
	public.POST("/refresh-session", middleware.RequireUserAgent(), h.Refresh)
	protected.POST("/sign-out", h.SignOut)
}

// SignIn handles POST /user/sign-in.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Invalid(c, err)
		return
	}
	res, err := h.auth.SignIn(c.Request.Context(), req.Username, req.Password, clientInfo(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toSessionResponse(res))
}

// Refresh handles POST /user/refresh-session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Invalid(c, err)
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, clientInfo(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toSessionResponse(res))
}

// SignOut handles POST /user/sign-out for the session of the presented access token.
func (h *AuthHandler) SignOut(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized)
		return
	}
	if err := h.auth.SignOut(c.Request.Context(), id); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		IP:        middleware.RequestIP(c.Request),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
