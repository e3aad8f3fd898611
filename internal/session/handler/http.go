// Package handler exposes session listing and revocation over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meisaku0/backend/internal/autherr"
	"github.com/meisaku0/backend/internal/identity/service"
	"github.com/meisaku0/backend/internal/server/middleware"
	"github.com/meisaku0/backend/internal/server/respond"
)

// SessionHandler serves the authenticated user's sessions.
type SessionHandler struct {
	auth *service.AuthService
}

// NewSessionHandler returns a SessionHandler over auth.
func NewSessionHandler(auth *service.AuthService) *SessionHandler {
	return &SessionHandler{auth: auth}
}

// Register mounts the routes; every route requires authentication.
func (h *SessionHandler) Register(protected gin.IRoutes) {
	protected.GET("/sessions", h.List)
	protected.DELETE("/sessions/:id", h.Revoke)
	protected.DELETE("/sessions", h.RevokeAll)
}

// List handles GET /user/sessions.
func (h *SessionHandler) List(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized)
		return
	}
	q := ListQuery{Page: 1, PerPage: defaultPerPage}
	if err := c.ShouldBindQuery(&q); err != nil {
		respond.Invalid(c, err)
		return
	}
	if err := q.Validate(); err != nil {
		respond.Invalid(c, err)
		return
	}
	page, err := h.auth.ListSessions(c.Request.Context(), id.UserID(), q.filter(), q.Page, q.PerPage)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toPageResponse(page, id.SessionID))
}

// Revoke handles DELETE /user/sessions/:id.
func (h *SessionHandler) Revoke(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized)
		return
	}
	if err := h.auth.Revoke(c.Request.Context(), id, c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RevokeAll handles DELETE /user/sessions, ending every session of the user including
// the current one.
func (h *SessionHandler) RevokeAll(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized)
		return
	}
	if err := h.auth.RevokeAll(c.Request.Context(), id.UserID()); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
