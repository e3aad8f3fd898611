// Package handler exposes registration, profile and password endpoints over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meisaku0/backend/internal/autherr"
	"github.com/meisaku0/backend/internal/server/middleware"
	"github.com/meisaku0/backend/internal/server/respond"
	"github.com/meisaku0/backend/internal/user/service"
)

type validator interface {
	Validate() error
}

// AccountHandler serves the account endpoints.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler returns an AccountHandler over accounts.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register mounts the public routes on public and the authenticated ones on protected.
func (h *AccountHandler) Register(public, protected gin.IRoutes) {
	public.POST("", h.CreateUser)
	public.POST("/activate-email", h.ActivateEmail)
	public.POST("/reset-password/request", h.RequestPasswordReset)
	public.POST("/reset-password", h.ResetPassword)
	protected.GET("/me", h.Me)
	protected.PATCH("/username", h.ChangeUsername)
	protected.PATCH("/password", h.ChangePassword)
}

// bind decodes the JSON body into req and validates it. It renders the error and
// returns false on failure.
func bind(c *gin.Context, req validator) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respond.Invalid(c, err)
		return false
	}
	if err := req.Validate(); err != nil {
		respond.Invalid(c, err)
		return false
	}
	return true
}

// CreateUser handles POST /user.
func (h *AccountHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.accounts.CreateUser(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, CreatedUserResponse{
		ID:         u.ID,
		Username:   u.Username,
		EmailID:    u.EmailID,
		PasswordID: u.PasswordID,
	})
}

// ActivateEmail handles POST /user/activate-email.
func (h *AccountHandler) ActivateEmail(c *gin.Context) {
	var req ActivateEmailRequest
	if !bind(c, &req) {
		return
	}
	if err := h.accounts.ActivateEmail(c.Request.Context(), req.Token); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestPasswordReset handles POST /user/reset-password/request.
func (h *AccountHandler) RequestPasswordReset(c *gin.Context) {
	var req ResetRequestRequest
	if !bind(c, &req) {
		return
	}
	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Username); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResetPassword handles POST /user/reset-password.
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), req.ResetToken, req.NewPassword); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /user/me.
func (h *AccountHandler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized)
		return
	}
	p, err := h.accounts.Me(c.Request.Context(), id.UserID())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toMeResponse(p))
}

// ChangeUsername handles PATCH /user/username.
func (h *AccountHandler) ChangeUsername(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized)
		return
	}
	var req ChangeUsernameRequest
	if !bind(c, &req) {
		return
	}
	if err := h.accounts.ChangeUsername(c.Request.Context(), id.UserID(), req.Username); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword handles PATCH /user/password.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized)
		return
	}
	var req ChangePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), id.UserID(), req.CurrentPassword, req.NewPassword); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
