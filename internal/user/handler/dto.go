package handler

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/meisaku0/backend/internal/user/service"
)

var (
	usernameRules = []validation.Rule{validation.Required, validation.Length(3, 32)}
	passwordRules = []validation.Rule{validation.Required, validation.Length(6, 32)}
)

// CreateUserRequest is the body of POST /user.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, usernameRules...),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, passwordRules...),
	)
}

// ActivateEmailRequest is the body of POST /user/activate-email.
type ActivateEmailRequest struct {
	Token string `json:"token"`
}

func (r ActivateEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required, is.UUID),
	)
}

// ChangeUsernameRequest is the body of PATCH /user/username.
type ChangeUsernameRequest struct {
	Username string `json:"username"`
}

func (r ChangeUsernameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, usernameRules...),
	)
}

// ChangePasswordRequest is the body of PATCH /user/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, passwordRules...),
	)
}

// ResetRequestRequest is the body of POST /user/reset-password/request.
type ResetRequestRequest struct {
	Username string `json:"username"`
}

func (r ResetRequestRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
	)
}

// ResetPasswordRequest is the body of POST /user/reset-password.
type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ResetToken, validation.Required),
		validation.Field(&r.NewPassword, passwordRules...),
	)
}

// CreatedUserResponse is returned by POST /user.
type CreatedUserResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	EmailID    string `json:"email_id"`
	PasswordID string `json:"password_id"`
}

// MeResponse is returned by GET /user/me.
type MeResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	EmailActive bool      `json:"email_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMeResponse(p *service.Profile) MeResponse {
	return MeResponse{
		ID:          p.ID,
		Username:    p.Username,
		Email:       p.Email,
		EmailActive: p.EmailActive,
		CreatedAt:   p.CreatedAt,
	}
}
