package handler

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/meisaku0/backend/internal/identity/service"
)

// SignInRequest is the body of POST /user/sign-in.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks presence only; lengths are enforced at registration.
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshRequest is the body of POST /user/refresh-session.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// SessionResponse is returned by sign-in and refresh.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Username     string `json:"username"`
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
}

func toSessionResponse(r *service.AuthResult) SessionResponse {
	return SessionResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
		TokenType:    r.TokenType,
		Username:     r.Username,
		UserID:       r.UserID,
		SessionID:    r.SessionID,
	}
}
