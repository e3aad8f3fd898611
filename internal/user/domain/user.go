package domain

import (
	"errors"
	"time"
)

// DefaultBanReason is reported when a banned user has no recorded reason.
const DefaultBanReason = "Reason not specified"

// User is the account entity. The session core only reads the ban state.
type User struct {
	ID        string
	Username  string
	Ban       bool
	BanReason string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BanReasonOrDefault returns BanReason, or DefaultBanReason when empty.
func (u *User) BanReasonOrDefault() string {
	if u.BanReason == "" {
		return DefaultBanReason
	}
	return u.BanReason
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// Email is a user's address and its activation state.
type Email struct {
	ID              string
	UserID          string
	Address         string
	Active          bool
	ActivationToken string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Password holds the credential hash and the password-reset state.
type Password struct {
	ID              string
	UserID          string
	Hash            string
	Salt            string
	ResetToken      string     // empty when no reset is pending
	ResetTokenRetry *time.Time // no new reset request before this instant
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ResetCoolingDown reports whether a reset request at now must be refused.
func (p *Password) ResetCoolingDown(now time.Time) bool {
	return p.ResetTokenRetry != nil && p.ResetTokenRetry.After(now)
}
