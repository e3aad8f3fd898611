package domain

import (
	"testing"
	"time"
)

func TestUser_BanReasonOrDefault(t *testing.T) {
	u := &User{Ban: true}
	if got := u.BanReasonOrDefault(); got != DefaultBanReason {
		t.Errorf("BanReasonOrDefault = %q, want %q", got, DefaultBanReason)
	}
	u.BanReason = "spam"
	if got := u.BanReasonOrDefault(); got != "spam" {
		t.Errorf("BanReasonOrDefault = %q, want spam", got)
	}
}

func TestUser_Validate(t *testing.T) {
	if err := (&User{Username: "alice"}).Validate(); err == nil {
		t.Error("missing id should fail")
	}
	if err := (&User{ID: "u1"}).Validate(); err == nil {
		t.Error("missing username should fail")
	}
	if err := (&User{ID: "u1", Username: "alice"}).Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestPassword_ResetCoolingDown(t *testing.T) {
	now := time.Date(2025, 1, 13, 22, 0, 0, 0, time.UTC)
	p := &Password{}
	if p.ResetCoolingDown(now) {
		t.Error("no retry time should not cool down")
	}
	later := now.Add(time.Minute)
	p.ResetTokenRetry = &later
	if !p.ResetCoolingDown(now) {
		t.Error("future retry time should cool down")
	}
	if p.ResetCoolingDown(later) {
		t.Error("retry time equal to now should allow a new request")
	}
}
