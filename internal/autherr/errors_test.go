package autherr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("sign in: %w", Newf(UserBanned, "spam"))
	assert.True(t, errors.Is(err, ErrUserBanned))
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
	assert.Equal(t, UserBanned, KindOf(err))
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(StorageFailure, cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestStorage(t *testing.T) {
	require.NoError(t, Storage(nil))

	plain := errors.New("boom")
	assert.Equal(t, StorageFailure, KindOf(Storage(plain)))

	classified := New(SessionNotFound, "")
	assert.Same(t, classified, Storage(classified))
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("x")))
	assert.Equal(t, "internal_error", Kind(999).String())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"credentials hide reason", WithReason(InvalidCredentials, ReasonUserNotFound), http.StatusUnauthorized, "invalid_credentials", "Invalid username or password"},
		{"wrong password same message", WithReason(InvalidCredentials, ReasonWrongPassword), http.StatusUnauthorized, "invalid_credentials", "Invalid username or password"},
		{"ban reason shown", New(UserBanned, "spam"), http.StatusForbidden, "user_banned", "User is banned: spam"},
		{"expired", ErrExpiredToken, http.StatusUnauthorized, "expired_token", "Token has expired"},
		{"missing scope", ErrMissingScope, http.StatusForbidden, "missing_scope", "Token does not grant the required scope"},
		{"not found", ErrSessionNotFound, http.StatusNotFound, "session_not_found", "Session not found"},
		{"already revoked", ErrSessionAlreadyRevoked, http.StatusBadRequest, "session_already_revoked", "Session already revoked"},
		{"ownership", ErrSessionNotBelongToUser, http.StatusForbidden, "session_not_belong_to_user", "Session does not belong to user"},
		{"storage hides cause", Wrap(StorageFailure, errors.New("pq: secret dsn")), http.StatusInternalServerError, "storage_failure", "Internal error"},
		{"hashing", ErrPasswordHashingFailure, http.StatusInternalServerError, "password_hashing_failure", "Password could not be processed"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "internal_error", "Internal error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Describe(tc.err)
			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.wantCode, got.Code)
			assert.Equal(t, tc.wantMessage, got.Message)
		})
	}
}

func TestDescribe_EveryKindHasEntry(t *testing.T) {
	for k := range kindNames {
		resp, ok := table[k]
		require.True(t, ok, "kind %s has no response", k)
		assert.Equal(t, k.String(), resp.Code)
	}
}
