package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeEmailExists, http.StatusConflict},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidID, http.StatusBadRequest},
		{CodePasswordsMismatch, http.StatusBadRequest},
		{CodeTokenMissing, http.StatusUnauthorized},
		{CodeTokenExpired, http.StatusUnauthorized},
		{CodeAccountDisabled, http.StatusUnauthorized},
		{CodeInvalidCredentials, http.StatusUnauthorized},
		{CodeAdminRequired, http.StatusForbidden},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFound("book 123 not found")
	wrapped := fmt.Errorf("lookup: %w", err)

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrEmailExists)
}

func TestError_WithStatusOverridesDefault(t *testing.T) {
	err := AccountDisabled("account disabled").WithStatus(http.StatusForbidden)

	assert.Equal(t, http.StatusForbidden, err.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, ErrAccountDisabled.HTTPStatus())
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestError_WithCauseKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := New(CodeInternal, "failed to load book").WithCause(cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load book: connection refused", err.Error())
}

func TestError_WithCauseDoesNotMutateReceiver(t *testing.T) {
	cause := fmt.Errorf("disk full")
	wrapped := ErrValidation.WithCause(cause)

	assert.NoError(t, ErrValidation.Unwrap())
	require.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, wrapped, ErrValidation)
}
