package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[WAL_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("RND_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestRoundErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"IllegalAction", ErrIllegalAction("hand already stood"), CodeIllegalAction, 422},
		{"InvalidTransition", ErrInvalidTransition("round settled"), CodeInvalidTransition, 409},
		{"ConcurrentModification", ErrConcurrentModification(), CodeConcurrentModification, 409},
		{"RoundNotFound", ErrRoundNotFound(), CodeRoundNotFound, 404},
		{"InvalidBet", ErrInvalidBet("bet below table minimum"), CodeInvalidBet, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestWalletErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), CodeInsufficientFunds, 402},
		{"ReservationNotFound", ErrReservationNotFound(), CodeReservationNotFound, 404},
		{"ReservationClosed", ErrReservationClosed(), CodeReservationClosed, 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestFairnessErrors(t *testing.T) {
	err := ErrSeedNotYetRevealable()
	assert.Equal(t, CodeSeedNotYetRevealable, err.Code)
	assert.Equal(t, 403, err.HTTPStatus)

	inner := fmt.Errorf("hash mismatch")
	mismatch := ErrSeedRevealMismatch(inner)
	assert.Equal(t, CodeSeedRevealMismatch, mismatch.Code)
	assert.True(t, errors.Is(mismatch, inner))
}

func TestIllegalAction_MessageCarriesReason(t *testing.T) {
	err := ErrIllegalAction("cannot hit a stood hand")
	assert.Contains(t, err.Message, "cannot hit a stood hand")
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("apply action: %w", ErrIllegalAction("x"))

	assert.True(t, HasCode(wrapped, CodeIllegalAction))
	assert.False(t, HasCode(wrapped, CodeInvalidTransition))
	assert.False(t, HasCode(errors.New("plain"), CodeIllegalAction))
	assert.False(t, HasCode(nil, CodeIllegalAction))
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	encErr := ErrEncryptionFailure(inner)
	assert.Equal(t, "SYS_003", encErr.Code)
	assert.Equal(t, 500, encErr.HTTPStatus)
}

func TestAuthAndRateLimitErrors(t *testing.T) {
	assert.Equal(t, 401, ErrInvalidToken().HTTPStatus)

	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}
