package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes exposed to callers.
const (
	CodeInsufficientFunds      = "WAL_001"
	CodeReservationNotFound    = "WAL_002"
	CodeReservationClosed      = "WAL_003"
	CodeIllegalAction          = "RND_001"
	CodeInvalidTransition      = "RND_002"
	CodeConcurrentModification = "RND_003"
	CodeRoundNotFound          = "RND_004"
	CodeInvalidBet             = "RND_005"
	CodeSeedNotYetRevealable   = "FAIR_001"
	CodeSeedRevealMismatch     = "FAIR_002"
)

// HasCode reports whether err is an *AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Wallet / Ledger (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient available balance", http.StatusPaymentRequired)
}

func ErrReservationNotFound() *AppError {
	return New(CodeReservationNotFound, "Fund reservation not found", http.StatusNotFound)
}

func ErrReservationClosed() *AppError {
	return New(CodeReservationClosed, "Fund reservation is already settled", http.StatusConflict)
}

// ---- Round engine (RND) ----

// ErrIllegalAction reports an action that is not legal in the round's current state.
func ErrIllegalAction(reason string) *AppError {
	return New(CodeIllegalAction, "Illegal action: "+reason, http.StatusUnprocessableEntity)
}

// ErrInvalidTransition reports an attempt to mutate a finished round.
func ErrInvalidTransition(reason string) *AppError {
	return New(CodeInvalidTransition, "Invalid transition: "+reason, http.StatusConflict)
}

func ErrConcurrentModification() *AppError {
	return New(CodeConcurrentModification, "Round was modified concurrently, retry with a fresh load", http.StatusConflict)
}

func ErrRoundNotFound() *AppError {
	return New(CodeRoundNotFound, "Round not found", http.StatusNotFound)
}

func ErrInvalidBet(message string) *AppError {
	return New(CodeInvalidBet, message, http.StatusBadRequest)
}

// ---- Fairness (FAIR) ----

func ErrSeedNotYetRevealable() *AppError {
	return New(CodeSeedNotYetRevealable, "Server seed is revealed only after settlement", http.StatusForbidden)
}

func ErrSeedRevealMismatch(err error) *AppError {
	return Wrap(CodeSeedRevealMismatch, "Stored server seed does not match its commitment", http.StatusInternalServerError, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}
