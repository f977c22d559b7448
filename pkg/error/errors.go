package error

import (
	"errors"
	"net/http"

	"github.com/finledger/ledger/internal/domain"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewBadRequest(message string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, Status: http.StatusBadRequest}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message, Status: http.StatusUnauthorized}
}

func NewTooManyRequests(message string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: message, Status: http.StatusTooManyRequests}
}

func NewInternalServer(message string) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: message, Status: http.StatusInternalServerError}
}

// MapError converts any error from the ledger core into an HTTP facing AppError.
// Persistence failures never leak their cause.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var domErr *domain.Error
	if !errors.As(err, &domErr) {
		return NewInternalServer("An unexpected error occurred")
	}

	switch {
	case domain.IsValidation(domErr):
		return &AppError{Code: string(domErr.Code), Message: domErr.Message, Status: http.StatusBadRequest}
	case domain.IsNotFound(domErr):
		return &AppError{Code: string(domErr.Code), Message: domErr.Message, Status: http.StatusNotFound}
	case domain.IsConflict(domErr):
		return &AppError{Code: string(domErr.Code), Message: domErr.Message, Status: http.StatusConflict}
	default:
		return NewInternalServer("An unexpected error occurred")
	}
}
