package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger failures by how the caller must react to them.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindPersistence ErrorKind = "persistence"
)

// ErrorCode is a stable machine-readable identifier for a ledger error
type ErrorCode string

const (
	// Validation errors (1xxx)
	ErrCodeFutureDate      ErrorCode = "LEDGER_1001"
	ErrCodeTypeMismatch    ErrorCode = "LEDGER_1002"
	ErrCodeInvalidAmount   ErrorCode = "LEDGER_1003"
	ErrCodeInvalidType     ErrorCode = "LEDGER_1004"
	ErrCodeInvalidDate     ErrorCode = "LEDGER_1005"
	ErrCodeInvalidCategory ErrorCode = "LEDGER_1006"
	ErrCodeInvalidFilter   ErrorCode = "LEDGER_1007"
	ErrCodeEmptyPatch      ErrorCode = "LEDGER_1008"

	// Lookup errors (2xxx)
	ErrCodeTransactionNotFound ErrorCode = "LEDGER_2001"
	ErrCodeCategoryNotFound    ErrorCode = "LEDGER_2002"

	// Concurrency errors (3xxx)
	ErrCodeConcurrentUpdate ErrorCode = "LEDGER_3001"

	// Store errors (5xxx)
	ErrCodeStoreFailure    ErrorCode = "LEDGER_5001"
	ErrCodeAuditFailure    ErrorCode = "LEDGER_5002"
	ErrCodeCommitFailure   ErrorCode = "LEDGER_5003"
	ErrCodeRollbackFailure ErrorCode = "LEDGER_5004"
)

// Error is the single error type returned by the ledger core.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(kind ErrorKind, code ErrorCode, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrFutureDate          = newError(KindValidation, ErrCodeFutureDate, "transaction date cannot be in the future", nil)
	ErrTypeMismatch        = newError(KindValidation, ErrCodeTypeMismatch, "transaction type does not match category type", nil)
	ErrInvalidAmount       = newError(KindValidation, ErrCodeInvalidAmount, "amount must be at least 0.01", nil)
	ErrInvalidType         = newError(KindValidation, ErrCodeInvalidType, "transaction type must be income or expense", nil)
	ErrInvalidDate         = newError(KindValidation, ErrCodeInvalidDate, "transaction date must be formatted as YYYY-MM-DD", nil)
	ErrEmptyPatch          = newError(KindValidation, ErrCodeEmptyPatch, "at least one field must be supplied", nil)
	ErrTransactionNotFound = newError(KindNotFound, ErrCodeTransactionNotFound, "transaction not found", nil)
	ErrCategoryNotFound    = newError(KindNotFound, ErrCodeCategoryNotFound, "category not found", nil)
	ErrConcurrentUpdate    = newError(KindConflict, ErrCodeConcurrentUpdate, "transaction was modified concurrently", nil)
)

// Validation error constructors

func NewValidationError(code ErrorCode, message string) *Error {
	return newError(KindValidation, code, message, nil)
}

func TypeMismatchError(txType TransactionType, categoryType CategoryType) *Error {
	return newError(KindValidation, ErrCodeTypeMismatch,
		fmt.Sprintf("transaction type %q does not match category type %q", txType, categoryType), nil)
}

// Lookup error constructors

func TransactionNotFoundError(id int64) *Error {
	return newError(KindNotFound, ErrCodeTransactionNotFound, fmt.Sprintf("transaction with ID %d not found", id), nil)
}

func CategoryNotFoundError(id int64) *Error {
	return newError(KindNotFound, ErrCodeCategoryNotFound, fmt.Sprintf("category with ID %d not found", id), nil)
}

// Store error constructors

func PersistenceError(code ErrorCode, operation string, cause error) *Error {
	return newError(KindPersistence, code, operation, cause)
}

func StoreError(operation string, cause error) *Error {
	return PersistenceError(ErrCodeStoreFailure, operation, cause)
}

// KindOf reports the kind of err, treating anything unclassified as a persistence failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

func IsConflict(err error) bool { return KindOf(err) == KindConflict }
