package domain

import (
	"errors"
	"fmt"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

// ErrLockConflict signals that another settlement for the same user is in
// flight. Clients should back off and retry; nothing was written.
func ErrLockConflict() *AppError {
	return &AppError{Code: "LOCK_CONFLICT", Message: "the wallet is currently being updated, try again later", Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnknownGameType(code string) *AppError {
	return &AppError{Code: "UNKNOWN_GAME_TYPE", Message: fmt.Sprintf("game type %q not found", code), Status: 422}
}

func ErrUnknownProduct(code string) *AppError {
	return &AppError{Code: "UNKNOWN_PRODUCT", Message: fmt.Sprintf("product %q not found", code), Status: 422}
}

func ErrUnmappedRate(gameTypeCode, productCode string) *AppError {
	return &AppError{Code: "UNMAPPED_RATE", Message: fmt.Sprintf("no rate mapping for game type %q and product %q", gameTypeCode, productCode), Status: 422}
}

func ErrDuplicateTransaction(transactionID string) *AppError {
	return &AppError{Code: "DUPLICATE_TRANSACTION", Message: fmt.Sprintf("transaction %s already recorded", transactionID), Status: 409}
}

func ErrDuplicateEvent(messageID string) *AppError {
	return &AppError{Code: "DUPLICATE_EVENT", Message: fmt.Sprintf("event %s already recorded", messageID), Status: 409}
}

// ErrDeadlockExceeded tags a deadlock that survived the retry budget so
// callers can tell "gave up after contention" apart from other failures.
// The whole request is safe to retry: no partial state was committed.
func ErrDeadlockExceeded(attempts int, cause error) *AppError {
	return &AppError{Code: "DEADLOCK_EXCEEDED", Message: fmt.Sprintf("gave up after %d contended attempts", attempts), Status: 500, Cause: cause}
}

func ErrWalletNotFound(holderID int64) *AppError {
	return &AppError{Code: "WALLET_NOT_FOUND", Message: fmt.Sprintf("wallet for holder %d not found", holderID), Status: 500}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsDeadlockExceeded reports whether err carries the DEADLOCK_EXCEEDED tag.
func IsDeadlockExceeded(err error) bool { return HasCode(err, "DEADLOCK_EXCEEDED") }
