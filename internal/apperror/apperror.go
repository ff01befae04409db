// Package apperror classifies failures for the boundary layer.
//
// Every failure that leaves a service is either an *AppError wrapping one of
// the sentinels below, or an unclassified error (mapped to 500). Handlers use
// errors.Is against the sentinels; they never inspect messages.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // human-readable error message
	Field   string // optional: field causing the error
	Cause   error  // optional: underlying failure, kept for logs
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is works against either.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// NotFound is used for the user, resource, event and file kinds.
func NotFound(kind, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", kind, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(kind, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", kind, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidCredentials does not say which half of the pair was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "incorrect email or password",
	}
}

func InvalidToken(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: message,
	}
}

func ExpiredToken() *AppError {
	return &AppError{
		Err:     ErrExpiredToken,
		Message: "token expired",
	}
}

// StoreUnavailable marks a failed write against the Datastore or BlobStore.
// op names the operation, e.g. "creating resource".
func StoreUnavailable(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStoreUnavailable,
		Message: fmt.Sprintf("store unavailable while %s", op),
		Cause:   cause,
	}
}

// IsClassified reports whether err already carries one of the sentinels above.
func IsClassified(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
