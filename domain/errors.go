package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeExpired      ErrorCode = "EXPIRED"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// StoreFailure marks an error on the authoritative credential store path.
// Errors that already carry a domain classification pass through.
func StoreFailure(err error) error {
	var dErr *Error
	if errors.As(err, &dErr) {
		return err
	}
	return WrapError(ErrCodeInternal, "credential store failure", err)
}

// Common domain errors.
var (
	ErrSessionNotFound          = NewError(ErrCodeNotFound, "session not found")
	ErrUserNotFound             = NewError(ErrCodeNotFound, "user not found")
	ErrVerificationCodeNotFound = NewError(ErrCodeNotFound, "verification code not found")
	ErrVerificationCodeExpired  = NewError(ErrCodeExpired, "Code expired")
	ErrInvalidCredentials       = NewError(ErrCodeUnauthorized, "Invalid credentials provided")
	ErrInvalidCode              = NewError(ErrCodeUnauthorized, "Invalid verification code")
	ErrEmailInUse               = NewError(ErrCodeConflict, "Email already in use!")
	ErrUnauthorized             = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload           = NewError(ErrCodeInvalid, "invalid payload")
	ErrRateLimited              = NewError(ErrCodeRateLimited, "Too many requests")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
