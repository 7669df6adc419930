// Package errors provides the domain error taxonomy of the livraria API.
//
// Services return *Error values; the HTTP layer turns them into the response
// envelope using Code.HTTPStatus.
//
//	if exists {
//	    return errors.EmailExists("email already registered")
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeEmailExists        Code = "EMAIL_EXISTS"
	CodeConflict           Code = "CONFLICT"
	CodeValidation         Code = "VALIDATION"
	CodeInvalidID          Code = "INVALID_ID"
	CodePasswordsMismatch  Code = "PASSWORDS_DONT_MATCH"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenMissing       Code = "TOKEN_MISSING"
	CodeTokenInvalid       Code = "TOKEN_INVALID"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeAccountDisabled    Code = "ACCOUNT_DISABLED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeAdminRequired      Code = "ADMIN_REQUIRED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeUnavailable        Code = "SERVICE_UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeEmailExists, CodeConflict:
		return http.StatusConflict
	case CodeValidation, CodeInvalidID, CodePasswordsMismatch:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidCredentials, CodeTokenMissing, CodeTokenInvalid,
		CodeTokenExpired, CodeUserNotFound, CodeAccountDisabled:
		return http.StatusUnauthorized
	case CodeForbidden, CodeAdminRequired:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	status  int    // overrides Code.HTTPStatus when non-zero
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	if e.status != 0 {
		return e.status
	}
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

// WithStatus returns a copy answered with the given HTTP status instead of
// the code's default one.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.status = status
	return &cp
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrEmailExists        = &Error{Code: CodeEmailExists, Message: "email already registered"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidID          = &Error{Code: CodeInvalidID, Message: "invalid id"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrTokenInvalid       = &Error{Code: CodeTokenInvalid, Message: "token invalid"}
	ErrTokenExpired       = &Error{Code: CodeTokenExpired, Message: "token expired"}
	ErrAccountDisabled    = &Error{Code: CodeAccountDisabled, Message: "account disabled"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrAdminRequired      = &Error{Code: CodeAdminRequired, Message: "admin required"}
)

// New creates an error with an arbitrary code.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// EmailExists creates a duplicate email error.
func EmailExists(msg string) *Error {
	return &Error{Code: CodeEmailExists, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// InvalidID creates a malformed identifier error.
func InvalidID(msg string) *Error {
	return &Error{Code: CodeInvalidID, Message: msg}
}

// PasswordsMismatch creates a password confirmation error.
func PasswordsMismatch(msg string) *Error {
	return &Error{Code: CodePasswordsMismatch, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// TokenMissing creates a missing bearer token error.
func TokenMissing(msg string) *Error {
	return &Error{Code: CodeTokenMissing, Message: msg}
}

// TokenInvalid creates an invalid token error.
func TokenInvalid(msg string) *Error {
	return &Error{Code: CodeTokenInvalid, Message: msg}
}

// TokenExpired creates a token expired error.
func TokenExpired(msg string) *Error {
	return &Error{Code: CodeTokenExpired, Message: msg}
}

// UserNotFound creates an error for a token whose user no longer exists.
func UserNotFound(msg string) *Error {
	return &Error{Code: CodeUserNotFound, Message: msg}
}

// AccountDisabled creates a disabled account error.
func AccountDisabled(msg string) *Error {
	return &Error{Code: CodeAccountDisabled, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// AdminRequired creates an error for non-admin callers of admin operations.
func AdminRequired(msg string) *Error {
	return &Error{Code: CodeAdminRequired, Message: msg}
}
