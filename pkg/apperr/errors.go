// Package apperr defines the error taxonomy shared by every CareLink service
// and its mapping onto HTTP status codes.
//
// Services return *Error values built with the constructors below. Handlers
// never inspect messages; they call Status and write Code and Message to the
// client. Wrapped causes are kept for logging and are never rendered.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Stable error codes
const (
	CodeTokenMissing         = "TOKEN_MISSING"
	CodeTokenInvalid         = "TOKEN_INVALID"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeAccountDisabled      = "ACCOUNT_DISABLED"
	CodeAdminRequired        = "ADMIN_REQUIRED"
	CodePermissionDenied     = "PERMISSION_DENIED"
	CodeSelfAction           = "SELF_ACTION"
	CodeAccessDenied         = "ACCESS_DENIED"
	CodeRegistrationDisabled = "REGISTRATION_DISABLED"
	CodeNotFound             = "NOT_FOUND"
	CodeValidation           = "VALIDATION_FAILED"
	CodeSystemAccount        = "SYSTEM_ACCOUNT"
	CodeDuplicateEmail       = "DUPLICATE_EMAIL"
	CodeDuplicateUsername    = "DUPLICATE_USERNAME"
	CodeInternal             = "INTERNAL"
	CodeRateLimited          = "RATE_LIMITED"
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// status overrides the Kind's default HTTP status when non-zero
	status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the error
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Is matches on Kind and Code so errors.Is works against the package sentinels
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Sentinels for errors.Is comparisons
var (
	ErrTokenMissing       = &Error{Kind: KindAuthentication, Code: CodeTokenMissing, Message: "No token provided"}
	ErrTokenInvalid       = &Error{Kind: KindAuthentication, Code: CodeTokenInvalid, Message: "Invalid token"}
	ErrTokenExpired       = &Error{Kind: KindAuthentication, Code: CodeTokenExpired, Message: "Token expired"}
	ErrUserNotFound       = &Error{Kind: KindAuthentication, Code: CodeUserNotFound, Message: "User not found"}
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Code: CodeInvalidCredentials, Message: "Invalid credentials", status: http.StatusBadRequest}
	ErrAccountDisabled    = &Error{Kind: KindAuthentication, Code: CodeAccountDisabled, Message: "Your account has been deactivated. Please contact admin.", status: http.StatusForbidden}
	ErrAdminRequired      = &Error{Kind: KindAuthorization, Code: CodeAdminRequired, Message: "Admin access required"}
	ErrSelfAction         = &Error{Kind: KindAuthorization, Code: CodeSelfAction, Message: "Cannot delete your own account"}
	ErrAccessDenied       = &Error{Kind: KindAuthorization, Code: CodeAccessDenied, Message: "Access denied"}
	ErrRegistrationOff    = &Error{Kind: KindAuthorization, Code: CodeRegistrationDisabled, Message: "Registration is disabled. Please contact admin to create your account."}
	ErrDuplicateEmail     = &Error{Kind: KindConflict, Code: CodeDuplicateEmail, Message: "Email already exists"}
	ErrDuplicateUsername  = &Error{Kind: KindConflict, Code: CodeDuplicateUsername, Message: "Username already exists"}
	ErrRateLimited        = &Error{Kind: KindAuthorization, Code: CodeRateLimited, Message: "Too many requests. Please try again later.", status: http.StatusTooManyRequests}
)

// PermissionDenied builds the denial for a missing capability
func PermissionDenied(capability string) *Error {
	return &Error{
		Kind:    KindAuthorization,
		Code:    CodePermissionDenied,
		Message: fmt.Sprintf("You do not have permission to %s", capability),
	}
}

// NotFound builds a not-found error for an entity, e.g. NotFound("Doctor")
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: entity + " not found"}
}

// Validation builds a validation error with a client-facing message
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message}
}

// SystemAccount builds the rejection used when the sentinel tries to change itself
func SystemAccount(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeSystemAccount, Message: message}
}

// Internal wraps an unexpected failure
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: op, Err: err}
}

// Wrap attaches a cause to a sentinel without changing its classification
func Wrap(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: sentinel.Message, status: sentinel.status, Err: err}
}

// From classifies any error. Unclassified errors become internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Server error", err)
}

// IsKind reports whether err is classified as k
func IsKind(err error, k Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == k
}
