// Package apierr provides the error taxonomy (§7): a category-coded
// ServiceError grounded on the teacher's infrastructure/errors/errors.go
// scheme, recut to this domain's categories.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Category is the top-level error classification §7 routes every failure
// into.
type Category string

const (
	// ClientInput covers malformed JSON, wrong content type, oversized
	// body, invalid initData, invalid admin token. Never retried.
	ClientInput Category = "client_input"
	// AntifraudDeny is a pre-capture HARD_BLOCK verdict.
	AntifraudDeny Category = "antifraud_deny"
	// IdempotentReplay marks a request already handled; the response is
	// the original outcome, not an error to the caller.
	IdempotentReplay Category = "idempotent_replay"
	// TransientRemote is a network failure or 5xx from the chat platform.
	TransientRemote Category = "transient_remote"
	// PermanentRemote is a 4xx from the chat platform; never retried.
	PermanentRemote Category = "permanent_remote"
	// Internal covers bugs and assertion failures.
	Internal Category = "internal"
)

// ServiceError is a structured, category-coded error carrying the HTTP
// status and JSON body shape §7 requires.
type ServiceError struct {
	Category   Category
	Message    string
	HTTPStatus int
	Details    map[string]string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetail attaches a key/value pair rendered in the JSON response body.
func (e *ServiceError) WithDetail(key, value string) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New returns a ServiceError with no wrapped cause.
func New(category Category, message string, httpStatus int) *ServiceError {
	return &ServiceError{Category: category, Message: message, HTTPStatus: httpStatus}
}

// Wrap returns a ServiceError wrapping err.
func Wrap(category Category, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{Category: category, Message: message, HTTPStatus: httpStatus, Err: err}
}

// Client-input constructors.

func BadRequest(message string) *ServiceError {
	return New(ClientInput, message, http.StatusBadRequest)
}

func Forbidden(message string) *ServiceError {
	return New(ClientInput, message, http.StatusForbidden)
}

func PayloadTooLarge(message string) *ServiceError {
	return New(ClientInput, message, http.StatusRequestEntityTooLarge)
}

func UnsupportedMediaType(message string) *ServiceError {
	return New(ClientInput, message, http.StatusUnsupportedMediaType)
}

func Unauthorized(message string) *ServiceError {
	return New(ClientInput, message, http.StatusUnauthorized)
}

// RateLimited is the AntifraudDeny response for a pre-capture HARD_BLOCK.
func RateLimited(kind string) *ServiceError {
	return New(AntifraudDeny, "rate_limited", http.StatusTooManyRequests).WithDetail("type", kind)
}

func InternalError(err error) *ServiceError {
	return Wrap(Internal, "internal error", http.StatusInternalServerError, err)
}

// IsServiceError reports whether err (or something it wraps) is a
// ServiceError.
func IsServiceError(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr)
}

// As extracts a ServiceError from err's chain, if any.
func As(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// HTTPStatus returns err's HTTP status, defaulting to 500 for non-ServiceError
// values.
func HTTPStatus(err error) int {
	if svcErr, ok := As(err); ok {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
