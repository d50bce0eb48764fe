// Package errors is the storefront's error taxonomy. Every failure a client
// can see maps to one wire code and HTTP status, either through an *AppError
// or through one of the sentinels below wrapped with %w.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched with errors.Is across layers.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMissingSession   = errors.New("missing session")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrConflict         = errors.New("conflict")
	ErrServiceUnavail   = errors.New("service unavailable")
	ErrRateLimited      = errors.New("rate limited")
)

// Wire codes written in the error envelope.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodeConflict         = "CONFLICT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

const internalMessage = "an internal error occurred"

// kind maps a sentinel to its wire form. An empty message means the error's
// own text is safe to show.
type kind struct {
	sentinel error
	code     string
	status   int
	message  string
}

var kinds = []kind{
	{ErrNotFound, CodeNotFound, http.StatusNotFound, "resource not found"},
	{ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest, ""},
	{ErrMissingSession, CodeUnauthorized, http.StatusUnauthorized, "session is required"},
	{ErrUnsupportedMedia, CodeUnsupportedMedia, http.StatusUnsupportedMediaType, "Content-Type must be application/json"},
	{ErrConflict, CodeConflict, http.StatusConflict, "resource was modified concurrently"},
	{ErrRateLimited, CodeRateLimited, http.StatusTooManyRequests, "too many requests, slow down"},
	{ErrServiceUnavail, CodeUnavailable, http.StatusServiceUnavailable, "a dependency is unavailable"},
}

func kindOf(sentinel error) kind {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return k
		}
	}
	return kind{code: CodeInternal, status: http.StatusInternalServerError, message: internalMessage}
}

// AppError is an error with a client-facing code, message and status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(sentinel error, message string) *AppError {
	k := kindOf(sentinel)
	if message == "" {
		message = k.message
	}
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

// NotFound reports a missing product, order or wishlist snapshot.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidInput reports a request the client must change before retrying.
func InvalidInput(message string) *AppError {
	return newError(ErrInvalidInput, message)
}

// MissingSession reports a request without the session header.
func MissingSession(header string) *AppError {
	return newError(ErrMissingSession, header+" header is required")
}

// UnsupportedMediaType reports a body that is not JSON.
func UnsupportedMediaType() *AppError {
	return newError(ErrUnsupportedMedia, "")
}

// Conflict reports a write that collides with existing state.
func Conflict(message string) *AppError {
	return newError(ErrConflict, message)
}

// Unavailable reports a dependency that is down or shedding load. The cause
// stays reachable with errors.Is.
func Unavailable(dependency string, err error) *AppError {
	e := newError(ErrServiceUnavail, dependency+" is unavailable")
	e.Err = errors.Join(ErrServiceUnavail, err)
	return e
}

// RateLimited reports a client over its request budget.
func RateLimited() *AppError {
	return newError(ErrRateLimited, "")
}

// Internal hides err behind a generic 500.
func Internal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: internalMessage, Status: http.StatusInternalServerError, Err: err}
}

// Classify returns the wire code, HTTP status and client-safe message for err.
// Unknown errors become a 500 whose message reveals nothing.
func Classify(err error) (code string, status int, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Status, appErr.Message
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			if k.message == "" {
				return k.code, k.status, err.Error()
			}
			return k.code, k.status, k.message
		}
	}
	return CodeInternal, http.StatusInternalServerError, internalMessage
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	_, status, _ := Classify(err)
	return status
}
