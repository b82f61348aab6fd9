// Package cerr defines the canonical error shape every provider call
// ultimately fails with, and the mapping from category/status into the
// fixed retryability and code tables.
package cerr

import (
	"errors"
	"fmt"
)

// Category is the coarse failure classification a CanonicalError carries.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryRateLimit  Category = "rate_limit"
	CategoryNetwork    Category = "network"
	CategoryProvider   Category = "provider"
	CategoryValidation Category = "validation"
)

// Code is the fine-grained, stable error code derived from Category and
// (when present) an HTTP status.
type Code string

const (
	CodeAuthFailed   Code = "AUTH_FAILED"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUpstream5xx  Code = "UPSTREAM_5XX"
	CodeNetworkError Code = "NETWORK_ERROR"
	CodeTimeout      Code = "TIMEOUT"
	CodeUnknown      Code = "UNKNOWN"
)

// retryableCodes is the frozen retryability table from the error taxonomy:
// network, timeout, upstream 5xx and rate-limit errors are retryable;
// everything else is not.
var retryableCodes = map[Code]bool{
	CodeNetworkError: true,
	CodeTimeout:      true,
	CodeUpstream5xx:  true,
	CodeRateLimited:  true,
}

// IsRetryable reports whether code is retryable per the fixed table.
func IsRetryable(code Code) bool {
	return retryableCodes[code]
}

// DeriveCode computes the canonical code for a (category, status) pair.
// It never considers Code.Timeout; timeouts are a pipeline-level
// condition set explicitly via WithCode, not inferred from status.
func DeriveCode(category Category, status int) Code {
	switch category {
	case CategoryAuth:
		return CodeAuthFailed
	case CategoryRateLimit:
		return CodeRateLimited
	case CategoryNetwork:
		return CodeNetworkError
	case CategoryValidation:
		if status == 404 {
			return CodeNotFound
		}
		return CodeBadRequest
	case CategoryProvider:
		if status >= 500 {
			return CodeUpstream5xx
		}
		return CodeUnknown
	default:
		return CodeUnknown
	}
}

// CanonicalError is the single error shape every provider call fails
// with once it leaves the pipeline. It is a tagged struct, not an
// exception hierarchy: callers branch on Category/Code/Retryable, never
// on a type switch over vendor-specific error types.
type CanonicalError struct {
	Message    string
	Category   Category
	Code       Code
	Retryable  bool
	Provider   string
	RequestID  string
	Status     int
	Metadata   map[string]any
	RetryAfter int // seconds; zero means absent
	Cause      error
}

// New builds a CanonicalError with Code and Retryable derived from
// category and status. Use WithCode after construction to override the
// derived code (the timeout special case).
func New(category Category, status int, message string) *CanonicalError {
	code := DeriveCode(category, status)
	return &CanonicalError{
		Message:   message,
		Category:  category,
		Code:      code,
		Retryable: IsRetryable(code),
		Status:    status,
	}
}

// WithCode overrides the derived code and recomputes retryability.
func (e *CanonicalError) WithCode(code Code) *CanonicalError {
	e.Code = code
	e.Retryable = IsRetryable(code)
	return e
}

// WithProvider sets the provider name, returning the same error for chaining.
func (e *CanonicalError) WithProvider(provider string) *CanonicalError {
	e.Provider = provider
	return e
}

// WithRequestID sets the request id, returning the same error for chaining.
func (e *CanonicalError) WithRequestID(requestID string) *CanonicalError {
	e.RequestID = requestID
	return e
}

// WithMetadata attaches a metadata bag, returning the same error for chaining.
func (e *CanonicalError) WithMetadata(metadata map[string]any) *CanonicalError {
	e.Metadata = metadata
	return e
}

// WithRetryAfter sets the retry-after hint in seconds.
func (e *CanonicalError) WithRetryAfter(seconds int) *CanonicalError {
	e.RetryAfter = seconds
	return e
}

// WithCause records the underlying error for Unwrap, without leaking it
// into Message.
func (e *CanonicalError) WithCause(cause error) *CanonicalError {
	e.Cause = cause
	return e
}

// Error implements the error interface. It never includes internal file
// paths, type names, or stack traces -- only the sanitized message.
func (e *CanonicalError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any, for errors.Is/As support.
func (e *CanonicalError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a sentinel for this error's code, so
// callers can write errors.Is(err, cerr.ErrRateLimited) instead of
// comparing fields.
func (e *CanonicalError) Is(target error) bool {
	sentinel, ok := target.(*CanonicalError)
	if !ok {
		return false
	}
	return sentinel.Code != "" && sentinel.Code == e.Code
}

// ErrorCategory implements observe.ErrorCategory, letting the
// observability middleware tag metrics with this error's category
// without importing this package.
func (e *CanonicalError) ErrorCategory() string {
	return string(e.Category)
}

// IsRetryable implements retry's retryableError interface, letting the
// retry strategy gate on this error's explicit Retryable bit without
// importing this package.
func (e *CanonicalError) IsRetryable() bool {
	return e.Retryable
}

// Sentinel codes usable with errors.Is(err, cerr.ErrRateLimited).
var (
	ErrAuthFailed   = &CanonicalError{Code: CodeAuthFailed}
	ErrRateLimited  = &CanonicalError{Code: CodeRateLimited}
	ErrNotFound     = &CanonicalError{Code: CodeNotFound}
	ErrBadRequest   = &CanonicalError{Code: CodeBadRequest}
	ErrUpstream5xx  = &CanonicalError{Code: CodeUpstream5xx}
	ErrNetworkError = &CanonicalError{Code: CodeNetworkError}
	ErrTimeout      = &CanonicalError{Code: CodeTimeout}
)

// As is a convenience wrapper over errors.As for the common case of
// pulling a *CanonicalError out of an arbitrary error chain.
func As(err error) (*CanonicalError, bool) {
	var ce *CanonicalError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
