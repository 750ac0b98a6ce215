// Package api provides the authenticated request executor for the dashboard
// API: credential attachment, proactive expiry renewal, reactive 401
// retry-once, and session-expired escalation. Every expected failure mode
// comes back as an explicit error value, never a panic.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired is the terminal unauthenticated outcome: no salvageable
// credential exists and the user must log in again. By the time a caller
// sees it, the stored session has been cleared and the expiry handler
// notified.
var ErrSessionExpired = errors.New("api: session expired")

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrBadRequest  = errors.New("api: bad request")
	ErrForbidden   = errors.New("api: forbidden")
	ErrNotFound    = errors.New("api: not found")
	ErrConflict    = errors.New("api: conflict")
	ErrThrottled   = errors.New("api: throttled")
	ErrServerError = errors.New("api: server error")

	// ErrUnexpectedStatus covers statuses with no sentinel of their own
	// (redirects, uncommon 4xx). Every APIError unwraps to something.
	ErrUnexpectedStatus = errors.New("api: unexpected status")
)

// APIError wraps a sentinel error with HTTP status code, request ID, and the
// response body for debugging. It covers every non-401 error status and any
// malformed response body.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// TransportError wraps a network-level failure (DNS, timeout, refused
// connection). The executor never retries these — backoff policy belongs to
// the caller.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport-level failure, the one
// failure class callers may reasonably retry with backoff.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// classifyStatus maps an HTTP status code to a sentinel error, never nil.
// 401 never reaches here — the executor converts it to ErrSessionExpired
// after its retry budget is spent.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrUnexpectedStatus
	}
}
