// Package apperrors defines the client-side error taxonomy shared by the
// transport, auth and repository layers. Callers classify failures with
// errors.Is / errors.As; SessionExpired is the only error the UI layer has
// to recognize on its own.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidURL indicates a request path could not be resolved against the base address.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrSessionExpired indicates the stored session can not be recovered
	// and the user has to authenticate again.
	ErrSessionExpired = errors.New("session expired")

	// ErrAlreadyRated indicates a repeat rating attempt (the backend
	// answers 409 with no usable body, so the mapping is client-side).
	ErrAlreadyRated = errors.New("session already rated")

	// ErrNotEnrolled indicates rating a session the account never joined.
	ErrNotEnrolled = errors.New("not enrolled in session")
)

// ServerErrorResponse is the structured error body the backend attaches to
// non-2xx responses.
type ServerErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (r *ServerErrorResponse) Message() string {
	if r == nil {
		return ""
	}
	if r.Details != "" {
		return r.Details
	}
	return r.Error
}

// ServerError carries a non-2xx HTTP status and the decoded error body, if
// the backend supplied one.
type ServerError struct {
	StatusCode int
	Response   *ServerErrorResponse
}

func (e *ServerError) Error() string {
	if msg := e.Response.Message(); msg != "" {
		return fmt.Sprintf("server error %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("server error %d", e.StatusCode)
}

// DecodingError indicates a 2xx response body could not be decoded.
// Retrying reproduces the same payload, so it is never retried.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string { return fmt.Sprintf("failed processing data: %v", e.Err) }
func (e *DecodingError) Unwrap() error { return e.Err }

// NetworkError wraps a transport-level failure (DNS, timeout, refused
// connection, cancelled context).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("connection issue: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// UnknownError wraps failures that fit no other class.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	if e.Err == nil {
		return "an unknown error occurred"
	}
	return fmt.Sprintf("an unknown error occurred: %v", e.Err)
}

func (e *UnknownError) Unwrap() error { return e.Err }

// Unauthorized returns the error used both when a request needs a bearer
// token that is missing and when the backend rejects a stale one.
func Unauthorized() error {
	return &ServerError{StatusCode: http.StatusUnauthorized}
}

// IsUnauthorized reports whether err is an HTTP-401-equivalent failure.
// It is the single probe the refresh-and-retry contract relies on.
func IsUnauthorized(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// StatusCode extracts the HTTP status carried by a server error, or 0.
func StatusCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// UserMessage renders err as text suitable for a transient notification.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return "Session expired, please login again."
	case errors.Is(err, ErrInvalidURL):
		return "Invalid address."
	case errors.Is(err, ErrAlreadyRated):
		return "You have already rated this session"
	case errors.Is(err, ErrNotEnrolled):
		return "You are not enrolled in this session"
	}

	var se *ServerError
	if errors.As(err, &se) {
		if msg := se.Response.Message(); msg != "" {
			return msg
		}
		return fmt.Sprintf("Server error (%d).", se.StatusCode)
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		return "Connection issue, please check your network."
	}

	var de *DecodingError
	if errors.As(err, &de) {
		return "Failed processing server data."
	}

	return "An unknown error occurred."
}
