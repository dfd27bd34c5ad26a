package droneapi

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures.
type ErrorKind int

const (
	// KindTransport covers timeouts, connection failures and interruption.
	KindTransport ErrorKind = iota
	// KindStatus covers non-200 responses. These are never retried.
	KindStatus
	// KindParse covers bodies that are not a JSON object.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindParse:
		return "parse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrEndpointNotFound  = errors.New("endpoint not found")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is the single failure type returned by Client fetches.
type APIError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Attempts   int
	Err        error

	sentinel    error
	interrupted bool
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s %s", e.Endpoint, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" %d", e.StatusCode)
	}
	if e.sentinel != nil {
		msg += ": " + e.sentinel.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" (after %d attempts)", e.Attempts)
	}
	return msg
}

// Unwrap exposes both the classification sentinel and the underlying cause.
func (e *APIError) Unwrap() []error {
	var errs []error
	if e.sentinel != nil {
		errs = append(errs, e.sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Interrupted reports whether the fetch stopped because its context ended.
func (e *APIError) Interrupted() bool {
	return e.interrupted
}

// Retryable reports whether a UI retry affordance makes sense for the error.
func (e *APIError) Retryable() bool {
	return e.Kind == KindTransport && !e.Interrupted()
}

func statusError(endpoint string, code int) *APIError {
	sentinel := ErrUnexpectedStatus
	switch code {
	case 404:
		sentinel = ErrEndpointNotFound
	case 401:
		sentinel = ErrAuthFailed
	}
	return &APIError{Kind: KindStatus, Endpoint: endpoint, StatusCode: code, sentinel: sentinel}
}

// UserMessage maps an error to a short message suitable for a status line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch {
	case apiErr.Interrupted():
		return "request cancelled"
	case errors.Is(err, ErrEndpointNotFound):
		return "endpoint not found"
	case errors.Is(err, ErrAuthFailed):
		return "authentication failed, check the API token"
	case errors.Is(err, ErrUnexpectedStatus):
		return fmt.Sprintf("API returned status %d", apiErr.StatusCode)
	case errors.Is(err, ErrMalformedResponse):
		return "API returned an unreadable response"
	case errors.Is(err, ErrRetriesExhausted):
		return "API unreachable"
	default:
		return err.Error()
	}
}
