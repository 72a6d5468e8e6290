// Package remote defines the remote call contract used by the pipeline.
//
// This package contains:
//   - Caller: the single abstract capability for reaching the analysis API
//   - Error: the typed failure every Caller reports
//   - Client: a JSON-over-HTTP Caller built on resty
package remote

import (
	"context"
	"errors"
	"fmt"
)

// Caller performs one remote call. A successful call resolves to the decoded
// JSON payload. A failed call returns *Error.
type Caller interface {
	Call(ctx context.Context, endpoint string, payload any) (any, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, endpoint string, payload any) (any, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, endpoint string, payload any) (any, error) {
	return f(ctx, endpoint, payload)
}

// Error is a failed remote call.
//
// HadResponse is false for transport failures (no response at all). When it is
// true, Status holds the response status and Body the decoded response body, if any.
type Error struct {
	Endpoint    string
	HadResponse bool
	Status      int
	Body        any
	Err         error
}

func (e *Error) Error() string {
	if !e.HadResponse {
		if e.Err != nil {
			return fmt.Sprintf("remote %s: no response: %v", e.Endpoint, e.Err)
		}
		return fmt.Sprintf("remote %s: no response", e.Endpoint)
	}
	if e.Err != nil {
		return fmt.Sprintf("remote %s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s: status %d", e.Endpoint, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TransportError builds an Error for a call that received no response.
func TransportError(endpoint string, err error) *Error {
	return &Error{Endpoint: endpoint, Err: err}
}

// StatusError builds an Error for a call answered with a failure status.
func StatusError(endpoint string, status int, body any) *Error {
	return &Error{Endpoint: endpoint, HadResponse: true, Status: status, Body: body}
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
