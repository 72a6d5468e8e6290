package retry

import (
	"net/http"

	"github.com/vietddude/trendcore/internal/infra/remote"
)

// Class is the retry classification of a failed operation.
type Class int

const (
	// ClassTransport: no response was received.
	ClassTransport Class = iota
	// ClassServer: the server answered with status >= 500.
	ClassServer
	// ClassRateLimited: the server answered with 429.
	ClassRateLimited
	// ClassClient: any other failure status; the request itself is wrong.
	ClassClient
	// ClassFatal: not a remote failure at all (local error, cancellation).
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassServer:
		return "server"
	case ClassRateLimited:
		return "rate_limited"
	case ClassClient:
		return "client"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Retryable reports whether an operation failing with this class may be retried.
func (c Class) Retryable() bool {
	switch c {
	case ClassTransport, ClassServer, ClassRateLimited:
		return true
	}
	return false
}

// Classify determines the class for a given error.
// Only *remote.Error values are ever retryable.
func Classify(err error) Class {
	re, ok := remote.AsError(err)
	if !ok {
		return ClassFatal
	}
	if !re.HadResponse {
		return ClassTransport
	}
	switch {
	case re.Status >= http.StatusInternalServerError:
		return ClassServer
	case re.Status == http.StatusTooManyRequests:
		return ClassRateLimited
	default:
		return ClassClient
	}
}
