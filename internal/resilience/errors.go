package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as retryable, optionally carrying the HTTP
// status that produced it.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// transientPatterns are error-message fragments from the upstreams this
// pipeline calls whose errors do not always survive unwrapping with their
// types intact.
var transientPatterns = []string{
	// Anthropic API error types that warrant a retry. Invalid-request and
	// auth errors deliberately absent: resending the same prompt cannot fix
	// those.
	"overloaded_error",
	"rate_limit_error",
	"api_error",

	// S3 throttling responses as surfaced by the minio client.
	"slow down",
	"please reduce your request rate",

	// Network and connection failures that arrive as plain strings once
	// they have been through an SDK's error formatting.
	"connection reset",
	"connection refused",
	"broken pipe",
	"i/o timeout",
	"no such host",
	"tls handshake timeout",
	"unexpected eof",
	"server closed idle connection",
}

// IsTransient reports whether an error is worth retrying: an explicit
// TransientError, a network timeout, a reset/refused connection, or an error
// string matching a known transient pattern from Anthropic, S3, or the
// network stack.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status code indicates a
// transient failure. 529 is Anthropic's overloaded status.
func IsTransientHTTPStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}
