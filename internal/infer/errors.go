package infer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrUnavailable reports a backend that cannot be reached at all (connection
// refused, no such host). It is systemic, not per-call: callers fail the
// whole job instead of retrying chunk by chunk.
var ErrUnavailable = errors.New("inference backend unavailable")

// RetryableError is a transient per-call failure: a timeout, an overloaded
// server, or an empty response. Callers retry a bounded number of times and
// then degrade to partial output.
type RetryableError struct {
	StatusCode int // 0 for transport-level failures
	Message    string
}

func (e *RetryableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient inference error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
	}
	return fmt.Sprintf("transient inference error: %s", truncate(e.Message, 200))
}

// IsRetryable checks whether an error is worth retrying.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// classifyTransport maps an HTTP transport error into the taxonomy.
func classifyTransport(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &RetryableError{Message: "request timed out: " + err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RetryableError{Message: "request timed out: " + err.Error()}
	}
	return fmt.Errorf("inference call: %w", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
