package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Failure kinds. A *Failure always wraps exactly one of these, so callers
// can classify it with errors.Is.
var (
	// ErrTimeout is returned when connecting or reading exceeds the timeout.
	ErrTimeout = errors.New("timeout")

	// ErrRefused is returned when the remote host refuses the connection.
	ErrRefused = errors.New("connection refused")

	// ErrReset is returned when the remote host resets the connection.
	ErrReset = errors.New("connection reset")

	// ErrUnreachable is returned when the host cannot be resolved or routed to.
	ErrUnreachable = errors.New("host unreachable")

	// ErrTooLarge is returned when a response exceeds the configured maximum size.
	ErrTooLarge = errors.New("response too large")

	// ErrCanceled is returned when the caller's context is cancelled.
	ErrCanceled = errors.New("canceled")

	// ErrIO covers every other I/O failure.
	ErrIO = errors.New("i/o error")
)

// Failure describes a request that did not produce a response.
type Failure struct {
	// Op is "fetch", "measure" or "probe".
	Op string

	// Addr is the "host:port" address that was contacted.
	Addr string

	// Selector is the requested selector. Empty for probes.
	Selector string

	// Kind is one of the Err* sentinels in this package.
	Kind error

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s %s", f.Op, f.Addr)
	if f.Op != "probe" {
		msg += fmt.Sprintf(" %q", f.Selector)
	}
	msg += ": " + f.Kind.Error()
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying error to errors.Is/As.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// classify maps a network error to a failure kind.
// parent is the caller's context; it distinguishes cancellation from the
// request's own timeout.
func classify(parent context.Context, err error) error {
	if parent.Err() != nil && errors.Is(parent.Err(), context.Canceled) {
		return ErrCanceled
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return ErrReset
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return ErrUnreachable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrUnreachable
	}

	if errors.Is(err, context.Canceled) {
		return ErrCanceled
	}
	return ErrIO
}
