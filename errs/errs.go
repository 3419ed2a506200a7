// Package errs provides structured error types and helpers for slotpool.
package errs

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Code identifies a pool error category.
type Code string

const (
	// CodeInvalidConfig indicates invalid construction parameters.
	CodeInvalidConfig Code = "invalid_config"
	// CodeExhausted indicates that admission timed out before a permit freed up.
	CodeExhausted Code = "exhausted"
	// CodeUnavailable indicates the pool or manager is shutting down or already drained.
	CodeUnavailable Code = "unavailable"
	// CodeInternal indicates inconsistent pool bookkeeping, which is a bug in slotpool.
	CodeInternal Code = "internal"
)

// E captures structured error information produced across the slotpool stack.
type E struct {
	Pool    string
	Code    Code
	Message string
	// Wait carries the configured admission timeout for CodeExhausted errors.
	Wait time.Duration

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the named pool and error code.
func New(pool string, code Code, opts ...Option) *E {
	e := &E{
		Pool:    strings.TrimSpace(pool),
		Code:    code,
		Message: "",
		Wait:    0,
		cause:   nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithWait records the admission timeout that was exceeded.
func WithWait(wait time.Duration) Option {
	return func(e *E) {
		e.Wait = wait
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	pool := strings.TrimSpace(e.Pool)
	if pool == "" {
		pool = "unknown"
	}
	parts = append(parts, "pool="+pool)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Wait > 0 {
		parts = append(parts, "wait="+e.Wait.String())
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the slotpool error code from err, unwrapping as needed.
// It returns an empty code when err does not carry an *E.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries an *E with the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
