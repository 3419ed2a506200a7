package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorFormattingIncludesWaitAndCause(t *testing.T) {
	err := New(
		"decoder",
		CodeExhausted,
		WithWait(250*time.Millisecond),
		WithMessage("admission timed out"),
		WithCause(errors.New("context deadline exceeded")),
	)

	out := err.Error()
	if !strings.Contains(out, "pool=decoder") {
		t.Fatalf("expected pool marker in error string: %s", out)
	}
	if !strings.Contains(out, "code=exhausted") {
		t.Fatalf("expected code in error string: %s", out)
	}
	if !strings.Contains(out, "wait=250ms") {
		t.Fatalf("expected wait duration in error string: %s", out)
	}
	if !strings.Contains(out, "message=\"admission timed out\"") {
		t.Fatalf("expected message in error string: %s", out)
	}
	if !strings.Contains(out, "cause=\"context deadline exceeded\"") {
		t.Fatalf("expected wrapped cause in error string: %s", out)
	}
}

func TestEmptyPoolAndCodeRenderUnknown(t *testing.T) {
	err := New("   ", "")
	out := err.Error()
	if !strings.Contains(out, "pool=unknown") {
		t.Fatalf("expected unknown pool marker, got %s", out)
	}
	if !strings.Contains(out, "code=unknown") {
		t.Fatalf("expected unknown code marker, got %s", out)
	}
}

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	inner := New("decoder", CodeInvalidConfig, WithMessage("capacity must be positive"))
	wrapped := fmt.Errorf("building pool: %w", inner)

	if got := CodeOf(wrapped); got != CodeInvalidConfig {
		t.Fatalf("expected invalid_config code, got %q", got)
	}
	if !IsCode(wrapped, CodeInvalidConfig) {
		t.Fatal("expected IsCode to match through wrapping")
	}
	if IsCode(wrapped, CodeExhausted) {
		t.Fatal("IsCode matched the wrong code")
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("expected empty code for plain error, got %q", got)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := New("decoder", CodeUnavailable, WithCause(cause))
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the cause")
	}
}

func TestNilErrorString(t *testing.T) {
	var e *E
	if got := e.Error(); got != "<nil>" {
		t.Fatalf("expected <nil> string for nil error, got %q", got)
	}
}
