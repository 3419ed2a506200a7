package observability

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

type captureLogger struct {
	mu      sync.Mutex
	entries []string
	fields  []Field
}

func (c *captureLogger) record(msg string, fields []Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, msg)
	c.fields = append(c.fields, fields...)
}

func (c *captureLogger) Debug(msg string, fields ...Field) { c.record(msg, fields) }
func (c *captureLogger) Info(msg string, fields ...Field)  { c.record(msg, fields) }
func (c *captureLogger) Error(msg string, fields ...Field) { c.record(msg, fields) }

func TestSetLoggerNilRestoresNoop(t *testing.T) {
	SetLogger(nil)
	if _, ok := Log().(noopLogger); !ok {
		t.Fatalf("expected noop logger, got %T", Log())
	}
}

func TestAggregateErrorsJoinsAndLogs(t *testing.T) {
	capture := &captureLogger{}
	SetLogger(capture)
	defer SetLogger(nil)

	first := errors.New("close failed: conn reset")
	err := AggregateErrors("evict_all", []error{nil, first, errors.New("close failed: eof")},
		Field{Key: "pool", Value: "decoder"})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !errors.Is(err, first) {
		t.Fatal("expected joined error to preserve members")
	}
	if !strings.Contains(err.Error(), "evict_all failed") {
		t.Fatalf("expected operation prefix, got %q", err.Error())
	}
	if len(capture.entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(capture.entries))
	}
}

func TestAggregateErrorsAllNil(t *testing.T) {
	if err := AggregateErrors("evict_all", []error{nil, nil}); err != nil {
		t.Fatalf("expected nil for empty error set, got %v", err)
	}
}
