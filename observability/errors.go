package observability

import (
	"errors"
	"fmt"
)

// AggregateErrors drops nil entries, logs the survivors as a single
// structured entry, and returns them joined under the operation name. A nil
// result means nothing failed.
func AggregateErrors(operation string, failures []error, fields ...Field) error {
	var kept []error
	var messages []string
	for _, err := range failures {
		if err == nil {
			continue
		}
		kept = append(kept, err)
		messages = append(messages, err.Error())
	}
	if len(kept) == 0 {
		return nil
	}

	entry := make([]Field, 0, len(fields)+3)
	entry = append(entry, fields...)
	entry = append(entry,
		Field{Key: "operation", Value: operation},
		Field{Key: "failure_count", Value: len(kept)},
		Field{Key: "failures", Value: messages},
	)
	Log().Error("pool operation errors", entry...)

	return fmt.Errorf("%s failed: %w", operation, errors.Join(kept...))
}
