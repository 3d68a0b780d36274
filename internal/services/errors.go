package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure classification markers. Every stage error is tagged with exactly
// one of these so the workflow manager and the delivery path can classify
// failures with errors.Is instead of string matching.
var (
	// ErrValidation marks client-caused failures (bad URL, unknown
	// operation). Never retried.
	ErrValidation = errors.New("validation error")
	// ErrFetch marks source retrieval failures. Retryable.
	ErrFetch = errors.New("fetch error")
	// ErrTranscode marks conversion failures on the fetched input. Not
	// retried automatically.
	ErrTranscode = errors.New("transcode error")
	// ErrTimeout marks a subprocess that exceeded its deadline and was
	// killed. Retryable at caller discretion.
	ErrTimeout = errors.New("timeout")
	// ErrDelivery marks artifact upload failures. Retried a bounded
	// number of times.
	ErrDelivery = errors.New("delivery error")
	// ErrConfiguration marks operator-caused failures.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalTool marks missing or broken external binaries.
	ErrExternalTool = errors.New("external tool error")
	// ErrNotFound marks lookups for jobs or resources that do not exist.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the workflow may re-run the failed stage.
// Validation, transcode, and configuration failures are deterministic and
// never retried; fetch, delivery, and timeout failures may succeed on a
// later attempt.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrTranscode), errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrFetch), errors.Is(err, ErrDelivery), errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
