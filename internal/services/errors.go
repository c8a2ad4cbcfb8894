package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPrecondition marks an action that cannot be safely attempted, such
	// as hiding a thumbnail when no fallback poster exists. Never retried.
	ErrPrecondition = errors.New("precondition failed")
	// ErrRemote marks a transient failure talking to the media server.
	ErrRemote = errors.New("remote error")
	// ErrConfiguration marks invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing library, section, or item.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error that carries operation context while tagging it with
// one of the sentinel markers above for later classification.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrRemote
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an error is worth another verify round. Only
// remote failures are; precondition failures are terminal for the action.
func Retryable(err error) bool {
	return errors.Is(err, ErrRemote)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
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
