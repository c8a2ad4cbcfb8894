package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"plexhush/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRemote, "write field", "summary edit failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"write field", "summary edit failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToRemoteMarker(t *testing.T) {
	err := services.Wrap(nil, "refresh", "", nil)
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("nil marker should default to remote, got %v", err)
	}
}

func TestRunIDRoundTrip(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "ab12cd34")
	if id, ok := services.RunIDFromContext(ctx); !ok || id != "ab12cd34" {
		t.Fatalf("got %q/%v, want ab12cd34", id, ok)
	}
	if _, ok := services.RunIDFromContext(context.Background()); ok {
		t.Fatal("bare context must not carry a run ID")
	}
	if ctx := services.WithRunID(context.Background(), ""); ctx != context.Background() {
		t.Fatal("empty run ID must not allocate a value context")
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrRemote, "tag", "", errors.New("io"))) {
		t.Fatal("remote errors are retryable")
	}
	if services.Retryable(services.Wrap(services.ErrPrecondition, "select poster", "no candidates", nil)) {
		t.Fatal("precondition errors are not retryable")
	}
	if services.Retryable(nil) {
		t.Fatal("nil error is not retryable")
	}
}
