package plex

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestObserveRecordsRelevantNotifications(t *testing.T) {
	stamp := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	listener := &Listener{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: func() time.Time { return stamp },
	}

	listener.observe([]byte(`{"NotificationContainer":{"type":"timeline"}}`))
	if got := listener.LastActivity(); !got.Equal(stamp) {
		t.Fatalf("timeline notification not recorded, last=%v", got)
	}
}

func TestObserveIgnoresIrrelevantNotifications(t *testing.T) {
	listener := &Listener{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: time.Now,
	}

	listener.observe([]byte(`{"NotificationContainer":{"type":"playing"}}`))
	listener.observe([]byte(`{"NotificationContainer":{"type":"status"}}`))
	listener.observe([]byte(`not json`))
	if !listener.LastActivity().IsZero() {
		t.Fatal("irrelevant notifications must not advance the activity clock")
	}
}

func TestNewListenerDerivesWebsocketURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://plex.local:32400", "ws://plex.local:32400/:/websockets/notifications?X-Plex-Token=secret"},
		{"https://plex.example.com/", "wss://plex.example.com/:/websockets/notifications?X-Plex-Token=secret"},
	}
	for _, tc := range cases {
		listener, err := NewListener(tc.base, "secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			t.Fatalf("NewListener(%q): %v", tc.base, err)
		}
		if listener.wsURL != tc.want {
			t.Fatalf("NewListener(%q) url = %q, want %q", tc.base, listener.wsURL, tc.want)
		}
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	listener, err := NewListener("http://127.0.0.1:0", "secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	listener.Start(ctx)
	cancel()
	// The loop observes cancellation on its next wakeup; nothing to assert
	// beyond not panicking and not blocking the test.
	time.Sleep(10 * time.Millisecond)
}
