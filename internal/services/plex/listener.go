package plex

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Listener consumes the server's websocket notification stream and records
// the timestamp of the last relevant event. That single value is the only
// state it shares: the executor polls it to decide when background refresh
// activity has settled.
type Listener struct {
	wsURL string
	log   *slog.Logger

	mu   sync.Mutex
	last time.Time

	now func() time.Time
}

// relevantTypes are the notification types that indicate metadata work is
// still in flight after an edit or refresh.
var relevantTypes = map[string]struct{}{
	"timeline":                  {},
	"activity":                  {},
	"backgroundProcessingQueue": {},
}

// NewListener builds a listener for the given server. The websocket endpoint
// is derived from the HTTP base URL.
func NewListener(baseURL, token string, log *slog.Logger) (*Listener, error) {
	if log == nil {
		log = slog.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/:/websockets/notifications"
	parsed.RawQuery = url.Values{"X-Plex-Token": {token}}.Encode()

	return &Listener{
		wsURL: parsed.String(),
		log:   log.With("component", "listener"),
		now:   time.Now,
	}, nil
}

// LastActivity returns the time of the most recent relevant notification,
// or the zero time when nothing has been observed yet.
func (l *Listener) LastActivity() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Start runs the read loop in a new goroutine until ctx is cancelled,
// reconnecting with a short backoff when the connection drops. Losing the
// stream is not fatal: the executor then falls back to its wait cap.
func (l *Listener) Start(ctx context.Context) {
	go func() {
		for ctx.Err() == nil {
			if err := l.readLoop(ctx); err != nil && ctx.Err() == nil {
				l.log.Debug("notification stream dropped, reconnecting", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}()
}

func (l *Listener) readLoop(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, l.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")
	conn.SetReadLimit(1 << 20)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		l.observe(data)
	}
}

type notificationEnvelope struct {
	NotificationContainer struct {
		Type string `json:"type"`
	} `json:"NotificationContainer"`
}

func (l *Listener) observe(data []byte) {
	var envelope notificationEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}
	if _, ok := relevantTypes[envelope.NotificationContainer.Type]; !ok {
		return
	}
	l.mu.Lock()
	l.last = l.now()
	l.mu.Unlock()
}
