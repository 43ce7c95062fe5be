// Package livefeed implements the battle live channel over WebSocket.
// The channel is receive-only: the backend pushes full-roster replaces
// and single-battle deltas, and the client never sends. There is no
// automatic reconnect — after a drop the owning store decides when to
// call Connect again.
package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/coder/websocket"

	"github.com/agentarena/arenasync/internal/port/arena"
)

// Path is the battle live channel endpoint, rooted at the host serving
// the dashboard (not under the API gateway prefix).
const Path = "/ws/battles"

// DeriveURL computes the live channel URL from the API base URL,
// mirroring the page scheme: http becomes ws, https becomes wss.
func DeriveURL(apiBaseURL string) (string, error) {
	u, err := url.Parse(apiBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = Path
	u.RawQuery = ""
	return u.String(), nil
}

// Feed is a live channel client for one battles store instance. Only
// the owning store opens, reads, or closes it.
type Feed struct {
	url string
	log *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	state   arena.FeedState
	onState func(arena.FeedState)
}

// New creates a feed client for the given WebSocket URL.
func New(wsURL string, log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{
		url:   wsURL,
		log:   log,
		state: arena.FeedDisconnected,
	}
}

// Connect dials the channel and starts the read loop. It is a no-op if
// a connection is already alive. A dial failure leaves the feed
// disconnected and is returned to the caller.
func (f *Feed) Connect(ctx context.Context, onMessage func(arena.FeedMessage), onState func(arena.FeedState)) error {
	f.mu.Lock()
	if f.state != arena.FeedDisconnected {
		f.mu.Unlock()
		return nil
	}
	f.onState = onState
	f.mu.Unlock()

	f.transition(arena.FeedConnecting)

	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		f.transition(arena.FeedDisconnected)
		return fmt.Errorf("dial %s: %w", f.url, err)
	}

	// The read loop outlives the dial context: the channel stays open
	// until Disconnect or a server-side close.
	readCtx, cancel := context.WithCancel(context.Background())

	f.mu.Lock()
	f.conn = conn
	f.cancel = cancel
	f.mu.Unlock()

	f.transition(arena.FeedConnected)
	f.log.Info("live feed connected", "url", f.url)

	go f.readLoop(readCtx, conn, onMessage)
	return nil
}

// Disconnect closes the channel. Safe to call when not connected.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	conn, cancel := f.conn, f.cancel
	f.conn, f.cancel = nil, nil
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		f.log.Info("live feed disconnected")
	}
	f.transition(arena.FeedDisconnected)
}

// State returns the current connection state.
func (f *Feed) State() arena.FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn, onMessage func(arena.FeedMessage)) {
	defer f.dropConn(conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			f.log.Debug("live feed read ended", "error", err)
			return
		}

		var msg arena.FeedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.log.Error("live feed message decode failed", "error", err)
			continue
		}

		switch msg.Type {
		case arena.FeedBattlesUpdate, arena.FeedBattleUpdate:
			onMessage(msg)
		default:
			f.log.Debug("live feed message ignored", "type", msg.Type)
		}
	}
}

// dropConn marks the feed disconnected if conn is still the active
// connection. A newer connection opened by a reconnecting caller is
// left alone.
func (f *Feed) dropConn(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "")

	f.mu.Lock()
	stale := f.conn != conn
	if !stale {
		f.conn, f.cancel = nil, nil
	}
	f.mu.Unlock()

	if !stale {
		f.transition(arena.FeedDisconnected)
	}
}

// transition moves to the given state and fires the state callback
// outside the lock so observers may call back into the feed.
func (f *Feed) transition(s arena.FeedState) {
	f.mu.Lock()
	changed := f.state != s
	if changed {
		f.state = s
	}
	cb := f.onState
	f.mu.Unlock()

	if changed && cb != nil {
		cb(s)
	}
}
