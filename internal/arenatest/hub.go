package arenatest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/agentarena/arenasync/internal/domain/battle"
	"github.com/agentarena/arenasync/internal/port/arena"
)

// hubConn wraps a single subscriber connection.
type hubConn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Hub manages the battle channel's subscriber connections and fans
// feed messages out to all of them. The channel is one-way; inbound
// frames are read only to detect disconnects.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[*hubConn]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		conns: make(map[*hubConn]struct{}),
	}
}

// HandleWS upgrades the request and registers the connection.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &hubConn{ws: ws, cancel: cancel}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("feed subscriber connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// BroadcastRoster sends a full-roster replace to every subscriber.
func (h *Hub) BroadcastRoster(ctx context.Context, battles []battle.Battle) {
	h.broadcast(ctx, arena.FeedMessage{Type: arena.FeedBattlesUpdate, Battles: battles})
}

// BroadcastDelta sends a single-battle delta to every subscriber.
func (h *Hub) BroadcastDelta(ctx context.Context, b battle.Battle) {
	h.broadcast(ctx, arena.FeedMessage{Type: arena.FeedBattleUpdate, Battle: &b})
}

// ConnectionCount returns the number of active subscribers.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll drops every subscriber connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*hubConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*hubConn]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.cancel()
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}
}

func (h *Hub) broadcast(ctx context.Context, msg arena.FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal feed message failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			h.log.Debug("feed write failed", "error", err)
			go h.remove(c)
		}
	}
}

func (h *Hub) remove(c *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
	}
}
