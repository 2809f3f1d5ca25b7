// Package realtime pushes visit snapshots to dashboards over websockets.
package realtime

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evcraddock/shopdesk/internal/visit"
)

const writeTimeout = 5 * time.Second

// wsConn wraps a websocket connection with a write mutex to serialize writes.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Hub tracks dashboard connections and broadcasts every visit event to them.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*wsConn]struct{}
	snapshot func() visit.Snapshot
	origins  map[string]struct{}
	upgrader websocket.Upgrader
}

// NewHub creates a hub. snapshot supplies the state sent to new connections.
//
// Browsers may only connect from the server's own origin or one listed in
// origins (for example "https://dash.example.com"). Requests without an
// Origin header come from non-browser clients and are accepted.
func NewHub(snapshot func() visit.Snapshot, origins ...string) *Hub {
	h := &Hub{
		conns:    make(map[*wsConn]struct{}),
		snapshot: snapshot,
		origins:  make(map[string]struct{}, len(origins)),
	}
	for _, o := range origins {
		h.origins[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	_, ok := h.origins[strings.ToLower(u.Scheme+"://"+u.Host)]
	if !ok {
		slog.Debug("websocket origin rejected", "origin", origin, "host", r.Host)
	}
	return ok
}

// ServeHTTP upgrades the request, sends the current snapshot, then keeps
// the connection registered until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{conn: conn}
	h.register(c)
	defer h.unregister(c)

	snap := h.snapshot()
	if err := c.writeJSON(visit.Event{Kind: visit.EventSnapshot, At: snap.GeneratedAt, Snapshot: &snap}); err != nil {
		slog.Debug("websocket initial write failed", "error", err)
		return
	}

	// Clients only listen; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Notify implements visit.Notifier by broadcasting e to every connection.
func (h *Hub) Notify(e visit.Event) {
	h.mu.RLock()
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(e); err != nil {
			slog.Debug("websocket write failed", "kind", e.Kind, "error", err)
			h.unregister(c)
		}
	}
}

// Count returns the number of connected dashboards.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every dashboard.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*wsConn]struct{})
	h.mu.Unlock()

	for c := range conns {
		_ = c.conn.Close()
	}
}

func (h *Hub) register(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) unregister(c *wsConn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}
