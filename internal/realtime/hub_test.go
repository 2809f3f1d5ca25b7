package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evcraddock/shopdesk/internal/visit"
)

func TestHubSendsSnapshotThenEvents(t *testing.T) {
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := visit.NewStore(visit.WithClock(func() time.Time { return clock }))
	hub := NewHub(store.Snapshot)

	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv.URL)

	var first visit.Event
	readEvent(t, conn, &first)
	if first.Kind != visit.EventSnapshot {
		t.Fatalf("first kind = %q, want snapshot", first.Kind)
	}
	if first.Snapshot == nil || len(first.Snapshot.Visits) != 0 {
		t.Fatalf("snapshot = %+v, want empty", first.Snapshot)
	}
	if hub.Count() != 1 {
		t.Fatalf("count = %d, want 1", hub.Count())
	}

	v, err := store.Add(visit.NewVisit{CustomerName: "Dana", VisitType: visit.Ask})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	snap := store.Snapshot()
	hub.Notify(visit.Event{Kind: visit.EventAdded, At: clock, Visit: &v, Snapshot: &snap})

	var got visit.Event
	readEvent(t, conn, &got)
	if got.Kind != visit.EventAdded {
		t.Errorf("kind = %q, want %q", got.Kind, visit.EventAdded)
	}
	if got.Visit == nil || got.Visit.ID != v.ID {
		t.Errorf("visit = %+v, want id %s", got.Visit, v.ID)
	}
	if got.Snapshot == nil || len(got.Snapshot.Active) != 1 {
		t.Errorf("snapshot active = %+v, want 1", got.Snapshot)
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(func() visit.Snapshot { return visit.Snapshot{} })
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv.URL)
	var first visit.Event
	readEvent(t, conn, &first)

	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("count = %d after disconnect, want 0", hub.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubNotifyWithoutClients(t *testing.T) {
	hub := NewHub(func() visit.Snapshot { return visit.Snapshot{} })
	hub.Notify(visit.Event{Kind: visit.EventHeartbeat})
	if hub.Count() != 0 {
		t.Errorf("count = %d, want 0", hub.Count())
	}
}

func TestHubRejectsPlainHTTP(t *testing.T) {
	hub := NewHub(func() visit.Snapshot { return visit.Snapshot{} })
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))

	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if hub.Count() != 0 {
		t.Errorf("count = %d, want 0", hub.Count())
	}
}

func TestHubOriginPolicy(t *testing.T) {
	hub := NewHub(func() visit.Snapshot { return visit.Snapshot{} }, "https://Dash.example.com/")
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"no origin", "", true},
		{"same origin", srv.URL, true},
		{"listed origin", "https://dash.example.com", true},
		{"foreign origin", "https://evil.example.com", false},
		{"listed host wrong scheme", "http://dash.example.com", false},
		{"malformed origin", "://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if tt.ok {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				_ = conn.Close()
				return
			}
			if err == nil {
				_ = conn.Close()
				t.Fatal("expected handshake to be rejected")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}

func dial(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, v *visit.Event) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	if err := conn.ReadJSON(v); err != nil {
		t.Fatalf("read: %v", err)
	}
}
