// Package events publishes visit store and heartbeat events to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/evcraddock/shopdesk/internal/visit"
)

// Message is the wire form of a visit event. Snapshots are summarized so
// that a heartbeat on a busy day stays small.
type Message struct {
	Kind    string        `json:"kind"`
	At      time.Time     `json:"at"`
	Visit   *visit.Visit  `json:"visit,omitempty"`
	Active  int           `json:"active"`
	Overdue int           `json:"overdue"`
	Alerts  []visit.Alert `json:"alerts"`
}

// NATSPublisher sends every event to <subject>.<kind>.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("shopdesk"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Notify implements visit.Notifier. Publish errors are logged; they never
// fail the store mutation that produced the event.
func (p *NATSPublisher) Notify(e visit.Event) {
	data, err := Encode(e)
	if err != nil {
		slog.Warn("encoding event", "kind", e.Kind, "error", err)
		return
	}
	subject := Subject(p.subject, e.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		slog.Warn("publishing event", "subject", subject, "error", err)
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Subject returns the NATS subject for an event kind.
func Subject(base string, kind visit.EventKind) string {
	return base + "." + string(kind)
}

// Encode converts an event to its JSON wire form.
func Encode(e visit.Event) ([]byte, error) {
	m := Message{
		Kind:   string(e.Kind),
		At:     e.At,
		Visit:  e.Visit,
		Alerts: []visit.Alert{},
	}
	if e.Snapshot != nil {
		m.Active = len(e.Snapshot.Active)
		m.Overdue = len(e.Snapshot.Overdue)
		m.Alerts = e.Snapshot.Alerts
	}
	return json.Marshal(m)
}
