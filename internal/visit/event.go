package visit

import "time"

// EventKind names what changed.
type EventKind string

const (
	EventAdded                EventKind = "visit.added"
	EventLeft                 EventKind = "visit.left"
	EventExpectedLeaveUpdated EventKind = "visit.expected_leave_updated"
	EventHeartbeat            EventKind = "heartbeat"
	// EventSnapshot carries the full state to a newly attached observer.
	EventSnapshot EventKind = "snapshot"
)

// Event tells observers to re-read the derived collections.
// Visit is set for mutations; Snapshot is always set.
type Event struct {
	Kind     EventKind `json:"kind"`
	At       time.Time `json:"at"`
	Visit    *Visit    `json:"visit,omitempty"`
	Snapshot *Snapshot `json:"snapshot"`
}

// Notifier receives store and heartbeat events. Implementations must not
// block for long; they run on the writer's goroutine.
type Notifier interface {
	Notify(e Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(e Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) {
	f(e)
}

// Fanout delivers each event to every notifier in order.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(e Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(e)
		}
	}
}
