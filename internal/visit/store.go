package visit

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time.
type Clock func() time.Time

// Saver persists a visit record after every mutation.
type Saver interface {
	Save(v Visit) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the store's notion of the current time.
func WithClock(c Clock) Option {
	return func(s *Store) { s.now = c }
}

// WithNotifier sends mutation events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithSaver persists every mutated record through sv.
func WithSaver(sv Saver) Option {
	return func(s *Store) { s.saver = sv }
}

// WithWarnWindow changes how early open visits raise warning alerts.
func WithWarnWindow(d time.Duration) Option {
	return func(s *Store) { s.warnWindow = d }
}

// WithVisits seeds the store with existing records, newest first.
func WithVisits(visits []Visit) Option {
	return func(s *Store) {
		s.visits = make([]Visit, len(visits))
		copy(s.visits, visits)
	}
}

// Store owns the canonical, newest-first list of visits.
//
// Writes replace the backing slice rather than editing it, so a slice
// handed to a reader is never modified afterwards. Status is not trusted
// from storage: every read derives it from the current time.
//
// Notifiers observe events in the order the writes were applied. They must
// not call back into the store's write methods.
type Store struct {
	mu         sync.RWMutex
	emitMu     sync.Mutex // held from a write through its notification
	visits     []Visit
	now        Clock
	notifier   Notifier
	saver      Saver
	warnWindow time.Duration
	newID      func() (string, error)
}

// NewStore creates an empty visit store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		warnWindow: DefaultWarnWindow,
		newID:      newVisitID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newVisitID returns a UUIDv7: a millisecond timestamp followed by random bits.
func newVisitID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Add records a new visit at the head of the store.
func (s *Store) Add(in NewVisit) (Visit, error) {
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		return Visit{}, ErrMissingCustomer
	}
	if !in.VisitType.IsValid() {
		return Visit{}, errInvalidVisitType(string(in.VisitType))
	}

	now := s.now()
	arrivedAt := in.ArrivedAt
	if arrivedAt.IsZero() {
		arrivedAt = now
	}
	arrivedAt, err := normalize(arrivedAt)
	if err != nil {
		return Visit{}, fmt.Errorf("arrived_at: %w", err)
	}

	service := strings.TrimSpace(in.Service)

	var expected time.Time
	if in.ExpectedLeaveAt != nil {
		expected, err = normalize(*in.ExpectedLeaveAt)
		if err != nil {
			return Visit{}, fmt.Errorf("expected_leave_at: %w", err)
		}
		if expected.Before(arrivedAt) {
			return Visit{}, fmt.Errorf("expected_leave_at: %w: before arrival", ErrInvalidTime)
		}
	} else {
		expected, err = Estimate(in.VisitType, service, arrivedAt)
		if err != nil {
			return Visit{}, fmt.Errorf("estimated expected_leave_at: %w", err)
		}
	}

	v := Visit{
		CustomerID:      strings.TrimSpace(in.CustomerID),
		CustomerName:    name,
		VisitType:       in.VisitType,
		Service:         service,
		ArrivedAt:       arrivedAt,
		ExpectedLeaveAt: &expected,
		Location:        strings.TrimSpace(in.Location),
		Notes:           in.Notes,
		SalesDetails:    in.SalesDetails,
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	v.ID, err = s.uniqueID()
	if err != nil {
		s.mu.Unlock()
		return Visit{}, fmt.Errorf("generating visit id: %w", err)
	}

	next := make([]Visit, 0, len(s.visits)+1)
	next = append(next, v)
	next = append(next, s.visits...)
	s.visits = next
	s.persist(v)
	snap := s.snapshotLocked(now)
	s.mu.Unlock()

	v = Recompute(v, now)
	slog.Debug("visit added", "id", v.ID, "customer", v.CustomerName, "type", v.VisitType, "expected_leave_at", expected)
	s.emit(EventAdded, now, &v, snap)
	return v, nil
}

// MarkLeft records that the customer left. A zero leftAt means now.
func (s *Store) MarkLeft(id string, leftAt time.Time) (Visit, error) {
	now := s.now()
	if leftAt.IsZero() {
		leftAt = now
	}
	leftAt, err := normalize(leftAt)
	if err != nil {
		return Visit{}, fmt.Errorf("left_at: %w", err)
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	v, snap, err := s.replace(id, now, func(v Visit) (Visit, error) {
		if v.LeftAt != nil {
			return v, fmt.Errorf("%w: %s", ErrAlreadyLeft, v.ID)
		}
		if leftAt.Before(v.ArrivedAt) {
			return v, fmt.Errorf("left_at: %w: before arrival", ErrInvalidTime)
		}
		v.LeftAt = &leftAt
		return v, nil
	})
	if err != nil {
		return Visit{}, err
	}

	slog.Debug("visit left", "id", v.ID, "left_at", leftAt)
	s.emit(EventLeft, now, &v, snap)
	return v, nil
}

// UpdateExpectedLeave changes the expected leave time of one visit.
func (s *Store) UpdateExpectedLeave(id string, u LeaveUpdate) (Visit, error) {
	now := s.now()

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	v, snap, err := s.replace(id, now, func(v Visit) (Visit, error) {
		next, err := u.apply(v)
		if err != nil {
			return v, fmt.Errorf("expected_leave_at: %w", err)
		}
		if next.Before(v.ArrivedAt) {
			return v, fmt.Errorf("expected_leave_at: %w: before arrival", ErrInvalidTime)
		}
		v.ExpectedLeaveAt = &next
		return v, nil
	})
	if err != nil {
		return Visit{}, err
	}

	slog.Debug("expected leave updated", "id", v.ID, "expected_leave_at", *v.ExpectedLeaveAt)
	s.emit(EventExpectedLeaveUpdated, now, &v, snap)
	return v, nil
}

// replace swaps the visit with the given id for mutate's result in a new
// backing slice. Other records are carried over unchanged.
func (s *Store) replace(id string, now time.Time, mutate func(Visit) (Visit, error)) (Visit, *Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Visit{}, nil, notFound(id)
	}

	updated, err := mutate(s.visits[idx])
	if err != nil {
		return Visit{}, nil, err
	}

	next := make([]Visit, len(s.visits))
	copy(next, s.visits)
	next[idx] = updated
	s.visits = next
	s.persist(updated)

	return Recompute(updated, now), s.snapshotLocked(now), nil
}

// Get returns one visit by id.
func (s *Store) Get(id string) (Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Visit{}, notFound(id)
	}
	return Recompute(s.visits[idx], s.now()), nil
}

// Visits returns every visit, newest first.
func (s *Store) Visits() []Visit {
	return s.List(ListOptions{})
}

// Active returns open visits that are not past their expected leave time.
func (s *Store) Active() []Visit {
	return s.List(ListOptions{Status: Active})
}

// Overdue returns open visits past their expected leave time.
func (s *Store) Overdue() []Visit {
	return s.List(ListOptions{Status: Overdue})
}

// Alerts returns the current alerts, in store order.
func (s *Store) Alerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deriveAlerts(s.visits, s.now(), s.warnWindow)
}

// ListOptions filters List. Zero values match everything.
type ListOptions struct {
	Status    Status
	VisitType VisitType
}

// List returns the visits matching opts, newest first.
func (s *Store) List(opts ListOptions) []Visit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.visits, s.now(), opts)
}

// Snapshot derives every collection from a single store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.snapshotLocked(s.now())
}

// Tick re-derives statuses and alerts at the current time and notifies
// observers. The heartbeat calls it on every interval.
func (s *Store) Tick() Snapshot {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	now := s.now()
	s.mu.RLock()
	snap := s.snapshotLocked(now)
	s.mu.RUnlock()

	slog.Debug("heartbeat",
		"visits", len(snap.Visits),
		"active", len(snap.Active),
		"overdue", len(snap.Overdue),
		"alerts", len(snap.Alerts),
	)
	s.emit(EventHeartbeat, now, nil, snap)
	return *snap
}

func (s *Store) snapshotLocked(now time.Time) *Snapshot {
	return &Snapshot{
		GeneratedAt: now,
		Visits:      filter(s.visits, now, ListOptions{}),
		Active:      filter(s.visits, now, ListOptions{Status: Active}),
		Overdue:     filter(s.visits, now, ListOptions{Status: Overdue}),
		Alerts:      deriveAlerts(s.visits, now, s.warnWindow),
	}
}

func filter(visits []Visit, now time.Time, opts ListOptions) []Visit {
	out := make([]Visit, 0, len(visits))
	for _, v := range visits {
		v = Recompute(v, now)
		if opts.Status != "" && v.Status != opts.Status {
			continue
		}
		if opts.VisitType != "" && v.VisitType != opts.VisitType {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *Store) indexOf(id string) int {
	for i := range s.visits {
		if s.visits[i].ID == id {
			return i
		}
	}
	return -1
}

// uniqueID draws ids until one is not already in the store.
func (s *Store) uniqueID() (string, error) {
	for {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		if s.indexOf(id) < 0 {
			return id, nil
		}
	}
}

// persist saves v when a saver is configured. The in-memory store stays
// authoritative, so a failed save is logged rather than returned.
func (s *Store) persist(v Visit) {
	if s.saver == nil {
		return
	}
	if err := s.saver.Save(v); err != nil {
		slog.Warn("persisting visit", "id", v.ID, "error", err)
	}
}

func (s *Store) emit(kind EventKind, at time.Time, v *Visit, snap *Snapshot) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Event{Kind: kind, At: at, Visit: v, Snapshot: snap})
}
