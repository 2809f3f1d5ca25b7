package visit

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// inputLayouts are the accepted time formats, tried in order. Layouts
// without a zone are read as UTC.
var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseInstant parses a caller-supplied timestamp into a UTC instant.
// Every entry point that accepts time input goes through here.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidTime)
	}

	for _, layout := range inputLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return normalize(t)
	}

	return time.Time{}, fmt.Errorf("%w: %q (use RFC 3339, e.g. 2024-01-01T09:00:00Z)", ErrInvalidTime, s)
}

// normalize validates t and converts it to UTC.
func normalize(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero timestamp", ErrInvalidTime)
	}
	t = t.UTC()
	if t.Year() < 1970 || t.Year() > 9999 {
		return time.Time{}, fmt.Errorf("%w: year %d out of range", ErrInvalidTime, t.Year())
	}
	return t, nil
}

// LeaveUpdate is the new expected leave time for UpdateExpectedLeave:
// either an absolute instant or a relative adjustment in minutes.
type LeaveUpdate struct {
	at         time.Time
	addMinutes int
	relative   bool
}

// LeaveAt sets the expected leave time to t.
func LeaveAt(t time.Time) LeaveUpdate {
	return LeaveUpdate{at: t}
}

// AddMinutes moves the expected leave time by n minutes. The base is the
// current expected leave time, or the arrival time if none is set.
func AddMinutes(n int) LeaveUpdate {
	return LeaveUpdate{addMinutes: n, relative: true}
}

// apply computes the new expected leave time for v.
func (u LeaveUpdate) apply(v Visit) (time.Time, error) {
	if !u.relative {
		return normalize(u.at)
	}
	base := v.ArrivedAt
	if v.ExpectedLeaveAt != nil {
		base = *v.ExpectedLeaveAt
	}
	n := int64(u.addMinutes)
	if n > maxAddMinutes || n < -maxAddMinutes {
		return time.Time{}, fmt.Errorf("%w: %d minutes out of range", ErrInvalidTime, u.addMinutes)
	}
	return normalize(base.Add(time.Duration(n) * time.Minute))
}

// maxAddMinutes is the largest shift that fits in a time.Duration.
const maxAddMinutes = math.MaxInt64 / int64(time.Minute)
