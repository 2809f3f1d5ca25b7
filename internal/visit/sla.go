package visit

import (
	"sort"
	"time"
)

// GenericServiceDuration applies to Service visits whose service name is
// not in the per-service table.
const GenericServiceDuration = 90 * time.Minute

// typeDurations are the default visit lengths per visit type.
var typeDurations = map[VisitType]time.Duration{
	Ask:     30 * time.Minute,
	Service: GenericServiceDuration,
	Sales:   45 * time.Minute,
}

// serviceDurations override the Service default for known services.
var serviceDurations = map[string]time.Duration{
	"Oil Change":           60 * time.Minute,
	"Tire Installation":    90 * time.Minute,
	"Tire Sales":           30 * time.Minute,
	"Engine Repair":        240 * time.Minute,
	"Brake Service":        120 * time.Minute,
	"Transmission Service": 360 * time.Minute,
	"AC Service":           90 * time.Minute,
	"Battery Service":      30 * time.Minute,
	"Consultation":         30 * time.Minute,
	"Fleet Maintenance":    240 * time.Minute,
}

// ExpectedDuration returns how long a visit is expected to last.
// The service name only matters for Service visits; unknown names fall
// back to the generic Service duration.
func ExpectedDuration(t VisitType, service string) time.Duration {
	if t == Service {
		if d, ok := serviceDurations[service]; ok {
			return d
		}
	}
	if d, ok := typeDurations[t]; ok {
		return d
	}
	return GenericServiceDuration
}

// EstimateExpectedLeave returns arrivedAt plus the expected duration.
func EstimateExpectedLeave(t VisitType, service string, arrivedAt time.Time) time.Time {
	return arrivedAt.Add(ExpectedDuration(t, service))
}

// Estimate is EstimateExpectedLeave limited to storable times. It returns
// ErrInvalidTime when the estimate falls after year 9999.
func Estimate(t VisitType, service string, arrivedAt time.Time) (time.Time, error) {
	return normalize(EstimateExpectedLeave(t, service, arrivedAt))
}

// KnownServices returns the service names that have their own SLA, sorted.
func KnownServices() []string {
	names := make([]string, 0, len(serviceDurations))
	for name := range serviceDurations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
