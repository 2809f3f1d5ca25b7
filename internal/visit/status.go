package visit

import (
	"fmt"
	"time"
)

// DefaultWarnWindow is how close to its expected leave time an open visit
// starts raising a warning alert.
const DefaultWarnWindow = 10 * time.Minute

// StatusAt derives the lifecycle status of v at now.
// A visit is Overdue from the instant its expected leave time is reached.
func StatusAt(v Visit, now time.Time) Status {
	switch {
	case v.LeftAt != nil:
		return Completed
	case v.ExpectedLeaveAt != nil && !now.Before(*v.ExpectedLeaveAt):
		return Overdue
	default:
		return Active
	}
}

// Recompute returns a copy of v with Status derived at now.
func Recompute(v Visit, now time.Time) Visit {
	v.Status = StatusAt(v, now)
	return v
}

// DeriveAlerts returns one alert per open visit that needs attention,
// in the order of visits, using DefaultWarnWindow.
func DeriveAlerts(visits []Visit, now time.Time) []Alert {
	return deriveAlerts(visits, now, DefaultWarnWindow)
}

func deriveAlerts(visits []Visit, now time.Time, warnWindow time.Duration) []Alert {
	alerts := make([]Alert, 0)
	for _, v := range visits {
		if !v.IsOpen() {
			continue
		}

		a := Alert{
			ID:              v.ID,
			CustomerName:    v.CustomerName,
			VisitType:       v.VisitType,
			Service:         v.Service,
			ExpectedLeaveAt: v.ExpectedLeaveAt,
			ArrivedAt:       v.ArrivedAt,
		}

		if v.ExpectedLeaveAt == nil {
			a.Severity = Info
			a.Message = "No expected leave time set"
			alerts = append(alerts, a)
			continue
		}

		left := v.ExpectedLeaveAt.Sub(now)
		switch {
		case left <= 0:
			a.Severity = Danger
			a.Message = fmt.Sprintf("Overdue: expected to leave at %s", v.ExpectedLeaveAt.Format("15:04"))
		case left <= warnWindow:
			a.Severity = Warning
			a.Message = fmt.Sprintf("Should leave soon: %d min left", ceilMinutes(left))
		default:
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts
}

// ceilMinutes rounds a positive duration up to whole minutes.
func ceilMinutes(d time.Duration) int {
	return int((d + time.Minute - 1) / time.Minute)
}
