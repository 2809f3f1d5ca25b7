// Package visit provides the shop visit domain model, SLA estimation,
// status and alert derivation, and the in-memory visit store.
package visit

import (
	"errors"
	"strings"
	"time"
)

// VisitType represents why a customer came to the shop.
type VisitType string

const (
	Ask     VisitType = "Ask"
	Service VisitType = "Service"
	Sales   VisitType = "Sales"
)

// ValidTypes is the set of allowed visit types.
var ValidTypes = []VisitType{Ask, Service, Sales}

// IsValid checks if a visit type is recognized.
func (t VisitType) IsValid() bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the visit type.
func (t VisitType) Label() string {
	switch t {
	case Ask:
		return "Inquiry"
	case Service:
		return "Service"
	case Sales:
		return "Sales"
	default:
		return string(t)
	}
}

// ParseVisitType matches s against the known visit types, ignoring case.
func ParseVisitType(s string) (VisitType, error) {
	for _, v := range ValidTypes {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", errInvalidVisitType(s)
}

// Status is the lifecycle state of a visit. It is always derived from
// LeftAt, ExpectedLeaveAt and the current time, never stored.
type Status string

const (
	Active    Status = "Active"
	Overdue   Status = "Overdue"
	Completed Status = "Completed"
)

// ParseStatus matches s against the known statuses, ignoring case.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{Active, Overdue, Completed} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", errors.New("invalid status: " + s + " (use active, overdue, completed)")
}

// Severity ranks how urgently an open visit needs attention.
type Severity string

const (
	Info    Severity = "info"
	Warning Severity = "warning"
	Danger  Severity = "danger"
)

// SalesDetails carries the sale metadata for Sales visits.
type SalesDetails struct {
	Item     string  `json:"item,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// Visit is one customer visit to the shop.
type Visit struct {
	ID              string        `json:"id"`
	CustomerID      string        `json:"customer_id,omitempty"`
	CustomerName    string        `json:"customer_name"`
	VisitType       VisitType     `json:"visit_type"`
	Service         string        `json:"service,omitempty"`
	ArrivedAt       time.Time     `json:"arrived_at"`
	ExpectedLeaveAt *time.Time    `json:"expected_leave_at,omitempty"`
	LeftAt          *time.Time    `json:"left_at,omitempty"`
	Status          Status        `json:"status"`
	Location        string        `json:"location,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	SalesDetails    *SalesDetails `json:"sales_details,omitempty"`
}

// IsOpen reports whether the customer is still at the shop.
func (v Visit) IsOpen() bool {
	return v.LeftAt == nil
}

// Alert is a derived, ephemeral warning about an open visit.
type Alert struct {
	ID              string     `json:"id"`
	CustomerName    string     `json:"customer_name"`
	VisitType       VisitType  `json:"visit_type"`
	Service         string     `json:"service,omitempty"`
	Severity        Severity   `json:"severity"`
	Message         string     `json:"message"`
	ExpectedLeaveAt *time.Time `json:"expected_leave_at,omitempty"`
	ArrivedAt       time.Time  `json:"arrived_at"`
}

// Snapshot is every derived collection computed from one store state.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Visits      []Visit   `json:"visits"`
	Active      []Visit   `json:"active"`
	Overdue     []Visit   `json:"overdue"`
	Alerts      []Alert   `json:"alerts"`
}

// NewVisit holds the caller-supplied fields for Store.Add.
// A zero ArrivedAt means "now"; a nil ExpectedLeaveAt means "estimate it".
type NewVisit struct {
	CustomerID      string
	CustomerName    string
	VisitType       VisitType
	Service         string
	ArrivedAt       time.Time
	ExpectedLeaveAt *time.Time
	Location        string
	Notes           string
	SalesDetails    *SalesDetails
}
