package visit

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a mutation targets an unknown visit id.
	ErrNotFound = errors.New("visit not found")
	// ErrInvalidTime is returned for missing, unparseable or out-of-order instants.
	ErrInvalidTime = errors.New("invalid time")
	// ErrInvalidVisitType is returned for visit types outside ValidTypes.
	ErrInvalidVisitType = errors.New("invalid visit type")
	// ErrMissingCustomer is returned when a visit has no customer name.
	ErrMissingCustomer = errors.New("customer name is required")
	// ErrAlreadyLeft is returned when marking a completed visit as left again.
	ErrAlreadyLeft = errors.New("visit already completed")
)

func errInvalidVisitType(s string) error {
	return fmt.Errorf("%w: %q (use Ask, Service, Sales)", ErrInvalidVisitType, s)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
