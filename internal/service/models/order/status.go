package order

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Status is an order lifecycle state.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusPaid            Status = "PAID"
	StatusFulfilling      Status = "FULFILLING"
	StatusShipped         Status = "SHIPPED"
	StatusDelivered       Status = "DELIVERED"
	StatusCancelled       Status = "CANCELLED"
	StatusRefunded        Status = "REFUNDED"
)

var ErrInvalidStatus = errors.New("invalid order status")

// transitions is the single source of truth for legal status changes.
// Every status appears as a key; terminal states map to an empty set.
// The table is never mutated after init.
var transitions = map[Status][]Status{
	StatusPending:         {StatusAwaitingPayment, StatusCancelled},
	StatusAwaitingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:            {StatusFulfilling, StatusCancelled, StatusRefunded},
	StatusFulfilling:      {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:         {StatusDelivered, StatusRefunded},
	StatusDelivered:       {StatusRefunded},
	StatusCancelled:       {},
	StatusRefunded:        {},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

func (s *Status) Scan(src any) error {
	str, ok := src.(string)
	if !ok {
		return fmt.Errorf("%w: unexpected type %T", ErrInvalidStatus, src)
	}

	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

func ParseStatus(s string) (Status, error) {
	if _, ok := transitions[Status(s)]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}

	return Status(s), nil
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0 && s.IsValid()
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition checks the transition table. A self-transition is always
// permitted as an idempotent no-op.
func CanTransition(from, to Status) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// ValidTransitions returns a copy of the allowed next states for a status.
func ValidTransitions(from Status) []Status {
	allowed := transitions[from]
	out := make([]Status, len(allowed))
	copy(out, allowed)

	return out
}

// AllStatuses lists every known status, for table-driven validation.
func AllStatuses() []Status {
	out := make([]Status, 0, len(transitions))
	for s := range transitions {
		out = append(out, s)
	}

	return out
}
