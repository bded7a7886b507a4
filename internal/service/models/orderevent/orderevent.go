package orderevent

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind is a domain event type appearing in an order's audit trail.
type Kind string

const (
	KindOrderCreated       Kind = "ORDER_CREATED"
	KindDiscountApplied    Kind = "DISCOUNT_APPLIED"
	KindPaymentAttempt     Kind = "PAYMENT_ATTEMPT"
	KindPaymentSucceeded   Kind = "PAYMENT_SUCCEEDED"
	KindPaymentFailed      Kind = "PAYMENT_FAILED"
	KindOrderPaid          Kind = "ORDER_PAID"
	KindOrderCancelled     Kind = "ORDER_CANCELLED"
	KindOrderRefunded      Kind = "ORDER_REFUNDED"
	KindFulfillmentStarted Kind = "FULFILLMENT_STARTED"
	KindOrderShipped       Kind = "ORDER_SHIPPED"
	KindOrderDelivered     Kind = "ORDER_DELIVERED"
	KindNote               Kind = "NOTE"
)

var kinds = map[Kind]struct{}{
	KindOrderCreated:       {},
	KindDiscountApplied:    {},
	KindPaymentAttempt:     {},
	KindPaymentSucceeded:   {},
	KindPaymentFailed:      {},
	KindOrderPaid:          {},
	KindOrderCancelled:     {},
	KindOrderRefunded:      {},
	KindFulfillmentStarted: {},
	KindOrderShipped:       {},
	KindOrderDelivered:     {},
	KindNote:               {},
}

// criticalKinds are surfaced on the admin attention feed.
var criticalKinds = []Kind{KindPaymentFailed, KindOrderCancelled, KindOrderRefunded}

var ErrInvalidKind = errors.New("invalid order event kind")

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	_, ok := kinds[k]
	return ok
}

// IsCritical reports whether the event kind belongs on the critical feed.
func (k Kind) IsCritical() bool {
	for _, c := range criticalKinds {
		if k == c {
			return true
		}
	}

	return false
}

func (k Kind) Value() (driver.Value, error) {
	return k.String(), nil
}

func (k *Kind) Scan(src any) error {
	s, ok := src.(string)
	if !ok {
		return fmt.Errorf("%w: unexpected type %T", ErrInvalidKind, src)
	}

	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed

	return nil
}

func ParseKind(s string) (Kind, error) {
	if !Kind(s).IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}

	return Kind(s), nil
}

// CriticalKinds returns the kinds included in the critical feed.
func CriticalKinds() []Kind {
	out := make([]Kind, len(criticalKinds))
	copy(out, criticalKinds)

	return out
}

// OrderEvent is one append-only audit entry. Metadata is an opaque JSON
// blob tagged by Kind; the call site that needs structure parses it.
// Events are never updated or deleted.
type OrderEvent struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	Kind      Kind            `json:"kind"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	ActorID   *int64          `json:"actorId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// KindCount is one bucket of the analytics aggregation.
type KindCount struct {
	Kind  Kind  `json:"kind"`
	Count int64 `json:"count"`
}
