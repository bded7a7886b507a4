package payment

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/weftwear/oms/internal/service/models/currency"
)

// Status of a payment attempt as reported by the external provider.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid payment status")

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
	switch Status(s) {
	case StatusPending, StatusSucceeded, StatusFailed, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Payment records one attempt against an external payment provider.
// The provider itself is an external collaborator; only the outcome is
// stored here and consulted by transition guards.
type Payment struct {
	ID          int64             `json:"id"`
	OrderID     int64             `json:"orderId"`
	Provider    string            `json:"provider"`
	ProviderRef string            `json:"providerRef"`
	Status      Status            `json:"status"`
	AmountCents int64             `json:"amountCents"`
	Currency    currency.Currency `json:"currency"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
