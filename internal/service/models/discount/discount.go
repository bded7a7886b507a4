package discount

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/weftwear/oms/internal/service/models/money"
	"github.com/weftwear/oms/internal/service/models/result"
)

// Kind distinguishes fixed-amount codes from percentage codes.
type Kind string

const (
	KindFixed   Kind = "FIXED"
	KindPercent Kind = "PERCENT"
)

var ErrInvalidKind = errors.New("invalid discount kind")

func (k Kind) String() string {
	return string(k)
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
	switch Kind(s) {
	case KindFixed:
		return KindFixed, nil
	case KindPercent:
		return KindPercent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// DiscountCode is a promotional code. TimesUsed is only ever changed
// through the repository's conditional increment and floor-guarded
// decrement, mirroring the stock ledger discipline.
type DiscountCode struct {
	ID               int64      `json:"id"`
	Code             string     `json:"code"`
	Kind             Kind       `json:"kind"`
	ValueCents       int64      `json:"valueCents"`
	Percent          int64      `json:"percent"`
	MinSubtotalCents *int64     `json:"minSubtotalCents,omitempty"`
	UsageLimit       *int       `json:"usageLimit,omitempty"`
	TimesUsed        int        `json:"timesUsed"`
	StartsAt         *time.Time `json:"startsAt,omitempty"`
	EndsAt           *time.Time `json:"endsAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// NormalizeCode upper-cases and trims a user-supplied code. Codes are
// stored normalized and compared normalized.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Check validates the code against its window, usage limit and minimum
// subtotal. Returns ReasonNone when the code is applicable.
func (d *DiscountCode) Check(now time.Time, subtotalCents int64) result.Reason {
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return result.ReasonNotStarted
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return result.ReasonExpired
	}
	if d.UsageLimit != nil && d.TimesUsed >= *d.UsageLimit {
		return result.ReasonUsageLimitExceeded
	}
	if d.MinSubtotalCents != nil && subtotalCents < *d.MinSubtotalCents {
		return result.ReasonMinSubtotal
	}

	return result.ReasonNone
}

// Amount computes the discount in cents for a subtotal. A fixed discount
// larger than the subtotal is capped at the subtotal so the total can
// never go negative.
func (d *DiscountCode) Amount(subtotalCents int64) int64 {
	var amount int64
	switch d.Kind {
	case KindPercent:
		amount = money.ApplyBasisPoints(subtotalCents, d.Percent*100)
	default:
		amount = d.ValueCents
	}

	if amount > subtotalCents {
		amount = subtotalCents
	}
	if amount < 0 {
		amount = 0
	}

	return amount
}
