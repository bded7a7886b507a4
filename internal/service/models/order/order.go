package order

import (
	"errors"
	"time"

	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/models/orderitem"
)

// Order represents a customer purchase. Monetary fields are integer
// minor-currency units. Orders are never deleted; cancellation is a status.
type Order struct {
	ID            int64             `json:"id"`
	UserID        *int64            `json:"userId,omitempty"`
	Status        Status            `json:"status"`
	SubtotalCents int64             `json:"subtotalCents"`
	DiscountCents int64             `json:"discountCents"`
	TaxCents      int64             `json:"taxCents"`
	ShippingCents int64             `json:"shippingCents"`
	TotalCents    int64             `json:"totalCents"`
	Currency      currency.Currency `json:"currency"`

	// PricesIncludeTax marks orders quoted in inclusive mode, where tax
	// is a reported portion of the subtotal rather than an addition.
	PricesIncludeTax bool `json:"pricesIncludeTax"`

	// Discount snapshot, denormalized at checkout so later code changes
	// never alter a historical order.
	DiscountCodeID     *int64  `json:"discountCodeId,omitempty"`
	DiscountCode       *string `json:"discountCode,omitempty"`
	DiscountValueCents *int64  `json:"discountValueCents,omitempty"`
	DiscountPercent    *int64  `json:"discountPercent,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`

	OrderItems []orderitem.OrderItem `json:"orderItems"`
}

var ErrTotalsMismatch = errors.New("order totals violate subtotal - discount + tax + shipping == total")

// CheckTotals verifies the monetary invariant. In inclusive mode the tax
// is already contained in the subtotal, so it does not contribute to the
// total. Called after every mutation that touches money fields.
func (o *Order) CheckTotals() error {
	tax := o.TaxCents
	if o.PricesIncludeTax {
		tax = 0
	}
	if o.SubtotalCents-o.DiscountCents+tax+o.ShippingCents != o.TotalCents {
		return ErrTotalsMismatch
	}

	return nil
}

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	Ids      []int64  `json:"ids,omitempty"`
	UserIds  []int64  `json:"userIds,omitempty"`
	Statuses []Status `json:"statuses,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}
