package idiscountrepo

import (
	"context"

	"github.com/weftwear/oms/internal/service/models/discount"
)

// IDiscountRepository reads discount codes and maintains their usage
// counters.
type IDiscountRepository interface {
	GetByCode(ctx context.Context, code string) (*discount.DiscountCode, error)
	GetByID(ctx context.Context, id int64) (*discount.DiscountCode, error)
	// IncrementUsage is gated by the usage limit in the same statement
	// (WHERE usage_limit IS NULL OR times_used < usage_limit), the same
	// conditional-update pattern as the stock ledger. Returns whether the
	// increment happened.
	IncrementUsage(ctx context.Context, id int64) (bool, error)
	// DecrementUsage floors at zero.
	DecrementUsage(ctx context.Context, id int64) error
}
