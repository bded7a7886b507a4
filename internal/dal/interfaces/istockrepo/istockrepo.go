package istockrepo

import (
	"context"

	"github.com/weftwear/oms/internal/service/models/stock"
)

// IStockRepository mutates per-size-variant stock counts.
type IStockRepository interface {
	// DecrementStock runs a single conditional update
	// (stock = stock - qty WHERE stock >= qty) and reports via the
	// affected-row count whether the decrement took effect. Never
	// read-then-write.
	DecrementStock(ctx context.Context, variantID int64, qty int) (bool, error)
	IncrementStock(ctx context.Context, variantID int64, qty int) error
	GetByID(ctx context.Context, variantID int64) (*stock.SizeVariant, error)
}
