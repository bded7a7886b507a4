package iorderitemrepo

import (
	"context"

	"github.com/weftwear/oms/internal/service/models/orderitem"
)

// IOrderItemRepository persists immutable order lines. There is no update
// or delete: lines are a historical record.
type IOrderItemRepository interface {
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)
	ListByOrder(ctx context.Context, orderID int64) ([]orderitem.OrderItem, error)
}
