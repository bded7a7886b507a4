package iorderrepo

import (
	"context"

	"github.com/weftwear/oms/internal/service/models/order"
)

// IOrderRepository is the contract for the order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o *order.Order) (*order.Order, error)
	GetByID(ctx context.Context, id int64) (*order.Order, error)
	// GetForUpdate loads the row with FOR UPDATE so two concurrent
	// transitions against the same order serialize on the row lock.
	GetForUpdate(ctx context.Context, id int64) (*order.Order, error)
	UpdateStatus(ctx context.Context, o *order.Order) error
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}
