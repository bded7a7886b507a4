package ipaymentrepo

import (
	"context"

	"github.com/weftwear/oms/internal/service/models/payment"
)

// IPaymentRepository records payment attempts reported by the external
// provider and answers the guard question "is this order paid".
type IPaymentRepository interface {
	Insert(ctx context.Context, p *payment.Payment) (*payment.Payment, error)
	HasSucceeded(ctx context.Context, orderID int64) (bool, error)
	// CancelPending moves all PENDING payments of an order to CANCELLED,
	// part of the order-cancellation side effects.
	CancelPending(ctx context.Context, orderID int64) error
	ListByOrder(ctx context.Context, orderID int64) ([]payment.Payment, error)
}
