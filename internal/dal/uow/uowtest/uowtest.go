// Package uowtest provides func-field fakes for the repository
// interfaces and a fake unit of work built from them. Service tests
// override exactly the calls they care about; everything else returns
// zero values.
package uowtest

import (
	"context"
	"time"

	"github.com/weftwear/oms/internal/dal/interfaces/idiscountrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ieventrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderitemrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ioutboxrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ipaymentrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/istockrepo"
	"github.com/weftwear/oms/internal/service/models/discount"
	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/orderitem"
	"github.com/weftwear/oms/internal/service/models/outbox"
	"github.com/weftwear/oms/internal/service/models/payment"
	"github.com/weftwear/oms/internal/service/models/stock"
)

type FakeOrderRepository struct {
	InsertFunc       func(ctx context.Context, o *order.Order) (*order.Order, error)
	GetByIDFunc      func(ctx context.Context, id int64) (*order.Order, error)
	GetForUpdateFunc func(ctx context.Context, id int64) (*order.Order, error)
	UpdateStatusFunc func(ctx context.Context, o *order.Order) error
	QueryFunc        func(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	Updated []*order.Order
}

func (f *FakeOrderRepository) Insert(ctx context.Context, o *order.Order) (*order.Order, error) {
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, o)
	}
	return o, nil
}

func (f *FakeOrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, id)
	}
	return &order.Order{ID: id}, nil
}

func (f *FakeOrderRepository) GetForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	if f.GetForUpdateFunc != nil {
		return f.GetForUpdateFunc(ctx, id)
	}
	return &order.Order{ID: id}, nil
}

func (f *FakeOrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	f.Updated = append(f.Updated, o)
	if f.UpdateStatusFunc != nil {
		return f.UpdateStatusFunc(ctx, o)
	}
	return nil
}

func (f *FakeOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, filter)
	}
	return nil, nil
}

type FakeOrderItemRepository struct {
	BulkInsertFunc  func(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)
	ListByOrderFunc func(ctx context.Context, orderID int64) ([]orderitem.OrderItem, error)

	Inserted []orderitem.OrderItem
}

func (f *FakeOrderItemRepository) BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	f.Inserted = append(f.Inserted, items...)
	if f.BulkInsertFunc != nil {
		return f.BulkInsertFunc(ctx, items)
	}
	return items, nil
}

func (f *FakeOrderItemRepository) ListByOrder(ctx context.Context, orderID int64) ([]orderitem.OrderItem, error) {
	if f.ListByOrderFunc != nil {
		return f.ListByOrderFunc(ctx, orderID)
	}
	return nil, nil
}

type FakeStockRepository struct {
	DecrementStockFunc func(ctx context.Context, variantID int64, qty int) (bool, error)
	IncrementStockFunc func(ctx context.Context, variantID int64, qty int) error
	GetByIDFunc        func(ctx context.Context, variantID int64) (*stock.SizeVariant, error)
}

func (f *FakeStockRepository) DecrementStock(ctx context.Context, variantID int64, qty int) (bool, error) {
	if f.DecrementStockFunc != nil {
		return f.DecrementStockFunc(ctx, variantID, qty)
	}
	return true, nil
}

func (f *FakeStockRepository) IncrementStock(ctx context.Context, variantID int64, qty int) error {
	if f.IncrementStockFunc != nil {
		return f.IncrementStockFunc(ctx, variantID, qty)
	}
	return nil
}

func (f *FakeStockRepository) GetByID(ctx context.Context, variantID int64) (*stock.SizeVariant, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, variantID)
	}
	return &stock.SizeVariant{ID: variantID}, nil
}

type FakeDiscountRepository struct {
	GetByCodeFunc      func(ctx context.Context, code string) (*discount.DiscountCode, error)
	GetByIDFunc        func(ctx context.Context, id int64) (*discount.DiscountCode, error)
	IncrementUsageFunc func(ctx context.Context, id int64) (bool, error)
	DecrementUsageFunc func(ctx context.Context, id int64) error

	Incremented []int64
	Decremented []int64
}

func (f *FakeDiscountRepository) GetByCode(ctx context.Context, code string) (*discount.DiscountCode, error) {
	if f.GetByCodeFunc != nil {
		return f.GetByCodeFunc(ctx, code)
	}
	return &discount.DiscountCode{Code: code}, nil
}

func (f *FakeDiscountRepository) GetByID(ctx context.Context, id int64) (*discount.DiscountCode, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, id)
	}
	return &discount.DiscountCode{ID: id}, nil
}

func (f *FakeDiscountRepository) IncrementUsage(ctx context.Context, id int64) (bool, error) {
	f.Incremented = append(f.Incremented, id)
	if f.IncrementUsageFunc != nil {
		return f.IncrementUsageFunc(ctx, id)
	}
	return true, nil
}

func (f *FakeDiscountRepository) DecrementUsage(ctx context.Context, id int64) error {
	f.Decremented = append(f.Decremented, id)
	if f.DecrementUsageFunc != nil {
		return f.DecrementUsageFunc(ctx, id)
	}
	return nil
}

type FakeEventRepository struct {
	InsertFunc       func(ctx context.Context, e *orderevent.OrderEvent) (*orderevent.OrderEvent, error)
	ListByOrderFunc  func(ctx context.Context, orderID int64) ([]orderevent.OrderEvent, error)
	ListCriticalFunc func(ctx context.Context, limit int) ([]orderevent.OrderEvent, error)
	CountByKindFunc  func(ctx context.Context, orderID *int64, since *time.Time) ([]orderevent.KindCount, error)
	HasKindFunc      func(ctx context.Context, orderID int64, kind orderevent.Kind) (bool, error)

	Inserted []orderevent.OrderEvent
}

func (f *FakeEventRepository) Insert(ctx context.Context, e *orderevent.OrderEvent) (*orderevent.OrderEvent, error) {
	f.Inserted = append(f.Inserted, *e)
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, e)
	}
	return e, nil
}

func (f *FakeEventRepository) ListByOrder(ctx context.Context, orderID int64) ([]orderevent.OrderEvent, error) {
	if f.ListByOrderFunc != nil {
		return f.ListByOrderFunc(ctx, orderID)
	}
	return nil, nil
}

func (f *FakeEventRepository) ListCritical(ctx context.Context, limit int) ([]orderevent.OrderEvent, error) {
	if f.ListCriticalFunc != nil {
		return f.ListCriticalFunc(ctx, limit)
	}
	return nil, nil
}

func (f *FakeEventRepository) CountByKind(ctx context.Context, orderID *int64, since *time.Time) ([]orderevent.KindCount, error) {
	if f.CountByKindFunc != nil {
		return f.CountByKindFunc(ctx, orderID, since)
	}
	return nil, nil
}

func (f *FakeEventRepository) HasKind(ctx context.Context, orderID int64, kind orderevent.Kind) (bool, error) {
	if f.HasKindFunc != nil {
		return f.HasKindFunc(ctx, orderID, kind)
	}
	return false, nil
}

type FakePaymentRepository struct {
	InsertFunc        func(ctx context.Context, p *payment.Payment) (*payment.Payment, error)
	HasSucceededFunc  func(ctx context.Context, orderID int64) (bool, error)
	CancelPendingFunc func(ctx context.Context, orderID int64) error
	ListByOrderFunc   func(ctx context.Context, orderID int64) ([]payment.Payment, error)

	Inserted         []payment.Payment
	CancelledPending []int64
}

func (f *FakePaymentRepository) Insert(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	f.Inserted = append(f.Inserted, *p)
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, p)
	}
	return p, nil
}

func (f *FakePaymentRepository) HasSucceeded(ctx context.Context, orderID int64) (bool, error) {
	if f.HasSucceededFunc != nil {
		return f.HasSucceededFunc(ctx, orderID)
	}
	return false, nil
}

func (f *FakePaymentRepository) CancelPending(ctx context.Context, orderID int64) error {
	f.CancelledPending = append(f.CancelledPending, orderID)
	if f.CancelPendingFunc != nil {
		return f.CancelPendingFunc(ctx, orderID)
	}
	return nil
}

func (f *FakePaymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]payment.Payment, error) {
	if f.ListByOrderFunc != nil {
		return f.ListByOrderFunc(ctx, orderID)
	}
	return nil, nil
}

type FakeOutboxRepository struct {
	InsertFunc             func(ctx context.Context, msg outbox.Message) error
	GetPendingMessagesFunc func(ctx context.Context, limit int) ([]outbox.Message, error)
	DeleteFunc             func(ctx context.Context, id int64) error
	UpdateRetryFunc        func(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error

	Inserted []outbox.Message
	Deleted  []int64
}

func (f *FakeOutboxRepository) Insert(ctx context.Context, msg outbox.Message) error {
	f.Inserted = append(f.Inserted, msg)
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, msg)
	}
	return nil
}

func (f *FakeOutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]outbox.Message, error) {
	if f.GetPendingMessagesFunc != nil {
		return f.GetPendingMessagesFunc(ctx, limit)
	}
	return nil, nil
}

func (f *FakeOutboxRepository) Delete(ctx context.Context, id int64) error {
	f.Deleted = append(f.Deleted, id)
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, id)
	}
	return nil
}

func (f *FakeOutboxRepository) UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	if f.UpdateRetryFunc != nil {
		return f.UpdateRetryFunc(ctx, id, retryCount, lastError, nextRetryAt)
	}
	return nil
}

// FakeUnitOfWork satisfies the services' unit-of-work interfaces. Begin,
// Commit and Rollback only count calls, so a test can assert that a
// refused operation never committed.
type FakeUnitOfWork struct {
	Orders    *FakeOrderRepository
	Items     *FakeOrderItemRepository
	Stock     *FakeStockRepository
	Discounts *FakeDiscountRepository
	Events    *FakeEventRepository
	Payments  *FakePaymentRepository
	Outbox    *FakeOutboxRepository

	Begun      int
	Committed  int
	RolledBack int

	BeginErr  error
	CommitErr error
}

// NewFakeUnitOfWork builds a unit of work with all fakes in their
// default state.
func NewFakeUnitOfWork() *FakeUnitOfWork {
	return &FakeUnitOfWork{
		Orders:    &FakeOrderRepository{},
		Items:     &FakeOrderItemRepository{},
		Stock:     &FakeStockRepository{},
		Discounts: &FakeDiscountRepository{},
		Events:    &FakeEventRepository{},
		Payments:  &FakePaymentRepository{},
		Outbox:    &FakeOutboxRepository{},
	}
}

func (f *FakeUnitOfWork) Begin(_ context.Context) error {
	if f.BeginErr != nil {
		return f.BeginErr
	}
	f.Begun++
	return nil
}

func (f *FakeUnitOfWork) Commit() error {
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Committed++
	return nil
}

func (f *FakeUnitOfWork) Rollback() error {
	f.RolledBack++
	return nil
}

func (f *FakeUnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return f.Orders
}

func (f *FakeUnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return f.Items
}

func (f *FakeUnitOfWork) StockRepository() istockrepo.IStockRepository {
	return f.Stock
}

func (f *FakeUnitOfWork) DiscountRepository() idiscountrepo.IDiscountRepository {
	return f.Discounts
}

func (f *FakeUnitOfWork) EventRepository() ieventrepo.IOrderEventRepository {
	return f.Events
}

func (f *FakeUnitOfWork) PaymentRepository() ipaymentrepo.IPaymentRepository {
	return f.Payments
}

func (f *FakeUnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return f.Outbox
}
