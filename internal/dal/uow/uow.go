package uow

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/weftwear/oms/internal/dal/interfaces/idiscountrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ieventrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderitemrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ioutboxrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ipaymentrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/istockrepo"
	"github.com/weftwear/oms/internal/dal/postgres"
	discountrepo "github.com/weftwear/oms/internal/dal/repositories/discount/postgres"
	orderrepo "github.com/weftwear/oms/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/weftwear/oms/internal/dal/repositories/orderitem/postgres"
	eventrepo "github.com/weftwear/oms/internal/dal/repositories/orderevent/postgres"
	outboxrepo "github.com/weftwear/oms/internal/dal/repositories/outbox/postgres"
	paymentrepo "github.com/weftwear/oms/internal/dal/repositories/payment/postgres"
	stockrepo "github.com/weftwear/oms/internal/dal/repositories/stock/postgres"
)

// UnitOfWork scopes every repository to one connection, and after Begin
// to one transaction. A status transition and all its side effects commit
// or roll back together through this type.
type UnitOfWork struct {
	db *sqlx.DB
	tx *sqlx.Tx

	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	stockRepo     istockrepo.IStockRepository
	discountRepo  idiscountrepo.IDiscountRepository
	eventRepo     ieventrepo.IOrderEventRepository
	paymentRepo   ipaymentrepo.IPaymentRepository
	outboxRepo    ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	u := &UnitOfWork{db: client.DB()}
	u.bind(u.db)

	return u
}

func (u *UnitOfWork) bind(conn sqlx.ExtContext) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(conn)
	u.stockRepo = stockrepo.NewPostgresStockRepository(conn)
	u.discountRepo = discountrepo.NewPostgresDiscountRepository(conn)
	u.eventRepo = eventrepo.NewPostgresOrderEventRepository(conn)
	u.paymentRepo = paymentrepo.NewPostgresPaymentRepository(conn)
	u.outboxRepo = outboxrepo.NewPostgresOutboxRepository(conn)
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *UnitOfWork) StockRepository() istockrepo.IStockRepository {
	return u.stockRepo
}

func (u *UnitOfWork) DiscountRepository() idiscountrepo.IDiscountRepository {
	return u.discountRepo
}

func (u *UnitOfWork) EventRepository() ieventrepo.IOrderEventRepository {
	return u.eventRepo
}

func (u *UnitOfWork) PaymentRepository() ipaymentrepo.IPaymentRepository {
	return u.paymentRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit()
}

// Rollback aborts the transaction. Deferring it after a successful
// Commit yields sql.ErrTxDone, which callers ignore.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback()
}
