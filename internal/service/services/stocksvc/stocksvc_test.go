package stocksvc

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/weftwear/oms/internal/dal/uow/uowtest"
	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/orderitem"
	"github.com/weftwear/oms/internal/service/models/result"
	"github.com/weftwear/oms/internal/service/models/stock"
)

func newTestService(fake *uowtest.FakeUnitOfWork) *StockService {
	return MustNewStockService(WithUnitOfWorkFactory(func() unitOfWork {
		return fake
	}))
}

// conditionalStock emulates the repository's single-statement conditional
// decrement with a mutex standing in for the row lock.
type conditionalStock struct {
	mu    sync.Mutex
	stock int
}

func (c *conditionalStock) decrement(qty int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stock < qty {
		return false
	}
	c.stock -= qty

	return true
}

func TestDecrementSizeStockRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService(uowtest.NewFakeUnitOfWork())

	_, err := svc.DecrementSizeStock(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.DecrementSizeStock(context.Background(), 1, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDecrementSizeStockNeverOversells(t *testing.T) {
	const (
		initialStock = 30
		buyers       = 100
	)

	ledger := &conditionalStock{stock: initialStock}
	fake := uowtest.NewFakeUnitOfWork()
	fake.Stock.DecrementStockFunc = func(_ context.Context, _ int64, qty int) (bool, error) {
		return ledger.decrement(qty), nil
	}
	svc := newTestService(fake)

	var succeeded sync.Map
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < buyers; i++ {
		i := i
		g.Go(func() error {
			ok, err := svc.DecrementSizeStock(ctx, 1, 1)
			if err != nil {
				return err
			}
			if ok {
				succeeded.Store(i, struct{}{})
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	succeeded.Range(func(_, _ any) bool {
		wins++
		return true
	})

	assert.Equal(t, initialStock, wins)
	assert.Equal(t, 0, ledger.stock)
}

func TestRestoreStock(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Items.ListByOrderFunc = func(_ context.Context, orderID int64) ([]orderitem.OrderItem, error) {
		return []orderitem.OrderItem{
			{OrderID: orderID, SizeVariantID: 7, Quantity: 2},
			{OrderID: orderID, SizeVariantID: 9, Quantity: 3},
		}, nil
	}

	restored := map[int64]int{}
	fake.Stock.IncrementStockFunc = func(_ context.Context, variantID int64, qty int) error {
		restored[variantID] += qty
		return nil
	}

	svc := newTestService(fake)

	res, err := svc.RestoreStock(context.Background(), 42, "cancelled by admin")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.UnitsRestored)
	assert.Equal(t, map[int64]int{7: 2, 9: 3}, restored)

	require.Len(t, fake.Events.Inserted, 1)
	assert.Equal(t, orderevent.KindNote, fake.Events.Inserted[0].Kind)
	assert.Equal(t, 1, fake.Committed)
}

func TestRestoreStockOrderNotFound(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Orders.GetByIDFunc = func(_ context.Context, id int64) (*order.Order, error) {
		return nil, sql.ErrNoRows
	}
	svc := newTestService(fake)

	res, err := svc.RestoreStock(context.Background(), 42, "oops")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, result.ReasonNotFound, res.Reason)
	assert.Equal(t, 0, fake.Committed)
}

func TestAdjustStock(t *testing.T) {
	t.Run("zero delta is rejected", func(t *testing.T) {
		svc := newTestService(uowtest.NewFakeUnitOfWork())

		res, err := svc.AdjustStock(context.Background(), 1, 0, "noop", nil)
		require.NoError(t, err)
		assert.Equal(t, result.ReasonValidation, res.Reason)
	})

	t.Run("positive delta increments", func(t *testing.T) {
		fake := uowtest.NewFakeUnitOfWork()
		current := 10
		fake.Stock.IncrementStockFunc = func(_ context.Context, _ int64, qty int) error {
			current += qty
			return nil
		}
		fake.Stock.GetByIDFunc = func(_ context.Context, variantID int64) (*stock.SizeVariant, error) {
			return &stock.SizeVariant{ID: variantID, Stock: current}, nil
		}
		svc := newTestService(fake)

		res, err := svc.AdjustStock(context.Background(), 1, 5, "restock", nil)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 15, res.NewStock)
	})

	t.Run("negative delta past zero is refused", func(t *testing.T) {
		fake := uowtest.NewFakeUnitOfWork()
		fake.Stock.DecrementStockFunc = func(_ context.Context, _ int64, _ int) (bool, error) {
			return false, nil
		}
		svc := newTestService(fake)

		res, err := svc.AdjustStock(context.Background(), 1, -5, "shrinkage", nil)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, result.ReasonInsufficientStock, res.Reason)
	})

	t.Run("unknown variant", func(t *testing.T) {
		fake := uowtest.NewFakeUnitOfWork()
		fake.Stock.IncrementStockFunc = func(_ context.Context, variantID int64, _ int) error {
			return fmt.Errorf("size variant %d: %w", variantID, sql.ErrNoRows)
		}
		svc := newTestService(fake)

		res, err := svc.AdjustStock(context.Background(), 404, 5, "restock", nil)
		require.NoError(t, err)
		assert.Equal(t, result.ReasonNotFound, res.Reason)
	})
}
