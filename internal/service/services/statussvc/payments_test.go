package statussvc

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwear/oms/internal/dal/uow/uowtest"
	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/payment"
)

func awaitingPaymentOrder(id int64) *order.Order {
	return &order.Order{ID: id, Status: order.StatusAwaitingPayment, Currency: currency.CurrencyUSD}
}

func TestRecordPaymentFailedAttempt(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Orders.GetByIDFunc = func(_ context.Context, id int64) (*order.Order, error) {
		return awaitingPaymentOrder(id), nil
	}
	svc := newTestService(fake)

	res, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:     7,
		Provider:    "stripe",
		ProviderRef: "pi_123",
		Status:      payment.StatusFailed,
		AmountCents: 9279,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Payment)
	assert.Nil(t, res.Transition)

	require.Len(t, fake.Payments.Inserted, 1)
	assert.Equal(t, payment.StatusFailed, fake.Payments.Inserted[0].Status)
	assert.Equal(t, currency.CurrencyUSD, fake.Payments.Inserted[0].Currency)

	require.Len(t, fake.Events.Inserted, 1)
	assert.Equal(t, orderevent.KindPaymentFailed, fake.Events.Inserted[0].Kind)

	assert.Equal(t, 1, fake.Committed)
	assert.Empty(t, fake.Orders.Updated)
}

func TestRecordPaymentSucceededDrivesOrderToPaid(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Orders.GetByIDFunc = func(_ context.Context, id int64) (*order.Order, error) {
		return awaitingPaymentOrder(id), nil
	}
	fake.Orders.GetForUpdateFunc = func(_ context.Context, id int64) (*order.Order, error) {
		return awaitingPaymentOrder(id), nil
	}
	fake.Payments.HasSucceededFunc = func(_ context.Context, _ int64) (bool, error) {
		return true, nil
	}
	svc := newTestService(fake)

	res, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:     7,
		Provider:    "stripe",
		ProviderRef: "pi_123",
		Status:      payment.StatusSucceeded,
		AmountCents: 9279,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Transition)
	assert.True(t, res.Transition.Success)

	require.Len(t, fake.Orders.Updated, 1)
	assert.Equal(t, order.StatusPaid, fake.Orders.Updated[0].Status)

	// One event from the attempt, one from the transition.
	require.Len(t, fake.Events.Inserted, 2)
	assert.Equal(t, orderevent.KindPaymentSucceeded, fake.Events.Inserted[0].Kind)
	assert.Equal(t, orderevent.KindOrderPaid, fake.Events.Inserted[1].Kind)

	require.Len(t, fake.Outbox.Inserted, 1)
	assert.Equal(t, 2, fake.Committed)
}

func TestRecordPaymentDuplicateWebhookIsNoOp(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Orders.GetByIDFunc = func(_ context.Context, id int64) (*order.Order, error) {
		return &order.Order{ID: id, Status: order.StatusPaid, Currency: currency.CurrencyUSD}, nil
	}
	fake.Orders.GetForUpdateFunc = func(_ context.Context, id int64) (*order.Order, error) {
		return &order.Order{ID: id, Status: order.StatusPaid, Currency: currency.CurrencyUSD}, nil
	}
	svc := newTestService(fake)

	res, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:     7,
		Provider:    "stripe",
		ProviderRef: "pi_123",
		Status:      payment.StatusSucceeded,
		AmountCents: 9279,
	})
	require.NoError(t, err)

	require.NotNil(t, res.Transition)
	assert.True(t, res.Transition.Success)
	assert.Empty(t, fake.Orders.Updated)
}

func TestRecordPaymentOrderNotFound(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Orders.GetByIDFunc = func(_ context.Context, _ int64) (*order.Order, error) {
		return nil, sql.ErrNoRows
	}
	svc := newTestService(fake)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		OrderID:     404,
		Provider:    "stripe",
		ProviderRef: "pi_123",
		Status:      payment.StatusFailed,
		AmountCents: 100,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.Equal(t, 0, fake.Begun)
}

func TestGetOrderPayments(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Payments.ListByOrderFunc = func(_ context.Context, orderID int64) ([]payment.Payment, error) {
		return []payment.Payment{
			{ID: 2, OrderID: orderID, Status: payment.StatusSucceeded},
			{ID: 1, OrderID: orderID, Status: payment.StatusFailed},
		}, nil
	}
	svc := newTestService(fake)

	attempts, err := svc.GetOrderPayments(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, payment.StatusSucceeded, attempts[0].Status)
}

func TestGetOrderPaymentsOrderNotFound(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Orders.GetByIDFunc = func(_ context.Context, _ int64) (*order.Order, error) {
		return nil, sql.ErrNoRows
	}
	svc := newTestService(fake)

	_, err := svc.GetOrderPayments(context.Background(), 404)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
