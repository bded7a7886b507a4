package eventsvc

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwear/oms/internal/dal/uow/uowtest"
	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/result"
)

func newTestService(fake *uowtest.FakeUnitOfWork) *EventService {
	return MustNewEventService(WithUnitOfWorkFactory(func() unitOfWork {
		return fake
	}))
}

func TestCreateEvent(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	svc := newTestService(fake)

	actorID := int64(9)
	res, err := svc.CreateEvent(context.Background(), CreateEventInput{
		OrderID: 1,
		Kind:    orderevent.KindNote,
		Message: "called the customer",
		ActorID: &actorID,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.Event)
	assert.Equal(t, orderevent.KindNote, res.Event.Kind)
	require.Len(t, fake.Events.Inserted, 1)
}

func TestCreateEventUnknownKind(t *testing.T) {
	svc := newTestService(uowtest.NewFakeUnitOfWork())

	res, err := svc.CreateEvent(context.Background(), CreateEventInput{
		OrderID: 1,
		Kind:    orderevent.Kind("SOMETHING_ELSE"),
	})
	require.NoError(t, err)
	assert.Equal(t, result.ReasonValidation, res.Reason)
}

func TestCreateEventOrderNotFound(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	fake.Orders.GetByIDFunc = func(_ context.Context, _ int64) (*order.Order, error) {
		return nil, sql.ErrNoRows
	}
	svc := newTestService(fake)

	res, err := svc.CreateEvent(context.Background(), CreateEventInput{
		OrderID: 404,
		Kind:    orderevent.KindNote,
	})
	require.NoError(t, err)
	assert.Equal(t, result.ReasonNotFound, res.Reason)
	assert.Empty(t, fake.Events.Inserted)
}

func TestGetCriticalEventsDefaultsLimit(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	var gotLimit int
	fake.Events.ListCriticalFunc = func(_ context.Context, limit int) ([]orderevent.OrderEvent, error) {
		gotLimit = limit
		return nil, nil
	}
	svc := newTestService(fake)

	_, err := svc.GetCriticalEvents(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)

	_, err = svc.GetCriticalEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit)
}

func TestGetEventAnalyticsPassesFilters(t *testing.T) {
	fake := uowtest.NewFakeUnitOfWork()
	orderID := int64(7)
	fake.Events.CountByKindFunc = func(_ context.Context, gotOrder *int64, _ *time.Time) ([]orderevent.KindCount, error) {
		require.NotNil(t, gotOrder)
		assert.Equal(t, orderID, *gotOrder)
		return []orderevent.KindCount{{Kind: orderevent.KindOrderPaid, Count: 2}}, nil
	}
	svc := newTestService(fake)

	counts, err := svc.GetEventAnalytics(context.Background(), &orderID, nil)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(2), counts[0].Count)
}
