package eventsvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/weftwear/oms/internal/dal/interfaces/ieventrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderrepo"
	"github.com/weftwear/oms/internal/dal/postgres"
	"github.com/weftwear/oms/internal/dal/uow"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/result"
)

// EventService is the order event log: append-only writes, ordered and
// aggregated reads. Events never change once written.
type EventService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
}

type unitOfWork interface {
	OrderRepository() iorderrepo.IOrderRepository
	EventRepository() ieventrepo.IOrderEventRepository
}

// option is a function that configures the EventService.
type option func(*EventService)

// MustNewEventService creates a new EventService.
func MustNewEventService(opts ...option) *EventService {
	s := &EventService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(s.pgClient)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the EventService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *EventService) {
		s.pgClient = pgClient
	}
}

// WithUnitOfWorkFactory overrides how units of work are built, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *EventService) {
		s.newUOW = factory
	}
}

// CreateEventInput is the caller-facing shape for appending one event.
type CreateEventInput struct {
	OrderID  int64           `json:"orderId"`
	Kind     orderevent.Kind `json:"kind"`
	Message  string          `json:"message"`
	ActorID  *int64          `json:"actorId,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// CreateEventResult is the structured outcome of an append attempt.
type CreateEventResult struct {
	Success bool                   `json:"success"`
	Reason  result.Reason          `json:"error,omitempty"`
	Detail  string                 `json:"detail,omitempty"`
	Event   *orderevent.OrderEvent `json:"event,omitempty"`
}

// CreateEvent appends one event to an order's trail. A missing order is
// reported as not_found rather than as a raw foreign-key failure.
func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (CreateEventResult, error) {
	if !input.Kind.IsValid() {
		return CreateEventResult{Reason: result.ReasonValidation, Detail: "unknown event kind"}, nil
	}

	work := s.newUOW()

	if _, err := work.OrderRepository().GetByID(ctx, input.OrderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CreateEventResult{Reason: result.ReasonNotFound}, nil
		}
		return CreateEventResult{}, err
	}

	event, err := work.EventRepository().Insert(ctx, &orderevent.OrderEvent{
		OrderID:   input.OrderID,
		Kind:      input.Kind,
		Message:   input.Message,
		Metadata:  input.Metadata,
		ActorID:   input.ActorID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return CreateEventResult{}, err
	}

	return CreateEventResult{Success: true, Event: event}, nil
}

// GetOrderEvents returns an order's timeline, oldest first.
func (s *EventService) GetOrderEvents(ctx context.Context, orderID int64) ([]orderevent.OrderEvent, error) {
	return s.newUOW().EventRepository().ListByOrder(ctx, orderID)
}

// GetCriticalEvents returns the newest events needing admin attention.
func (s *EventService) GetCriticalEvents(ctx context.Context, limit int) ([]orderevent.OrderEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	return s.newUOW().EventRepository().ListCritical(ctx, limit)
}

// GetEventAnalytics aggregates event counts by kind, optionally for one
// order and/or a trailing time range.
func (s *EventService) GetEventAnalytics(ctx context.Context, orderID *int64, since *time.Time) ([]orderevent.KindCount, error) {
	return s.newUOW().EventRepository().CountByKind(ctx, orderID, since)
}
