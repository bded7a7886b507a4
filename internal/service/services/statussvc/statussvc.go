package statussvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/weftwear/oms/internal/dal/interfaces/idiscountrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ieventrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderitemrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ioutboxrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ipaymentrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/istockrepo"
	"github.com/weftwear/oms/internal/dal/postgres"
	"github.com/weftwear/oms/internal/dal/uow"
	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/outbox"
	"github.com/weftwear/oms/internal/service/models/result"
	"github.com/weftwear/oms/internal/service/services/stocksvc"
)

// MaxBulkSize bounds one bulk transition request, keeping transaction
// scope per batch manageable.
const MaxBulkSize = 100

// StatusService is the authoritative order lifecycle state machine.
// Every status change, customer or admin, goes through it.
type StatusService struct {
	pgClient *postgres.Client
	guards   *GuardRegistry
	newUOW   func() unitOfWork
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	StockRepository() istockrepo.IStockRepository
	DiscountRepository() idiscountrepo.IDiscountRepository
	EventRepository() ieventrepo.IOrderEventRepository
	PaymentRepository() ipaymentrepo.IPaymentRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the StatusService.
type option func(*StatusService)

// MustNewStatusService creates a new StatusService.
func MustNewStatusService(opts ...option) *StatusService {
	s := &StatusService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.guards == nil {
		s.guards = DefaultGuardRegistry()
	}
	if s.newUOW == nil {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(s.pgClient)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the StatusService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *StatusService) {
		s.pgClient = pgClient
	}
}

// WithGuardRegistry replaces the default guard registry.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithGuardRegistry(g *GuardRegistry) option {
	return func(s *StatusService) {
		s.guards = g
	}
}

// WithUnitOfWorkFactory overrides how units of work are built, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *StatusService) {
		s.newUOW = factory
	}
}

// TransitionOptions carries the caller's context for one transition.
type TransitionOptions struct {
	ActorID *int64
	Reason  string
	// Force bypasses guard checks, but never the transition table or the
	// terminal-state restriction.
	Force bool
}

// TransitionResult is the structured outcome of one transition attempt.
// Expected refusals land in Reason; storage failures surface as errors.
type TransitionResult struct {
	Success          bool           `json:"success"`
	Reason           result.Reason  `json:"error,omitempty"`
	Detail           string         `json:"detail,omitempty"`
	ValidTransitions []order.Status `json:"validTransitions,omitempty"`
	Order            *order.Order   `json:"order,omitempty"`
}

func refusal(reason result.Reason, detail string, current order.Status) TransitionResult {
	return TransitionResult{
		Reason:           reason,
		Detail:           detail,
		ValidTransitions: order.ValidTransitions(current),
	}
}

// GetValidTransitions exposes the table lookup for UI hints.
func (s *StatusService) GetValidTransitions(current order.Status) []order.Status {
	return order.ValidTransitions(current)
}

// GetOrderValidTransitions loads an order and returns where it may go
// next. The not-found condition propagates as sql.ErrNoRows.
func (s *StatusService) GetOrderValidTransitions(ctx context.Context, orderID int64) ([]order.Status, error) {
	ord, err := s.newUOW().OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return order.ValidTransitions(ord.Status), nil
}

// GetOrders lists orders matching the filter. Admin tooling uses it to
// collect candidates for a bulk transition.
func (s *StatusService) GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	return s.newUOW().OrderRepository().Query(ctx, filter)
}

// ValidateTransition checks the table and the guards for an order without
// changing anything. The refusal reason distinguishes a table violation
// from a failed guard so admin tooling can explain the difference.
func (s *StatusService) ValidateTransition(ctx context.Context, orderID int64, target order.Status) (TransitionResult, error) {
	if !target.IsValid() {
		return TransitionResult{Reason: result.ReasonValidation, Detail: "unknown target status"}, nil
	}

	work := s.newUOW()

	ord, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransitionResult{Reason: result.ReasonNotFound}, nil
		}
		return TransitionResult{}, err
	}

	return s.validate(ctx, work, ord, target, false)
}

func (s *StatusService) validate(ctx context.Context, deps GuardDeps, ord *order.Order, target order.Status, force bool) (TransitionResult, error) {
	if ord.Status == target {
		return TransitionResult{Success: true, Order: ord}, nil
	}
	if !order.CanTransition(ord.Status, target) {
		detail := fmt.Sprintf("cannot transition from %s to %s", ord.Status, target)
		return refusal(result.ReasonInvalidTransition, detail, ord.Status), nil
	}

	if !force {
		ok, detail, err := s.guards.Check(ctx, deps, ord, target)
		if err != nil {
			return TransitionResult{}, err
		}
		if !ok {
			return refusal(result.ReasonGuardFailed, detail, ord.Status), nil
		}
	}

	return TransitionResult{Success: true, Order: ord}, nil
}

// TransitionOrderStatus loads the order under a row lock, validates the
// target, executes the status-specific side effects, appends the audit
// event and queues the outbox notification, all in one transaction.
// Either everything commits or nothing does.
func (s *StatusService) TransitionOrderStatus(ctx context.Context, orderID int64, target order.Status, opts TransitionOptions) (TransitionResult, error) {
	if !target.IsValid() {
		return TransitionResult{Reason: result.ReasonValidation, Detail: "unknown target status"}, nil
	}

	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		return TransitionResult{}, err
	}
	defer func() { _ = work.Rollback() }()

	ord, err := work.OrderRepository().GetForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransitionResult{Reason: result.ReasonNotFound}, nil
		}
		return TransitionResult{}, err
	}

	// Idempotent self-transition: no side effects, no event, no write.
	if ord.Status == target {
		return TransitionResult{Success: true, Order: ord}, nil
	}

	res, err := s.validate(ctx, work, ord, target, opts.Force)
	if err != nil || !res.Success {
		return res, err
	}

	from := ord.Status
	now := time.Now()

	if res, err := s.applySideEffects(ctx, work, ord, target, now); err != nil || !res.Success {
		return res, err
	}

	ord.Status = target
	ord.UpdatedAt = now

	if err := ord.CheckTotals(); err != nil {
		return TransitionResult{}, err
	}

	if err := work.OrderRepository().UpdateStatus(ctx, ord); err != nil {
		return TransitionResult{}, err
	}

	if err := s.appendEvent(ctx, work, ord, from, target, now, opts); err != nil {
		return TransitionResult{}, err
	}

	if err := s.queueNotification(ctx, work, ord, from, target, now, opts); err != nil {
		return TransitionResult{}, err
	}

	if err := work.Commit(); err != nil {
		return TransitionResult{}, err
	}

	slog.Info("order status changed",
		"order_id", ord.ID,
		"from", from.String(),
		"to", target.String(),
		"forced", opts.Force,
	)

	return TransitionResult{Success: true, Order: ord}, nil
}

// applySideEffects runs the mutations a target status implies, on the
// transition's transaction. A failed side effect aborts the whole
// transition; nothing is ever logged-and-continued here.
func (s *StatusService) applySideEffects(ctx context.Context, work unitOfWork, ord *order.Order, target order.Status, now time.Time) (TransitionResult, error) {
	switch target {
	case order.StatusPaid:
		if ord.DiscountCodeID != nil && ord.PaidAt == nil {
			ok, err := work.DiscountRepository().IncrementUsage(ctx, *ord.DiscountCodeID)
			if err != nil {
				return TransitionResult{}, err
			}
			if !ok {
				return refusal(result.ReasonUsageLimitExceeded, "discount usage limit reached", ord.Status), nil
			}
		}
		ord.PaidAt = &now

	case order.StatusCancelled:
		if _, err := stocksvc.RestoreOrderItems(ctx, work.OrderItemRepository(), work.StockRepository(), ord.ID); err != nil {
			return TransitionResult{}, err
		}
		if ord.DiscountCodeID != nil && ord.PaidAt != nil {
			if err := work.DiscountRepository().DecrementUsage(ctx, *ord.DiscountCodeID); err != nil {
				return TransitionResult{}, err
			}
		}
		if err := work.PaymentRepository().CancelPending(ctx, ord.ID); err != nil {
			return TransitionResult{}, err
		}
		ord.CancelledAt = &now

	case order.StatusRefunded:
		if _, err := stocksvc.RestoreOrderItems(ctx, work.OrderItemRepository(), work.StockRepository(), ord.ID); err != nil {
			return TransitionResult{}, err
		}

	case order.StatusShipped:
		ord.ShippedAt = &now
	}

	return TransitionResult{Success: true}, nil
}

func eventKindFor(target order.Status) orderevent.Kind {
	switch target {
	case order.StatusAwaitingPayment:
		return orderevent.KindPaymentAttempt
	case order.StatusPaid:
		return orderevent.KindOrderPaid
	case order.StatusFulfilling:
		return orderevent.KindFulfillmentStarted
	case order.StatusShipped:
		return orderevent.KindOrderShipped
	case order.StatusDelivered:
		return orderevent.KindOrderDelivered
	case order.StatusCancelled:
		return orderevent.KindOrderCancelled
	case order.StatusRefunded:
		return orderevent.KindOrderRefunded
	default:
		return orderevent.KindNote
	}
}

type transitionMetadata struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Forced bool   `json:"forced,omitempty"`
}

func (s *StatusService) appendEvent(ctx context.Context, work unitOfWork, ord *order.Order, from, target order.Status, now time.Time, opts TransitionOptions) error {
	metadata, err := json.Marshal(transitionMetadata{
		From:   from.String(),
		To:     target.String(),
		Forced: opts.Force,
	})
	if err != nil {
		return err
	}

	message := opts.Reason
	if message == "" {
		message = fmt.Sprintf("status changed from %s to %s", from, target)
	}

	_, err = work.EventRepository().Insert(ctx, &orderevent.OrderEvent{
		OrderID:   ord.ID,
		Kind:      eventKindFor(target),
		Message:   message,
		Metadata:  metadata,
		ActorID:   opts.ActorID,
		CreatedAt: now,
	})

	return err
}

type statusChangedPayload struct {
	OrderID int64  `json:"orderId"`
	From    string `json:"from"`
	To      string `json:"to"`
	ActorID *int64 `json:"actorId,omitempty"`
	At      string `json:"at"`
}

func (s *StatusService) queueNotification(ctx context.Context, work unitOfWork, ord *order.Order, from, target order.Status, now time.Time, opts TransitionOptions) error {
	payload, err := json.Marshal(statusChangedPayload{
		OrderID: ord.ID,
		From:    from.String(),
		To:      target.String(),
		ActorID: opts.ActorID,
		At:      now.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 5
	}

	return work.OutboxRepository().Insert(ctx, outbox.Message{
		CorrelationID: uuid.NewString(),
		RoutingKey:    outbox.RouteOrderStatusChanged,
		Payload:       payload,
		ContentType:   "application/json",
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
		NextRetryAt:   now,
	})
}

// BulkOptions controls a bulk transition run.
type BulkOptions struct {
	TransitionOptions
	// StopOnError aborts the remainder of the batch at the first failed
	// order instead of collecting and continuing.
	StopOnError bool
}

// BulkFailure records why one order in a batch was not transitioned.
type BulkFailure struct {
	OrderID int64         `json:"orderId"`
	Reason  result.Reason `json:"error"`
	Detail  string        `json:"detail,omitempty"`
}

// BulkResult partitions a batch into transitioned and refused orders.
type BulkResult struct {
	Successful []int64       `json:"successful"`
	Failed     []BulkFailure `json:"failed"`
	Reason     result.Reason `json:"error,omitempty"`
}

// BulkTransitionOrders applies the single-order transition to each id.
// Individual failures are collected, not fatal, unless StopOnError is
// set. Batches over MaxBulkSize are rejected outright.
func (s *StatusService) BulkTransitionOrders(ctx context.Context, orderIDs []int64, target order.Status, opts BulkOptions) (BulkResult, error) {
	if len(orderIDs) > MaxBulkSize {
		return BulkResult{
			Reason: result.ReasonBatchTooLarge,
		}, nil
	}

	res := BulkResult{
		Successful: []int64{},
		Failed:     []BulkFailure{},
	}

	for _, id := range orderIDs {
		single, err := s.TransitionOrderStatus(ctx, id, target, opts.TransitionOptions)
		if err != nil {
			if opts.StopOnError {
				return res, err
			}
			res.Failed = append(res.Failed, BulkFailure{OrderID: id, Reason: result.ReasonNone, Detail: err.Error()})
			continue
		}
		if !single.Success {
			res.Failed = append(res.Failed, BulkFailure{OrderID: id, Reason: single.Reason, Detail: single.Detail})
			if opts.StopOnError {
				return res, nil
			}
			continue
		}
		res.Successful = append(res.Successful, id)
	}

	return res, nil
}
