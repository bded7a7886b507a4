package stocksvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/weftwear/oms/internal/dal/interfaces/ieventrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderitemrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/iorderrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/istockrepo"
	"github.com/weftwear/oms/internal/dal/postgres"
	"github.com/weftwear/oms/internal/dal/uow"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/result"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// StockService is the stock ledger: every inventory mutation in the
// system goes through it.
type StockService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	StockRepository() istockrepo.IStockRepository
	EventRepository() ieventrepo.IOrderEventRepository
}

// option is a function that configures the StockService.
type option func(*StockService)

// MustNewStockService creates a new StockService.
func MustNewStockService(opts ...option) *StockService {
	s := &StockService{}
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

// WithPostgresClient sets the Postgres client for the StockService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *StockService) {
		s.pgClient = pgClient
	}
}

// WithUnitOfWorkFactory overrides how units of work are built, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *StockService) {
		s.newUOW = factory
	}
}

// DecrementSizeStock attempts to reduce a variant's stock by qty.
// The repository performs a single conditional update, so under N
// concurrent single-unit calls against stock S exactly S succeed and the
// count lands on zero, never below. A false return means insufficient
// stock, a hard checkout failure for the caller.
func (s *StockService) DecrementSizeStock(ctx context.Context, variantID int64, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}

	return s.newUOW().StockRepository().DecrementStock(ctx, variantID, qty)
}

// RestoreResult reports the outcome of a stock restoration.
type RestoreResult struct {
	Success       bool          `json:"success"`
	Reason        result.Reason `json:"error,omitempty"`
	Detail        string        `json:"detail,omitempty"`
	UnitsRestored int           `json:"unitsRestored"`
}

// RestoreStock returns every unit of an order to its size variant, item
// by item, in one transaction. It does not check the order's status:
// callers must guard against double restoration (the status machine does
// this by only restoring on the CANCELLED/REFUNDED transition itself).
func (s *StockService) RestoreStock(ctx context.Context, orderID int64, reason string) (RestoreResult, error) {
	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		return RestoreResult{}, err
	}
	defer func() { _ = work.Rollback() }()

	if _, err := work.OrderRepository().GetByID(ctx, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RestoreResult{Reason: result.ReasonNotFound, Detail: fmt.Sprintf("order %d", orderID)}, nil
		}
		return RestoreResult{}, err
	}

	units, err := RestoreOrderItems(ctx, work.OrderItemRepository(), work.StockRepository(), orderID)
	if err != nil {
		return RestoreResult{}, err
	}

	now := time.Now()
	_, err = work.EventRepository().Insert(ctx, &orderevent.OrderEvent{
		OrderID:   orderID,
		Kind:      orderevent.KindNote,
		Message:   "stock restored: " + reason,
		CreatedAt: now,
	})
	if err != nil {
		return RestoreResult{}, err
	}

	if err := work.Commit(); err != nil {
		return RestoreResult{}, err
	}

	slog.Info("stock restored", "order_id", orderID, "units", units, "reason", reason)

	return RestoreResult{Success: true, UnitsRestored: units}, nil
}

// RestoreOrderItems increments each variant's stock by the exact quantity
// the order's lines decremented at creation. Runs on whatever transaction
// the passed repositories are bound to, so the status machine can fold it
// into a transition.
func RestoreOrderItems(
	ctx context.Context,
	itemRepo iorderitemrepo.IOrderItemRepository,
	stockRepo istockrepo.IStockRepository,
	orderID int64,
) (int, error) {
	items, err := itemRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}

	units := 0
	for _, item := range items {
		if err := stockRepo.IncrementStock(ctx, item.SizeVariantID, item.Quantity); err != nil {
			return 0, fmt.Errorf("failed to restore stock for variant %d: %w", item.SizeVariantID, err)
		}
		units += item.Quantity
	}

	return units, nil
}

// AdjustResult reports the outcome of a manual stock adjustment.
type AdjustResult struct {
	Success  bool          `json:"success"`
	Reason   result.Reason `json:"error,omitempty"`
	NewStock int           `json:"newStock"`
}

// AdjustStock applies a manual admin adjustment. Negative deltas follow
// the same non-negative floor as checkout decrements.
func (s *StockService) AdjustStock(ctx context.Context, variantID int64, delta int, reason string, actorID *int64) (AdjustResult, error) {
	if delta == 0 {
		return AdjustResult{Reason: result.ReasonValidation}, nil
	}

	work := s.newUOW()
	repo := work.StockRepository()

	if delta > 0 {
		if err := repo.IncrementStock(ctx, variantID, delta); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return AdjustResult{Reason: result.ReasonNotFound}, nil
			}
			return AdjustResult{}, err
		}
	} else {
		ok, err := repo.DecrementStock(ctx, variantID, -delta)
		if err != nil {
			return AdjustResult{}, err
		}
		if !ok {
			return AdjustResult{Reason: result.ReasonInsufficientStock}, nil
		}
	}

	variant, err := repo.GetByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AdjustResult{Reason: result.ReasonNotFound}, nil
		}
		return AdjustResult{}, err
	}

	slog.Info("stock adjusted",
		"variant_id", variantID,
		"delta", delta,
		"new_stock", variant.Stock,
		"reason", reason,
		"actor_id", actorID,
	)

	return AdjustResult{Success: true, NewStock: variant.Stock}, nil
}
