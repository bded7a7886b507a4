package checkoutsvc

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
	"github.com/weftwear/oms/internal/dal/interfaces/istockrepo"
	"github.com/weftwear/oms/internal/dal/postgres"
	"github.com/weftwear/oms/internal/dal/uow"
	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/models/discount"
	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/orderitem"
	"github.com/weftwear/oms/internal/service/models/outbox"
	"github.com/weftwear/oms/internal/service/models/result"
	"github.com/weftwear/oms/internal/service/rates"
)

// CheckoutService turns a cart draft into a PENDING order: it quotes tax
// and shipping, applies a discount code, decrements stock and persists
// the order with its immutable lines. The stock and order writes happen
// in one transaction.
type CheckoutService struct {
	pgClient *postgres.Client
	calc     *rates.Calculator
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
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the CheckoutService.
type option func(*CheckoutService)

// MustNewCheckoutService creates a new CheckoutService.
func MustNewCheckoutService(opts ...option) *CheckoutService {
	s := &CheckoutService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.calc == nil {
		s.calc = rates.NewCalculator(rates.LoadConfig())
	}
	if s.newUOW == nil {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(s.pgClient)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the CheckoutService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *CheckoutService) {
		s.pgClient = pgClient
	}
}

// WithCalculator sets the rate calculator.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCalculator(calc *rates.Calculator) option {
	return func(s *CheckoutService) {
		s.calc = calc
	}
}

// WithUnitOfWorkFactory overrides how units of work are built, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *CheckoutService) {
		s.newUOW = factory
	}
}

// CheckoutLine is one cart line as submitted by the storefront, with
// price and naming snapshots taken from the live catalog at submit time.
type CheckoutLine struct {
	ProductID      int64  `json:"productId"`
	SizeVariantID  int64  `json:"sizeVariantId"`
	SKU            string `json:"sku"`
	ProductName    string `json:"productName"`
	SizeLabel      string `json:"sizeLabel"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Qty            int    `json:"qty"`
}

// CheckoutInput is everything needed to create an order.
type CheckoutInput struct {
	UserID       *int64            `json:"userId,omitempty"`
	Lines        []CheckoutLine    `json:"lines"`
	Destination  rates.Destination `json:"destination"`
	Currency     currency.Currency `json:"currency"`
	DiscountCode string            `json:"discountCode,omitempty"`
}

// CheckoutResult is the structured outcome of a checkout attempt.
type CheckoutResult struct {
	Success bool          `json:"success"`
	Reason  result.Reason `json:"error,omitempty"`
	Detail  string        `json:"detail,omitempty"`
	Order   *order.Order  `json:"order,omitempty"`
	Quote   rates.Quote   `json:"quote"`
}

// Checkout validates the cart, quotes rates and creates the order.
// Any line with insufficient stock aborts the whole attempt; no partial
// decrement ever commits.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (CheckoutResult, error) {
	draftLines := make([]rates.Line, len(input.Lines))
	for i, l := range input.Lines {
		draftLines[i] = rates.Line{
			ProductID:      l.ProductID,
			SizeVariantID:  l.SizeVariantID,
			UnitPriceCents: l.UnitPriceCents,
			Qty:            l.Qty,
		}
	}

	draft, err := s.calc.BuildDraftFromCart(rates.DraftInput{
		Lines:       draftLines,
		Destination: input.Destination,
		Currency:    input.Currency,
	})
	if err != nil {
		return CheckoutResult{Reason: result.ReasonValidation, Detail: err.Error()}, nil
	}

	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		return CheckoutResult{}, err
	}
	defer func() { _ = work.Rollback() }()

	now := time.Now()

	var code *discount.DiscountCode
	if input.DiscountCode != "" {
		code, err = work.DiscountRepository().GetByCode(ctx, input.DiscountCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return CheckoutResult{Reason: result.ReasonNotFound, Detail: "unknown discount code"}, nil
			}
			return CheckoutResult{}, err
		}
		if reason := code.Check(now, draft.SubtotalCents); reason != result.ReasonNone {
			return CheckoutResult{Reason: reason, Detail: "discount code not applicable"}, nil
		}
		draft.DiscountCents = code.Amount(draft.SubtotalCents)
	}

	quote := s.calc.Calculate(draft)

	for _, line := range input.Lines {
		ok, err := work.StockRepository().DecrementStock(ctx, line.SizeVariantID, line.Qty)
		if err != nil {
			return CheckoutResult{}, err
		}
		if !ok {
			return CheckoutResult{
				Reason: result.ReasonInsufficientStock,
				Detail: fmt.Sprintf("size variant %d", line.SizeVariantID),
				Quote:  quote,
			}, nil
		}
	}

	ord := s.assembleOrder(input, draft, quote, code, now)
	if err := ord.CheckTotals(); err != nil {
		return CheckoutResult{}, err
	}

	inserted, err := work.OrderRepository().Insert(ctx, ord)
	if err != nil {
		return CheckoutResult{}, err
	}

	items := make([]orderitem.OrderItem, len(input.Lines))
	for i, l := range input.Lines {
		items[i] = orderitem.OrderItem{
			OrderID:        inserted.ID,
			ProductID:      l.ProductID,
			SizeVariantID:  l.SizeVariantID,
			SKU:            l.SKU,
			ProductName:    l.ProductName,
			SizeLabel:      l.SizeLabel,
			Quantity:       l.Qty,
			UnitPriceCents: l.UnitPriceCents,
			LineTotalCents: l.UnitPriceCents * int64(l.Qty),
			PriceCurrency:  input.Currency,
			CreatedAt:      now,
		}
	}

	insertedItems, err := work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return CheckoutResult{}, err
	}
	inserted.OrderItems = insertedItems

	if err := s.appendEvents(ctx, work, inserted, quote, code, now); err != nil {
		return CheckoutResult{}, err
	}

	if err := s.queueNotification(ctx, work, inserted, now); err != nil {
		return CheckoutResult{}, err
	}

	if err := work.Commit(); err != nil {
		return CheckoutResult{}, err
	}

	slog.Info("order created",
		"order_id", inserted.ID,
		"subtotal_cents", inserted.SubtotalCents,
		"total_cents", inserted.TotalCents,
		"currency", inserted.Currency.String(),
	)

	return CheckoutResult{Success: true, Order: inserted, Quote: quote}, nil
}

func (s *CheckoutService) assembleOrder(
	input CheckoutInput,
	draft rates.Draft,
	quote rates.Quote,
	code *discount.DiscountCode,
	now time.Time,
) *order.Order {
	total := draft.SubtotalCents - draft.DiscountCents + quote.ShippingCents
	if !quote.Breakdown.PricesIncludeTax {
		total += quote.TaxCents
	}

	ord := &order.Order{
		UserID:           input.UserID,
		Status:           order.StatusPending,
		SubtotalCents:    draft.SubtotalCents,
		DiscountCents:    draft.DiscountCents,
		TaxCents:         quote.TaxCents,
		ShippingCents:    quote.ShippingCents,
		TotalCents:       total,
		Currency:         input.Currency,
		PricesIncludeTax: quote.Breakdown.PricesIncludeTax,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if code != nil {
		ord.DiscountCodeID = &code.ID
		ord.DiscountCode = &code.Code
		ord.DiscountValueCents = &code.ValueCents
		ord.DiscountPercent = &code.Percent
	}

	return ord
}

type orderCreatedMetadata struct {
	TaxCents         int64  `json:"taxCents"`
	ShippingCents    int64  `json:"shippingCents"`
	PricesIncludeTax bool   `json:"pricesIncludeTax"`
	Currency         string `json:"currency"`
}

func (s *CheckoutService) appendEvents(
	ctx context.Context,
	work unitOfWork,
	ord *order.Order,
	quote rates.Quote,
	code *discount.DiscountCode,
	now time.Time,
) error {
	metadata, err := json.Marshal(orderCreatedMetadata{
		TaxCents:         quote.TaxCents,
		ShippingCents:    quote.ShippingCents,
		PricesIncludeTax: quote.Breakdown.PricesIncludeTax,
		Currency:         ord.Currency.String(),
	})
	if err != nil {
		return err
	}

	_, err = work.EventRepository().Insert(ctx, &orderevent.OrderEvent{
		OrderID:   ord.ID,
		Kind:      orderevent.KindOrderCreated,
		Message:   "order created",
		Metadata:  metadata,
		ActorID:   ord.UserID,
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	if code == nil {
		return nil
	}

	discountMetadata, err := json.Marshal(map[string]any{
		"code":          code.Code,
		"discountCents": ord.DiscountCents,
	})
	if err != nil {
		return err
	}

	_, err = work.EventRepository().Insert(ctx, &orderevent.OrderEvent{
		OrderID:   ord.ID,
		Kind:      orderevent.KindDiscountApplied,
		Message:   "discount code " + code.Code + " applied",
		Metadata:  discountMetadata,
		ActorID:   ord.UserID,
		CreatedAt: now,
	})

	return err
}

func (s *CheckoutService) queueNotification(ctx context.Context, work unitOfWork, ord *order.Order, now time.Time) error {
	payload, err := json.Marshal(ord)
	if err != nil {
		return err
	}

	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 5
	}

	return work.OutboxRepository().Insert(ctx, outbox.Message{
		CorrelationID: uuid.NewString(),
		RoutingKey:    outbox.RouteOrderCreated,
		Payload:       payload,
		ContentType:   "application/json",
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
		NextRetryAt:   now,
	})
}
