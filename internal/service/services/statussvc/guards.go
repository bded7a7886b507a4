package statussvc

import (
	"context"

	"github.com/weftwear/oms/internal/dal/interfaces/ieventrepo"
	"github.com/weftwear/oms/internal/dal/interfaces/ipaymentrepo"
	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
)

// GuardDeps gives guard functions read access to collaborator state.
// Guards run inside the transition's transaction, so what they read is
// what the transition commits against.
type GuardDeps interface {
	PaymentRepository() ipaymentrepo.IPaymentRepository
	EventRepository() ieventrepo.IOrderEventRepository
}

// GuardFunc is a precondition for one transition pair. A false return
// carries a human-readable detail explaining what is missing.
type GuardFunc func(ctx context.Context, deps GuardDeps, ord *order.Order) (ok bool, detail string, err error)

type transitionPair struct {
	from order.Status
	to   order.Status
}

// GuardRegistry maps transition pairs to their guard functions. Guards
// live outside the transition table so new preconditions can be added
// without touching the table's shape.
type GuardRegistry struct {
	guards map[transitionPair][]GuardFunc
}

// NewGuardRegistry returns an empty registry.
func NewGuardRegistry() *GuardRegistry {
	return &GuardRegistry{guards: make(map[transitionPair][]GuardFunc)}
}

// Register appends a guard for one from/to pair.
func (g *GuardRegistry) Register(from, to order.Status, fn GuardFunc) {
	pair := transitionPair{from: from, to: to}
	g.guards[pair] = append(g.guards[pair], fn)
}

// Check runs every guard registered for the pair, stopping at the first
// refusal.
func (g *GuardRegistry) Check(ctx context.Context, deps GuardDeps, ord *order.Order, target order.Status) (bool, string, error) {
	for _, fn := range g.guards[transitionPair{from: ord.Status, to: target}] {
		ok, detail, err := fn(ctx, deps, ord)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, detail, nil
		}
	}

	return true, "", nil
}

// guardPaymentSucceeded requires a successful payment record on file.
func guardPaymentSucceeded(ctx context.Context, deps GuardDeps, ord *order.Order) (bool, string, error) {
	ok, err := deps.PaymentRepository().HasSucceeded(ctx, ord.ID)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "no successful payment on file", nil
	}

	return true, "", nil
}

// guardFulfillmentStarted requires that fulfillment was recorded before
// the order can ship.
func guardFulfillmentStarted(ctx context.Context, deps GuardDeps, ord *order.Order) (bool, string, error) {
	ok, err := deps.EventRepository().HasKind(ctx, ord.ID, orderevent.KindFulfillmentStarted)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "fulfillment has not started", nil
	}

	return true, "", nil
}

// DefaultGuardRegistry seeds the registry with the known collaborator
// preconditions. The set is intentionally extensible: collaborators
// register further guards through Register.
func DefaultGuardRegistry() *GuardRegistry {
	g := NewGuardRegistry()

	g.Register(order.StatusAwaitingPayment, order.StatusPaid, guardPaymentSucceeded)
	g.Register(order.StatusFulfilling, order.StatusShipped, guardFulfillmentStarted)

	for _, from := range []order.Status{
		order.StatusPaid,
		order.StatusFulfilling,
		order.StatusShipped,
		order.StatusDelivered,
	} {
		g.Register(from, order.StatusRefunded, guardPaymentSucceeded)
	}

	return g
}
