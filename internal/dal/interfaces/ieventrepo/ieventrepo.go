package ieventrepo

import (
	"context"
	"time"

	"github.com/weftwear/oms/internal/service/models/orderevent"
)

// IOrderEventRepository appends and reads the per-order audit trail.
// Events are insert-only; no update or delete exists on purpose.
type IOrderEventRepository interface {
	Insert(ctx context.Context, e *orderevent.OrderEvent) (*orderevent.OrderEvent, error)
	// ListByOrder returns events oldest first for timeline display.
	ListByOrder(ctx context.Context, orderID int64) ([]orderevent.OrderEvent, error)
	ListCritical(ctx context.Context, limit int) ([]orderevent.OrderEvent, error)
	CountByKind(ctx context.Context, orderID *int64, since *time.Time) ([]orderevent.KindCount, error)
	// HasKind reports whether at least one event of the kind exists for
	// the order; used by transition guards.
	HasKind(ctx context.Context, orderID int64, kind orderevent.Kind) (bool, error)
}
