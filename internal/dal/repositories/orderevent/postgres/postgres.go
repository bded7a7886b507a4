package postgresrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/weftwear/oms/internal/service/models/orderevent"
)

// OrderEventDal represents the order event data access layer model.
type OrderEventDal struct {
	Id        int64     `db:"id"`
	OrderId   int64     `db:"order_id"`
	Kind      string    `db:"kind"`
	Message   string    `db:"message"`
	Metadata  []byte    `db:"metadata"`
	ActorId   *int64    `db:"actor_id"`
	CreatedAt time.Time `db:"created_at"`
}

// ToModel converts OrderEventDal to the service layer model.
func (e *OrderEventDal) ToModel() (*orderevent.OrderEvent, error) {
	kind, err := orderevent.ParseKind(e.Kind)
	if err != nil {
		return nil, err
	}

	return &orderevent.OrderEvent{
		ID:        e.Id,
		OrderID:   e.OrderId,
		Kind:      kind,
		Message:   e.Message,
		Metadata:  json.RawMessage(e.Metadata),
		ActorID:   e.ActorId,
		CreatedAt: e.CreatedAt,
	}, nil
}

var eventColumns = []string{
	"id",
	"order_id",
	"kind",
	"message",
	"metadata",
	"actor_id",
	"created_at",
}

// PostgresOrderEventRepository is an append-only store: no update or
// delete statements exist here.
type PostgresOrderEventRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresOrderEventRepository(conn sqlx.ExtContext) *PostgresOrderEventRepository {
	return &PostgresOrderEventRepository{
		conn: conn,
	}
}

// Insert appends one event and returns it with the generated id.
func (r *PostgresOrderEventRepository) Insert(ctx context.Context, e *orderevent.OrderEvent) (*orderevent.OrderEvent, error) {
	sql := `
		INSERT INTO order_events (order_id, kind, message, metadata, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, order_id, kind, message, metadata, actor_id, created_at
	`

	var metadata []byte
	if len(e.Metadata) > 0 {
		metadata = []byte(e.Metadata)
	}

	row := r.conn.QueryRowxContext(ctx, sql,
		e.OrderID,
		e.Kind.String(),
		e.Message,
		metadata,
		e.ActorID,
		e.CreatedAt,
	)

	var dal OrderEventDal
	if err := row.StructScan(&dal); err != nil {
		return nil, fmt.Errorf("failed to insert order event: %w", err)
	}

	return dal.ToModel()
}

// ListByOrder returns a timeline, oldest first.
func (r *PostgresOrderEventRepository) ListByOrder(ctx context.Context, orderID int64) ([]orderevent.OrderEvent, error) {
	query, args, err := sq.Select(eventColumns...).
		From("order_events").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at ASC", "id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.list(ctx, query, args...)
}

// ListCritical returns the newest events of critical kinds.
func (r *PostgresOrderEventRepository) ListCritical(ctx context.Context, limit int) ([]orderevent.OrderEvent, error) {
	kinds := orderevent.CriticalKinds()
	kindStrings := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrings[i] = k.String()
	}

	query, args, err := sq.Select(eventColumns...).
		From("order_events").
		Where(sq.Expr("kind = ANY(?)", pq.Array(kindStrings))).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.list(ctx, query, args...)
}

func (r *PostgresOrderEventRepository) list(ctx context.Context, query string, args ...interface{}) ([]orderevent.OrderEvent, error) {
	rows, err := r.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order events: %w", err)
	}
	defer rows.Close()

	var result []orderevent.OrderEvent
	for rows.Next() {
		var dal OrderEventDal
		if err := rows.StructScan(&dal); err != nil {
			return nil, fmt.Errorf("failed to scan order event: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order event dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// CountByKind aggregates the event counts, optionally restricted to one
// order and to events after a point in time.
func (r *PostgresOrderEventRepository) CountByKind(ctx context.Context, orderID *int64, since *time.Time) ([]orderevent.KindCount, error) {
	builder := sq.Select("kind", "COUNT(*) AS count").
		From("order_events").
		GroupBy("kind").
		OrderBy("count DESC").
		PlaceholderFormat(sq.Dollar)

	if orderID != nil {
		builder = builder.Where(sq.Eq{"order_id": *orderID})
	}
	if since != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *since})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregate query: %w", err)
	}

	rows, err := r.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order events: %w", err)
	}
	defer rows.Close()

	var result []orderevent.KindCount
	for rows.Next() {
		var kindStr string
		var count int64
		if err := rows.Scan(&kindStr, &count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		kind, err := orderevent.ParseKind(kindStr)
		if err != nil {
			return nil, err
		}
		result = append(result, orderevent.KindCount{Kind: kind, Count: count})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// HasKind reports whether the order already has an event of the kind.
func (r *PostgresOrderEventRepository) HasKind(ctx context.Context, orderID int64, kind orderevent.Kind) (bool, error) {
	query, args, err := sq.Select("1").
		From("order_events").
		Where(sq.Eq{"order_id": orderID, "kind": kind.String()}).
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}

	var one int
	err = sqlx.GetContext(ctx, r.conn, &one, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check event kind: %w", err)
	}

	return true, nil
}
