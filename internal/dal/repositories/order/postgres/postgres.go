package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderitem"
)

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id                 int64      `db:"id"`
	UserId             *int64     `db:"user_id"`
	Status             string     `db:"status"`
	SubtotalCents      int64      `db:"subtotal_cents"`
	DiscountCents      int64      `db:"discount_cents"`
	TaxCents           int64      `db:"tax_cents"`
	ShippingCents      int64      `db:"shipping_cents"`
	TotalCents         int64      `db:"total_cents"`
	Currency           string     `db:"currency"`
	PricesIncludeTax   bool       `db:"prices_include_tax"`
	DiscountCodeId     *int64     `db:"discount_code_id"`
	DiscountCode       *string    `db:"discount_code"`
	DiscountValueCents *int64     `db:"discount_value_cents"`
	DiscountPercent    *int64     `db:"discount_percent"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	PaidAt             *time.Time `db:"paid_at"`
	CancelledAt        *time.Time `db:"cancelled_at"`
	ShippedAt          *time.Time `db:"shipped_at"`
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return nil, err
	}
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:                 o.Id,
		UserID:             o.UserId,
		Status:             status,
		SubtotalCents:      o.SubtotalCents,
		DiscountCents:      o.DiscountCents,
		TaxCents:           o.TaxCents,
		ShippingCents:      o.ShippingCents,
		TotalCents:         o.TotalCents,
		Currency:           cur,
		PricesIncludeTax:   o.PricesIncludeTax,
		DiscountCodeID:     o.DiscountCodeId,
		DiscountCode:       o.DiscountCode,
		DiscountValueCents: o.DiscountValueCents,
		DiscountPercent:    o.DiscountPercent,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		PaidAt:             o.PaidAt,
		CancelledAt:        o.CancelledAt,
		ShippedAt:          o.ShippedAt,
		OrderItems:         []orderitem.OrderItem{},
	}, nil
}

// OrderDalFromModel converts the service layer Order model to OrderDal.
func OrderDalFromModel(o *order.Order) *OrderDal {
	return &OrderDal{
		Id:                 o.ID,
		UserId:             o.UserID,
		Status:             o.Status.String(),
		SubtotalCents:      o.SubtotalCents,
		DiscountCents:      o.DiscountCents,
		TaxCents:           o.TaxCents,
		ShippingCents:      o.ShippingCents,
		TotalCents:         o.TotalCents,
		Currency:           o.Currency.String(),
		PricesIncludeTax:   o.PricesIncludeTax,
		DiscountCodeId:     o.DiscountCodeID,
		DiscountCode:       o.DiscountCode,
		DiscountValueCents: o.DiscountValueCents,
		DiscountPercent:    o.DiscountPercent,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		PaidAt:             o.PaidAt,
		CancelledAt:        o.CancelledAt,
		ShippedAt:          o.ShippedAt,
	}
}

const orderColumns = `
	id,
	user_id,
	status,
	subtotal_cents,
	discount_cents,
	tax_cents,
	shipping_cents,
	total_cents,
	currency,
	prices_include_tax,
	discount_code_id,
	discount_code,
	discount_value_cents,
	discount_percent,
	created_at,
	updated_at,
	paid_at,
	cancelled_at,
	shipped_at`

type PostgresOrderRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresOrderRepository(conn sqlx.ExtContext) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert persists a new order and returns it with the generated id.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o *order.Order) (*order.Order, error) {
	sql := `
		INSERT INTO orders (
			user_id,
			status,
			subtotal_cents,
			discount_cents,
			tax_cents,
			shipping_cents,
			total_cents,
			currency,
			prices_include_tax,
			discount_code_id,
			discount_code,
			discount_value_cents,
			discount_percent,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + orderColumns

	dal := OrderDalFromModel(o)

	row := r.conn.QueryRowxContext(ctx, sql,
		dal.UserId,
		dal.Status,
		dal.SubtotalCents,
		dal.DiscountCents,
		dal.TaxCents,
		dal.ShippingCents,
		dal.TotalCents,
		dal.Currency,
		dal.PricesIncludeTax,
		dal.DiscountCodeId,
		dal.DiscountCode,
		dal.DiscountValueCents,
		dal.DiscountPercent,
		dal.CreatedAt,
		dal.UpdatedAt,
	)

	var inserted OrderDal
	if err := row.StructScan(&inserted); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	model, err := inserted.ToModel()
	if err != nil {
		return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
	}
	model.OrderItems = o.OrderItems

	return model, nil
}

// GetByID loads one order without locking.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate loads one order with FOR UPDATE, serializing concurrent
// transitions on the row lock. Must run inside a transaction.
func (r *PostgresOrderRepository) GetForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return r.get(ctx, id, true)
}

func (r *PostgresOrderRepository) get(ctx context.Context, id int64, forUpdate bool) (*order.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	var dal OrderDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, sql, id); err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	model, err := dal.ToModel()
	if err != nil {
		return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	return model, nil
}

// UpdateStatus writes the status and lifecycle timestamps of an order.
// Money fields are immutable after creation and deliberately not touched.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	sql := `
		UPDATE orders
		SET status = $2,
			updated_at = $3,
			paid_at = $4,
			cancelled_at = $5,
			shipped_at = $6
		WHERE id = $1`

	res, err := r.conn.ExecContext(ctx, sql,
		o.ID,
		o.Status.String(),
		o.UpdatedAt,
		o.PaidAt,
		o.CancelledAt,
		o.ShippedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order %d status: %w", o.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order %d not found for status update", o.ID)
	}

	return nil
}

// Query retrieves orders based on filter criteria.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	sqlBuilder := strings.Builder{}
	sqlBuilder.WriteString(`SELECT ` + orderColumns + ` FROM orders`)

	args := []interface{}{}
	conditions := []string{}
	argIndex := 1

	if len(filter.Ids) > 0 {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argIndex))
		args = append(args, pq.Array(filter.Ids))
		argIndex++
	}

	if len(filter.UserIds) > 0 {
		conditions = append(conditions, fmt.Sprintf("user_id = ANY($%d)", argIndex))
		args = append(args, pq.Array(filter.UserIds))
		argIndex++
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if len(conditions) > 0 {
		sqlBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	sqlBuilder.WriteString(" ORDER BY id")

	if filter.Limit > 0 {
		sqlBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		sqlBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argIndex))
		args = append(args, filter.Offset)
	}

	rows, err := r.conn.QueryxContext(ctx, sqlBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var dal OrderDal
		if err := rows.StructScan(&dal); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
