package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/models/orderitem"
)

// OrderItemDal represents the order item data access layer model.
type OrderItemDal struct {
	Id             int64     `db:"id"`
	OrderId        int64     `db:"order_id"`
	ProductId      int64     `db:"product_id"`
	SizeVariantId  int64     `db:"size_variant_id"`
	Sku            string    `db:"sku"`
	ProductName    string    `db:"product_name"`
	SizeLabel      string    `db:"size_label"`
	Quantity       int       `db:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents"`
	LineTotalCents int64     `db:"line_total_cents"`
	PriceCurrency  string    `db:"price_currency"`
	CreatedAt      time.Time `db:"created_at"`
}

// ToModel converts OrderItemDal to the service layer model.
func (i *OrderItemDal) ToModel() (*orderitem.OrderItem, error) {
	cur, err := currency.ParseCurrency(i.PriceCurrency)
	if err != nil {
		return nil, err
	}

	return &orderitem.OrderItem{
		ID:             i.Id,
		OrderID:        i.OrderId,
		ProductID:      i.ProductId,
		SizeVariantID:  i.SizeVariantId,
		SKU:            i.Sku,
		ProductName:    i.ProductName,
		SizeLabel:      i.SizeLabel,
		Quantity:       i.Quantity,
		UnitPriceCents: i.UnitPriceCents,
		LineTotalCents: i.LineTotalCents,
		PriceCurrency:  cur,
		CreatedAt:      i.CreatedAt,
	}, nil
}

type PostgresOrderItemRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresOrderItemRepository(conn sqlx.ExtContext) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
	}
}

// BulkInsert inserts order lines with a single unnest statement and
// returns them with generated ids. Lines are immutable afterwards.
func (r *PostgresOrderItemRepository) BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	if len(items) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	sql := `
		INSERT INTO order_items (
			order_id,
			product_id,
			size_variant_id,
			sku,
			product_name,
			size_label,
			quantity,
			unit_price_cents,
			line_total_cents,
			price_currency,
			created_at
		)
		SELECT
			order_id,
			product_id,
			size_variant_id,
			sku,
			product_name,
			size_label,
			quantity,
			unit_price_cents,
			line_total_cents,
			price_currency,
			created_at
		FROM unnest(
			$1::bigint[], $2::bigint[], $3::bigint[], $4::text[], $5::text[],
			$6::text[], $7::int[], $8::bigint[], $9::bigint[], $10::text[], $11::timestamptz[]
		)
		AS t(
			order_id, product_id, size_variant_id, sku, product_name,
			size_label, quantity, unit_price_cents, line_total_cents, price_currency, created_at
		)
		RETURNING
			id,
			order_id,
			product_id,
			size_variant_id,
			sku,
			product_name,
			size_label,
			quantity,
			unit_price_cents,
			line_total_cents,
			price_currency,
			created_at
	`

	orderIds := make([]int64, len(items))
	productIds := make([]int64, len(items))
	variantIds := make([]int64, len(items))
	skus := make([]string, len(items))
	names := make([]string, len(items))
	sizeLabels := make([]string, len(items))
	quantities := make([]int32, len(items))
	unitPrices := make([]int64, len(items))
	lineTotals := make([]int64, len(items))
	currencies := make([]string, len(items))
	createdAts := make([]time.Time, len(items))

	for i, item := range items {
		orderIds[i] = item.OrderID
		productIds[i] = item.ProductID
		variantIds[i] = item.SizeVariantID
		skus[i] = item.SKU
		names[i] = item.ProductName
		sizeLabels[i] = item.SizeLabel
		quantities[i] = int32(item.Quantity)
		unitPrices[i] = item.UnitPriceCents
		lineTotals[i] = item.LineTotalCents
		currencies[i] = item.PriceCurrency.String()
		createdAts[i] = item.CreatedAt
	}

	rows, err := r.conn.QueryxContext(ctx, sql,
		pq.Array(orderIds),
		pq.Array(productIds),
		pq.Array(variantIds),
		pq.Array(skus),
		pq.Array(names),
		pq.Array(sizeLabels),
		pq.Array(quantities),
		pq.Array(unitPrices),
		pq.Array(lineTotals),
		pq.Array(currencies),
		pq.Array(createdAts),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.StructScan(&dal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order item dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// ListByOrder returns the lines of one order in insertion order.
func (r *PostgresOrderItemRepository) ListByOrder(ctx context.Context, orderID int64) ([]orderitem.OrderItem, error) {
	sql := `
		SELECT
			id,
			order_id,
			product_id,
			size_variant_id,
			sku,
			product_name,
			size_label,
			quantity,
			unit_price_cents,
			line_total_cents,
			price_currency,
			created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.conn.QueryxContext(ctx, sql, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.StructScan(&dal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order item dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
