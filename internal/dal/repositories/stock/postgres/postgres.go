package postgresrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/weftwear/oms/internal/service/models/stock"
)

// SizeVariantDal represents the size variant data access layer model.
type SizeVariantDal struct {
	Id        int64     `db:"id"`
	ProductId int64     `db:"product_id"`
	Sku       string    `db:"sku"`
	SizeLabel string    `db:"size_label"`
	Stock     int       `db:"stock"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToModel converts SizeVariantDal to the service layer model.
func (v *SizeVariantDal) ToModel() *stock.SizeVariant {
	return &stock.SizeVariant{
		ID:        v.Id,
		ProductID: v.ProductId,
		SKU:       v.Sku,
		SizeLabel: v.SizeLabel,
		Stock:     v.Stock,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

type PostgresStockRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresStockRepository(conn sqlx.ExtContext) *PostgresStockRepository {
	return &PostgresStockRepository{
		conn: conn,
	}
}

// DecrementStock reduces a variant's stock by qty in one conditional
// statement. The WHERE stock >= qty clause plus the affected-row check is
// what makes concurrent decrements safe; a separate SELECT would admit a
// lost-update race.
func (r *PostgresStockRepository) DecrementStock(ctx context.Context, variantID int64, qty int) (bool, error) {
	query, args, err := sq.Update("size_variants").
		Set("stock", sq.Expr("stock - ?", qty)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": variantID}).
		Where(sq.Expr("stock >= ?", qty)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build decrement query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock for variant %d: %w", variantID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// IncrementStock raises a variant's stock by qty. Fails if the variant
// does not exist.
func (r *PostgresStockRepository) IncrementStock(ctx context.Context, variantID int64, qty int) error {
	query, args, err := sq.Update("size_variants").
		Set("stock", sq.Expr("stock + ?", qty)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": variantID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build increment query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to increment stock for variant %d: %w", variantID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("size variant %d: %w", variantID, sql.ErrNoRows)
	}

	return nil
}

// GetByID loads one size variant.
func (r *PostgresStockRepository) GetByID(ctx context.Context, variantID int64) (*stock.SizeVariant, error) {
	query, args, err := sq.Select(
		"id",
		"product_id",
		"sku",
		"size_label",
		"stock",
		"created_at",
		"updated_at",
	).
		From("size_variants").
		Where(sq.Eq{"id": variantID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal SizeVariantDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get size variant %d: %w", variantID, err)
	}

	return dal.ToModel(), nil
}
