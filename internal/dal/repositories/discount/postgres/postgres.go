package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/weftwear/oms/internal/service/models/discount"
)

// DiscountCodeDal represents the discount code data access layer model.
type DiscountCodeDal struct {
	Id               int64      `db:"id"`
	Code             string     `db:"code"`
	Kind             string     `db:"kind"`
	ValueCents       int64      `db:"value_cents"`
	Percent          int64      `db:"percent"`
	MinSubtotalCents *int64     `db:"min_subtotal_cents"`
	UsageLimit       *int       `db:"usage_limit"`
	TimesUsed        int        `db:"times_used"`
	StartsAt         *time.Time `db:"starts_at"`
	EndsAt           *time.Time `db:"ends_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// ToModel converts DiscountCodeDal to the service layer model.
func (d *DiscountCodeDal) ToModel() (*discount.DiscountCode, error) {
	kind, err := discount.ParseKind(d.Kind)
	if err != nil {
		return nil, err
	}

	return &discount.DiscountCode{
		ID:               d.Id,
		Code:             d.Code,
		Kind:             kind,
		ValueCents:       d.ValueCents,
		Percent:          d.Percent,
		MinSubtotalCents: d.MinSubtotalCents,
		UsageLimit:       d.UsageLimit,
		TimesUsed:        d.TimesUsed,
		StartsAt:         d.StartsAt,
		EndsAt:           d.EndsAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

var discountColumns = []string{
	"id",
	"code",
	"kind",
	"value_cents",
	"percent",
	"min_subtotal_cents",
	"usage_limit",
	"times_used",
	"starts_at",
	"ends_at",
	"created_at",
	"updated_at",
}

type PostgresDiscountRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresDiscountRepository(conn sqlx.ExtContext) *PostgresDiscountRepository {
	return &PostgresDiscountRepository{
		conn: conn,
	}
}

// GetByCode looks a code up by its normalized form.
func (r *PostgresDiscountRepository) GetByCode(ctx context.Context, code string) (*discount.DiscountCode, error) {
	query, args, err := sq.Select(discountColumns...).
		From("discount_codes").
		Where(sq.Eq{"code": discount.NormalizeCode(code)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.getOne(ctx, query, args...)
}

func (r *PostgresDiscountRepository) GetByID(ctx context.Context, id int64) (*discount.DiscountCode, error) {
	query, args, err := sq.Select(discountColumns...).
		From("discount_codes").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.getOne(ctx, query, args...)
}

func (r *PostgresDiscountRepository) getOne(ctx context.Context, query string, args ...interface{}) (*discount.DiscountCode, error) {
	var dal DiscountCodeDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get discount code: %w", err)
	}

	model, err := dal.ToModel()
	if err != nil {
		return nil, fmt.Errorf("failed to convert discount dal to model: %w", err)
	}

	return model, nil
}

// IncrementUsage bumps times_used, gated by the usage limit in the same
// statement so concurrent checkouts cannot push a code past its limit.
// Returns whether the increment happened.
func (r *PostgresDiscountRepository) IncrementUsage(ctx context.Context, id int64) (bool, error) {
	query, args, err := sq.Update("discount_codes").
		Set("times_used", sq.Expr("times_used + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("(usage_limit IS NULL OR times_used < usage_limit)")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build increment query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to increment discount usage for %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// DecrementUsage returns a usage slot on cancellation, flooring at zero.
func (r *PostgresDiscountRepository) DecrementUsage(ctx context.Context, id int64) error {
	query, args, err := sq.Update("discount_codes").
		Set("times_used", sq.Expr("GREATEST(times_used - 1, 0)")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build decrement query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to decrement discount usage for %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("discount code %d not found", id)
	}

	return nil
}
