package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/models/payment"
)

// PaymentDal represents the payment data access layer model.
type PaymentDal struct {
	Id          int64     `db:"id"`
	OrderId     int64     `db:"order_id"`
	Provider    string    `db:"provider"`
	ProviderRef string    `db:"provider_ref"`
	Status      string    `db:"status"`
	AmountCents int64     `db:"amount_cents"`
	Currency    string    `db:"currency"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ToModel converts PaymentDal to the service layer model.
func (p *PaymentDal) ToModel() (*payment.Payment, error) {
	status, err := payment.ParseStatus(p.Status)
	if err != nil {
		return nil, err
	}
	cur, err := currency.ParseCurrency(p.Currency)
	if err != nil {
		return nil, err
	}

	return &payment.Payment{
		ID:          p.Id,
		OrderID:     p.OrderId,
		Provider:    p.Provider,
		ProviderRef: p.ProviderRef,
		Status:      status,
		AmountCents: p.AmountCents,
		Currency:    cur,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

var paymentColumns = []string{
	"id",
	"order_id",
	"provider",
	"provider_ref",
	"status",
	"amount_cents",
	"currency",
	"created_at",
	"updated_at",
}

type PostgresPaymentRepository struct {
	conn sqlx.ExtContext
}

func NewPostgresPaymentRepository(conn sqlx.ExtContext) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		conn: conn,
	}
}

// Insert records one payment attempt.
func (r *PostgresPaymentRepository) Insert(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	sql := `
		INSERT INTO payments (order_id, provider, provider_ref, status, amount_cents, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, order_id, provider, provider_ref, status, amount_cents, currency, created_at, updated_at
	`

	row := r.conn.QueryRowxContext(ctx, sql,
		p.OrderID,
		p.Provider,
		p.ProviderRef,
		p.Status.String(),
		p.AmountCents,
		p.Currency.String(),
		p.CreatedAt,
		p.UpdatedAt,
	)

	var dal PaymentDal
	if err := row.StructScan(&dal); err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	return dal.ToModel()
}

// HasSucceeded answers the transition guard "is there a successful
// payment on file for this order".
func (r *PostgresPaymentRepository) HasSucceeded(ctx context.Context, orderID int64) (bool, error) {
	query, args, err := sq.Select("1").
		From("payments").
		Where(sq.Eq{"order_id": orderID, "status": payment.StatusSucceeded.String()}).
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}

	var one int
	if err := sqlx.GetContext(ctx, r.conn, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check payment: %w", err)
	}

	return true, nil
}

// CancelPending moves all PENDING payments of an order to CANCELLED.
func (r *PostgresPaymentRepository) CancelPending(ctx context.Context, orderID int64) error {
	query, args, err := sq.Update("payments").
		Set("status", payment.StatusCancelled.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"order_id": orderID, "status": payment.StatusPending.String()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to cancel pending payments for order %d: %w", orderID, err)
	}

	return nil
}

// ListByOrder returns an order's payment attempts, oldest first.
func (r *PostgresPaymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]payment.Payment, error) {
	query, args, err := sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var result []payment.Payment
	for rows.Next() {
		var dal PaymentDal
		if err := rows.StructScan(&dal); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert payment dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
