package statussvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/payment"
)

// RecordPaymentInput carries one payment attempt reported by the
// provider's webhook.
type RecordPaymentInput struct {
	OrderID     int64
	Provider    string
	ProviderRef string
	Status      payment.Status
	AmountCents int64
}

// RecordPaymentResult is the stored attempt plus, for a succeeded
// payment, the outcome of the PAID transition it triggered.
type RecordPaymentResult struct {
	Payment    *payment.Payment  `json:"payment"`
	Transition *TransitionResult `json:"transition,omitempty"`
}

func eventKindForPayment(status payment.Status) orderevent.Kind {
	switch status {
	case payment.StatusSucceeded:
		return orderevent.KindPaymentSucceeded
	case payment.StatusFailed:
		return orderevent.KindPaymentFailed
	default:
		return orderevent.KindPaymentAttempt
	}
}

type paymentMetadata struct {
	Provider    string `json:"provider"`
	ProviderRef string `json:"providerRef"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amountCents"`
}

// RecordPayment stores the attempt with its audit event in one
// transaction, then lets a succeeded payment drive the order to PAID
// through the regular transition path. A duplicate webhook for an
// already paid order resolves as a PAID self-transition no-op; the
// not-found condition propagates as sql.ErrNoRows from the order load.
func (s *StatusService) RecordPayment(ctx context.Context, input RecordPaymentInput) (RecordPaymentResult, error) {
	work := s.newUOW()

	ord, err := work.OrderRepository().GetByID(ctx, input.OrderID)
	if err != nil {
		return RecordPaymentResult{}, fmt.Errorf("failed to load order %d: %w", input.OrderID, err)
	}

	if err := work.Begin(ctx); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = work.Rollback()
	}()

	now := time.Now()
	stored, err := work.PaymentRepository().Insert(ctx, &payment.Payment{
		OrderID:     ord.ID,
		Provider:    input.Provider,
		ProviderRef: input.ProviderRef,
		Status:      input.Status,
		AmountCents: input.AmountCents,
		Currency:    ord.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return RecordPaymentResult{}, fmt.Errorf("failed to insert payment: %w", err)
	}

	metadata, err := json.Marshal(paymentMetadata{
		Provider:    input.Provider,
		ProviderRef: input.ProviderRef,
		Status:      input.Status.String(),
		AmountCents: input.AmountCents,
	})
	if err != nil {
		return RecordPaymentResult{}, err
	}

	_, err = work.EventRepository().Insert(ctx, &orderevent.OrderEvent{
		OrderID:   ord.ID,
		Kind:      eventKindForPayment(input.Status),
		Message:   fmt.Sprintf("payment %s via %s", input.Status, input.Provider),
		Metadata:  metadata,
		CreatedAt: now,
	})
	if err != nil {
		return RecordPaymentResult{}, fmt.Errorf("failed to append payment event: %w", err)
	}

	if err := work.Commit(); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	res := RecordPaymentResult{Payment: stored}
	if input.Status != payment.StatusSucceeded {
		return res, nil
	}

	transition, err := s.TransitionOrderStatus(ctx, ord.ID, order.StatusPaid, TransitionOptions{
		Reason: fmt.Sprintf("payment succeeded via %s", input.Provider),
	})
	if err != nil {
		return res, err
	}
	res.Transition = &transition

	return res, nil
}

// GetOrderPayments lists every recorded attempt for an order, newest
// first.
func (s *StatusService) GetOrderPayments(ctx context.Context, orderID int64) ([]payment.Payment, error) {
	work := s.newUOW()

	if _, err := work.OrderRepository().GetByID(ctx, orderID); err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}

	return work.PaymentRepository().ListByOrder(ctx, orderID)
}
