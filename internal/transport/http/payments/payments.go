package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/weftwear/oms/internal/service/models/payment"
	"github.com/weftwear/oms/internal/service/services/statussvc"
	"github.com/weftwear/oms/internal/transport/http/respond"
)

type service interface {
	RecordPayment(ctx context.Context, input statussvc.RecordPaymentInput) (statussvc.RecordPaymentResult, error)
	GetOrderPayments(ctx context.Context, orderID int64) ([]payment.Payment, error)
}

// webhookRequest is the provider's callback payload.
type webhookRequest struct {
	OrderID     int64  `json:"orderId"     validate:"gt=0"`
	Provider    string `json:"provider"    validate:"required"`
	ProviderRef string `json:"providerRef" validate:"required"`
	Status      string `json:"status"      validate:"required"`
	AmountCents int64  `json:"amountCents" validate:"gt=0"`
}

// Validate validates the webhook request.
func (r *webhookRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *webhookRequest) toModel() (statussvc.RecordPaymentInput, error) {
	status, err := payment.ParseStatus(r.Status)
	if err != nil {
		return statussvc.RecordPaymentInput{}, err
	}

	return statussvc.RecordPaymentInput{
		OrderID:     r.OrderID,
		Provider:    r.Provider,
		ProviderRef: r.ProviderRef,
		Status:      status,
		AmountCents: r.AmountCents,
	}, nil
}

// Webhook handles a payment result callback from the provider.
func Webhook(w http.ResponseWriter, r *http.Request, service service) {
	req := webhookRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding payment webhook body", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating payment webhook body", "error", err)

		return
	}

	input, err := req.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing payment webhook status", "error", err)

		return
	}

	res, err := service.RecordPayment(r.Context(), input)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "order not found", http.StatusNotFound)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error recording payment", "error", err)

		return
	}

	respond.JSON(w, http.StatusCreated, res)
}

// ListByOrder handles a payment history lookup for one order.
func ListByOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id for payments lookup", "error", err)

		return
	}

	attempts, err := service.GetOrderPayments(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "order not found", http.StatusNotFound)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing payments", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, attempts)
}
