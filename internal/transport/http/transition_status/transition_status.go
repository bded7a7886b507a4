package transitionstatus

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

	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/services/statussvc"
	"github.com/weftwear/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	TransitionOrderStatus(ctx context.Context, orderID int64, target order.Status, opts statussvc.TransitionOptions) (statussvc.TransitionResult, error)
	BulkTransitionOrders(ctx context.Context, orderIDs []int64, target order.Status, opts statussvc.BulkOptions) (statussvc.BulkResult, error)
	GetOrderValidTransitions(ctx context.Context, orderID int64) ([]order.Status, error)
}

// transitionRequest represents a single status transition request.
type transitionRequest struct {
	Status  string `json:"status" validate:"required"`
	Reason  string `json:"reason"`
	ActorID *int64 `json:"actorId,omitempty"`
	Force   bool   `json:"force"`
}

// Validate validates the transition request.
func (r *transitionRequest) Validate() error {
	return validator.New().Struct(r)
}

// bulkTransitionRequest represents a bulk status transition request.
type bulkTransitionRequest struct {
	OrderIDs    []int64 `json:"orderIds" validate:"required,min=1,dive,gt=0"`
	Status      string  `json:"status"   validate:"required"`
	Reason      string  `json:"reason"`
	ActorID     *int64  `json:"actorId,omitempty"`
	Force       bool    `json:"force"`
	StopOnError bool    `json:"stopOnError"`
}

// Validate validates the bulk transition request.
func (r *bulkTransitionRequest) Validate() error {
	return validator.New().Struct(r)
}

func orderIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
}

// Transition handles a single order status transition request.
func Transition(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := orderIDFromURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id for transition", "error", err)

		return
	}

	req := transitionRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for transition", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for transition", "error", err)

		return
	}

	target, err := order.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing target status for transition", "error", err)

		return
	}

	res, err := service.TransitionOrderStatus(r.Context(), orderID, target, statussvc.TransitionOptions{
		ActorID: req.ActorID,
		Reason:  req.Reason,
		Force:   req.Force,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error performing transition", "error", err)

		return
	}

	if !res.Success {
		respond.JSON(w, respond.StatusForReason(res.Reason), res)

		return
	}

	respond.JSON(w, http.StatusOK, res)
}

// BulkTransition handles a bulk order status transition request.
func BulkTransition(w http.ResponseWriter, r *http.Request, service service) {
	req := bulkTransitionRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for bulk transition", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for bulk transition", "error", err)

		return
	}

	target, err := order.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing target status for bulk transition", "error", err)

		return
	}

	res, err := service.BulkTransitionOrders(r.Context(), req.OrderIDs, target, statussvc.BulkOptions{
		TransitionOptions: statussvc.TransitionOptions{
			ActorID: req.ActorID,
			Reason:  req.Reason,
			Force:   req.Force,
		},
		StopOnError: req.StopOnError,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error performing bulk transition", "error", err)

		return
	}

	if res.Reason != "" {
		respond.JSON(w, respond.StatusForReason(res.Reason), res)

		return
	}

	respond.JSON(w, http.StatusOK, res)
}

// listTransitionsResponse represents the valid next statuses of an order.
type listTransitionsResponse struct {
	OrderID          int64          `json:"orderId"`
	ValidTransitions []order.Status `json:"validTransitions"`
}

// ListTransitions handles a valid-transitions lookup request.
func ListTransitions(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := orderIDFromURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id for transitions lookup", "error", err)

		return
	}

	transitions, err := service.GetOrderValidTransitions(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "order not found", http.StatusNotFound)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error getting valid transitions", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, listTransitionsResponse{
		OrderID:          orderID,
		ValidTransitions: transitions,
	})
}
