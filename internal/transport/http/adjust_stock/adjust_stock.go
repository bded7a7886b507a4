package adjuststock

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/weftwear/oms/internal/service/services/stocksvc"
	"github.com/weftwear/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	AdjustStock(ctx context.Context, variantID int64, delta int, reason string, actorID *int64) (stocksvc.AdjustResult, error)
}

// adjustStockRequest represents a manual stock adjustment request.
type adjustStockRequest struct {
	Delta   int    `json:"delta"`
	Reason  string `json:"reason" validate:"required"`
	ActorID *int64 `json:"actorId,omitempty"`
}

// Validate validates the adjust stock request.
func (r *adjustStockRequest) Validate() error {
	return validator.New().Struct(r)
}

// Adjust handles a manual stock adjustment request.
func Adjust(w http.ResponseWriter, r *http.Request, service service) {
	variantID, err := strconv.ParseInt(chi.URLParam(r, "variantID"), 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing variant id for stock adjustment", "error", err)

		return
	}

	req := adjustStockRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for stock adjustment", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for stock adjustment", "error", err)

		return
	}

	res, err := service.AdjustStock(r.Context(), variantID, req.Delta, req.Reason, req.ActorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error adjusting stock", "error", err)

		return
	}

	if !res.Success {
		respond.JSON(w, respond.StatusForReason(res.Reason), res)

		return
	}

	respond.JSON(w, http.StatusOK, res)
}
