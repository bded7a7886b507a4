package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/weftwear/oms/internal/service/models/result"
)

// JSON writes v as a JSON body with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// StatusForReason maps a refusal reason to an HTTP status code. State
// conflicts are 409, temporal and eligibility refusals are 422, bad
// input and unknown reasons are 400.
func StatusForReason(reason result.Reason) int {
	switch reason {
	case result.ReasonNotFound:
		return http.StatusNotFound
	case result.ReasonInvalidTransition,
		result.ReasonGuardFailed,
		result.ReasonInsufficientStock,
		result.ReasonUsageLimitExceeded:
		return http.StatusConflict
	case result.ReasonNotStarted,
		result.ReasonExpired,
		result.ReasonMinSubtotal:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
