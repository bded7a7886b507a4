package quoterates

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/rates"
	"github.com/weftwear/oms/internal/transport/http/respond"
)

// calculator is an interface for the rate calculator.
type calculator interface {
	BuildDraftFromCart(input rates.DraftInput) (rates.Draft, error)
	Calculate(draft rates.Draft) rates.Quote
}

// quoteRequest represents a standalone rate quote request. No order is
// created and no stock is touched.
type quoteRequest struct {
	Lines         []rates.Line      `json:"lines"         validate:"required,min=1,dive"`
	Destination   rates.Destination `json:"destination"`
	Currency      string            `json:"currency"      validate:"required"`
	DiscountCents int64             `json:"discountCents"`
}

// Validate validates the quote request.
func (r *quoteRequest) Validate() error {
	return validator.New().Struct(r)
}

// Quote handles a standalone rate quote request.
func Quote(w http.ResponseWriter, r *http.Request, calc calculator) {
	req := quoteRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for rate quote", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for rate quote", "error", err)

		return
	}

	cur, err := currency.ParseCurrency(req.Currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing currency for rate quote", "error", err)

		return
	}

	draft, err := calc.BuildDraftFromCart(rates.DraftInput{
		Lines:         req.Lines,
		Destination:   req.Destination,
		Currency:      cur,
		DiscountCents: req.DiscountCents,
	})
	if err != nil {
		if errors.Is(err, rates.ErrNoLines) ||
			errors.Is(err, rates.ErrNoDestination) ||
			errors.Is(err, rates.ErrBadLine) ||
			errors.Is(err, rates.ErrDiscountBounds) {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error building draft for rate quote", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, calc.Calculate(draft))
}
