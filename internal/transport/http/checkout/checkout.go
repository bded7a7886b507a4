package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/rates"
	"github.com/weftwear/oms/internal/service/services/checkoutsvc"
	"github.com/weftwear/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	Checkout(ctx context.Context, input checkoutsvc.CheckoutInput) (checkoutsvc.CheckoutResult, error)
}

// lineInCheckoutRequest represents one cart line in a checkout request.
type lineInCheckoutRequest struct {
	ProductID      int64  `json:"productId"      validate:"gt=0"`
	SizeVariantID  int64  `json:"sizeVariantId"  validate:"gt=0"`
	SKU            string `json:"sku"            validate:"required"`
	ProductName    string `json:"productName"    validate:"required"`
	SizeLabel      string `json:"sizeLabel"      validate:"required"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"gt=0"`
	Qty            int    `json:"qty"            validate:"gt=0"`
}

func (r *lineInCheckoutRequest) toModel() checkoutsvc.CheckoutLine {
	return checkoutsvc.CheckoutLine{
		ProductID:      r.ProductID,
		SizeVariantID:  r.SizeVariantID,
		SKU:            r.SKU,
		ProductName:    r.ProductName,
		SizeLabel:      r.SizeLabel,
		UnitPriceCents: r.UnitPriceCents,
		Qty:            r.Qty,
	}
}

// checkoutRequest represents a checkout request.
type checkoutRequest struct {
	UserID       *int64                  `json:"userId,omitempty"`
	Lines        []lineInCheckoutRequest `json:"lines"        validate:"required,min=1,dive"`
	Destination  rates.Destination       `json:"destination"`
	Currency     string                  `json:"currency"     validate:"required"`
	DiscountCode string                  `json:"discountCode"`
}

// Validate validates the checkout request.
func (r *checkoutRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *checkoutRequest) toModel() (checkoutsvc.CheckoutInput, error) {
	cur, err := currency.ParseCurrency(r.Currency)
	if err != nil {
		return checkoutsvc.CheckoutInput{}, err
	}

	lines := make([]checkoutsvc.CheckoutLine, len(r.Lines))
	for i := range r.Lines {
		lines[i] = r.Lines[i].toModel()
	}

	return checkoutsvc.CheckoutInput{
		UserID:       r.UserID,
		Lines:        lines,
		Destination:  r.Destination,
		Currency:     cur,
		DiscountCode: r.DiscountCode,
	}, nil
}

// Checkout handles the checkout request.
func Checkout(w http.ResponseWriter, r *http.Request, service service) {
	req := checkoutRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for checkout", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for checkout", "error", err)

		return
	}

	input, err := req.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error converting checkout request to model", "error", err)

		return
	}

	res, err := service.Checkout(r.Context(), input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error performing checkout", "error", err)

		return
	}

	if !res.Success {
		respond.JSON(w, respond.StatusForReason(res.Reason), res)

		return
	}

	respond.JSON(w, http.StatusCreated, res)
}
