package quoterates

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwear/oms/internal/service/rates"
)

func doQuote(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	calc := rates.NewCalculator(rates.DefaultConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/rates/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Quote(rec, req, calc)

	return rec
}

func TestQuote(t *testing.T) {
	body := `{
		"lines": [{"productId": 1, "sizeVariantId": 2, "unitPriceCents": 8000, "qty": 1}],
		"destination": {"country": "US", "region": "CA"},
		"currency": "USD"
	}`

	rec := doQuote(t, body)

	require.Equal(t, http.StatusOK, rec.Code)
	var quote rates.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, int64(580), quote.TaxCents)
	assert.Equal(t, int64(599), quote.ShippingCents)
	assert.False(t, quote.Breakdown.PricesIncludeTax)
}

func TestQuoteRejectsEmptyCart(t *testing.T) {
	rec := doQuote(t, `{"lines": [], "destination": {"country": "GB"}, "currency": "GBP"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteRejectsUnknownCurrency(t *testing.T) {
	body := `{
		"lines": [{"productId": 1, "sizeVariantId": 2, "unitPriceCents": 8000, "qty": 1}],
		"destination": {"country": "GB"},
		"currency": "JPY"
	}`

	rec := doQuote(t, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
