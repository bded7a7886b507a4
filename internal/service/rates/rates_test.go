package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwear/oms/internal/service/models/currency"
)

func newTestCalculator() *Calculator {
	return NewCalculator(DefaultConfig())
}

func TestBuildDraftFromCart(t *testing.T) {
	calc := newTestCalculator()

	t.Run("derives subtotal from lines", func(t *testing.T) {
		draft, err := calc.BuildDraftFromCart(DraftInput{
			Lines: []Line{
				{SizeVariantID: 1, UnitPriceCents: 4500, Qty: 2},
				{SizeVariantID: 2, UnitPriceCents: 1000, Qty: 1},
			},
			Destination: Destination{Country: "GB"},
			Currency:    currency.CurrencyGBP,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10000), draft.SubtotalCents)
		assert.Equal(t, 3, draft.UnitCount())
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		_, err := calc.BuildDraftFromCart(DraftInput{
			Destination: Destination{Country: "GB"},
			Currency:    currency.CurrencyGBP,
		})
		assert.ErrorIs(t, err, ErrNoLines)
	})

	t.Run("rejects missing destination", func(t *testing.T) {
		_, err := calc.BuildDraftFromCart(DraftInput{
			Lines:    []Line{{UnitPriceCents: 1000, Qty: 1}},
			Currency: currency.CurrencyGBP,
		})
		assert.ErrorIs(t, err, ErrNoDestination)
	})

	t.Run("rejects zero quantity line", func(t *testing.T) {
		_, err := calc.BuildDraftFromCart(DraftInput{
			Lines:       []Line{{UnitPriceCents: 1000, Qty: 0}},
			Destination: Destination{Country: "GB"},
			Currency:    currency.CurrencyGBP,
		})
		assert.ErrorIs(t, err, ErrBadLine)
	})

	t.Run("rejects negative discount", func(t *testing.T) {
		_, err := calc.BuildDraftFromCart(DraftInput{
			Lines:         []Line{{UnitPriceCents: 1000, Qty: 1}},
			Destination:   Destination{Country: "GB"},
			Currency:      currency.CurrencyGBP,
			DiscountCents: -1,
		})
		assert.ErrorIs(t, err, ErrDiscountBounds)
	})

	t.Run("rejects unknown currency", func(t *testing.T) {
		_, err := calc.BuildDraftFromCart(DraftInput{
			Lines:       []Line{{UnitPriceCents: 1000, Qty: 1}},
			Destination: Destination{Country: "GB"},
			Currency:    currency.Currency("JPY"),
		})
		assert.Error(t, err)
	})
}

func TestCalculateInclusiveVAT(t *testing.T) {
	calc := newTestCalculator()

	// £60.00 tax-inclusive at 20% VAT: £10.00 of it is tax, and the tax
	// is reported without being added on top.
	quote := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 6000, Qty: 1}},
		Destination:   Destination{Country: "GB"},
		Currency:      currency.CurrencyGBP,
		SubtotalCents: 6000,
	})

	assert.Equal(t, int64(1000), quote.TaxCents)
	assert.True(t, quote.Breakdown.PricesIncludeTax)
	assert.Equal(t, int64(2000), quote.Breakdown.TaxRateBp)
	assert.Equal(t, int64(499), quote.ShippingCents)
}

func TestCalculateExclusiveTax(t *testing.T) {
	calc := newTestCalculator()

	// $80.00 shipped to California: 7.25% sales tax on top.
	quote := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 8000, Qty: 1}},
		Destination:   Destination{Country: "US", Region: "CA"},
		Currency:      currency.CurrencyUSD,
		SubtotalCents: 8000,
	})

	assert.Equal(t, int64(580), quote.TaxCents)
	assert.False(t, quote.Breakdown.PricesIncludeTax)
	assert.Equal(t, int64(725), quote.Breakdown.TaxRateBp)
}

func TestRegionalRatePreferredOverCountryWide(t *testing.T) {
	calc := newTestCalculator()

	ny := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 10000, Qty: 1}},
		Destination:   Destination{Country: "US", Region: "NY"},
		Currency:      currency.CurrencyUSD,
		SubtotalCents: 10000,
	})
	assert.Equal(t, int64(875), ny.Breakdown.TaxRateBp)

	// No country-wide US row exists, so a region without its own rate
	// is untaxed.
	tx := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 10000, Qty: 1}},
		Destination:   Destination{Country: "US", Region: "TX"},
		Currency:      currency.CurrencyUSD,
		SubtotalCents: 10000,
	})
	assert.Equal(t, int64(0), tx.TaxCents)
}

func TestUnknownDestinationUntaxed(t *testing.T) {
	calc := newTestCalculator()

	quote := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 10000, Qty: 1}},
		Destination:   Destination{Country: "FR"},
		Currency:      currency.CurrencyEUR,
		SubtotalCents: 10000,
	})

	assert.Equal(t, int64(0), quote.TaxCents)
	assert.Equal(t, int64(999), quote.ShippingCents)
}

func TestShippingPerExtraItem(t *testing.T) {
	calc := newTestCalculator()

	// Two units to the US: $5.99 base plus $1.00 for the second unit.
	quote := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 4000, Qty: 2}},
		Destination:   Destination{Country: "US", Region: "CA"},
		Currency:      currency.CurrencyUSD,
		SubtotalCents: 8000,
	})

	assert.Equal(t, int64(699), quote.ShippingCents)
	assert.Empty(t, quote.Breakdown.Adjustments)
}

func TestFreeShippingThreshold(t *testing.T) {
	calc := newTestCalculator()

	quote := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 15000, Qty: 1}},
		Destination:   Destination{Country: "GB"},
		Currency:      currency.CurrencyGBP,
		SubtotalCents: 15000,
	})

	assert.Equal(t, int64(0), quote.ShippingCents)
	require.Len(t, quote.Breakdown.Adjustments, 1)
	adj := quote.Breakdown.Adjustments[0]
	assert.Equal(t, AdjustmentFreeShipping, adj.Reason)
	require.NotNil(t, adj.AmountCents)
	assert.Equal(t, int64(-499), *adj.AmountCents)
}

func TestDiscountLowersTaxableBase(t *testing.T) {
	calc := newTestCalculator()

	// A discount pulls the order below the free-shipping threshold and
	// shrinks the tax base with it.
	quote := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 15000, Qty: 1}},
		Destination:   Destination{Country: "US", Region: "CA"},
		Currency:      currency.CurrencyUSD,
		SubtotalCents: 15000,
		DiscountCents: 1000,
	})

	assert.Equal(t, int64(1015), quote.TaxCents)
	assert.Equal(t, int64(599), quote.ShippingCents)
}

func TestInclusiveAllowList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InclusiveCurrencies = []currency.Currency{currency.CurrencyEUR}
	calc := NewCalculator(cfg)

	// €119.00 to Germany at 19% VAT contains €19.00 of tax.
	quote := calc.Calculate(Draft{
		Lines:         []Line{{UnitPriceCents: 11900, Qty: 1}},
		Destination:   Destination{Country: "DE"},
		Currency:      currency.CurrencyEUR,
		SubtotalCents: 11900,
	})

	assert.True(t, quote.Breakdown.PricesIncludeTax)
	assert.Equal(t, int64(1900), quote.TaxCents)
}
