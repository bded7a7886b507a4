package rates

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/weftwear/oms/internal/service/models/currency"
	"github.com/weftwear/oms/internal/service/models/money"
)

// AdjustmentFreeShipping marks a shipping waiver granted because the
// order met the free-shipping threshold.
const AdjustmentFreeShipping = "FREE_SHIPPING_THRESHOLD"

// Line is one cart line in a draft: snapshot unit price times quantity.
type Line struct {
	ProductID      int64 `json:"productId"`
	SizeVariantID  int64 `json:"sizeVariantId"`
	UnitPriceCents int64 `json:"unitPriceCents"`
	Qty            int   `json:"qty"`
}

// Destination is where the order ships to. Region is a state or province
// code and may be empty for countries without regional rates.
type Destination struct {
	Country    string `json:"country"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Draft is the ephemeral input to a rate calculation, assembled once from
// cart plus destination and consumed once. It is never persisted.
type Draft struct {
	Lines         []Line
	Destination   Destination
	Currency      currency.Currency
	SubtotalCents int64
	DiscountCents int64
}

// TaxableCents is the base the tax and the free-shipping threshold are
// applied to: subtotal after discount.
func (d Draft) TaxableCents() int64 {
	taxable := d.SubtotalCents - d.DiscountCents
	if taxable < 0 {
		return 0
	}

	return taxable
}

// UnitCount is the total number of physical units across all lines.
func (d Draft) UnitCount() int {
	n := 0
	for _, l := range d.Lines {
		n += l.Qty
	}

	return n
}

// Adjustment records a non-standard pricing decision in the breakdown.
type Adjustment struct {
	Reason      string `json:"reason"`
	AmountCents *int64 `json:"amountCents,omitempty"`
}

// Breakdown explains how a quote was computed.
type Breakdown struct {
	PricesIncludeTax bool         `json:"pricesIncludeTax"`
	TaxRateBp        int64        `json:"taxRateBp"`
	Adjustments      []Adjustment `json:"adjustments"`
}

// Quote is the result of a rate calculation, in integer cents.
// In inclusive mode TaxCents is a reported portion of the subtotal and
// must not be added to the total.
type Quote struct {
	TaxCents      int64     `json:"taxCents"`
	ShippingCents int64     `json:"shippingCents"`
	Breakdown     Breakdown `json:"breakdown"`
}

// TaxRate binds a country (and optionally a region within it) to a rate
// in basis points. A row with an empty region is the country-wide rate.
type TaxRate struct {
	Country string
	Region  string
	RateBp  int64
}

// ShippingRate is a country's base cost plus a surcharge per unit beyond
// the first.
type ShippingRate struct {
	BaseCents         int64
	PerExtraItemCents int64
}

// Config holds the static rate tables. It is immutable once handed to a
// Calculator.
type Config struct {
	BaseCurrency               currency.Currency
	InclusiveCurrencies        []currency.Currency
	TaxRates                   []TaxRate
	ShippingRates              map[string]ShippingRate
	DefaultShippingRate        ShippingRate
	FreeShippingThresholdCents int64
}

// DefaultConfig returns the compiled-in rate tables. Viper keys under
// "rates" override pieces of it, see LoadConfig.
func DefaultConfig() Config {
	return Config{
		BaseCurrency:        currency.CurrencyGBP,
		InclusiveCurrencies: nil,
		TaxRates: []TaxRate{
			{Country: "GB", RateBp: 2000},
			{Country: "US", Region: "CA", RateBp: 725},
			{Country: "US", Region: "NY", RateBp: 875},
			{Country: "DE", RateBp: 1900},
		},
		ShippingRates: map[string]ShippingRate{
			"US": {BaseCents: 599, PerExtraItemCents: 100},
			"GB": {BaseCents: 499, PerExtraItemCents: 100},
		},
		DefaultShippingRate:        ShippingRate{BaseCents: 999, PerExtraItemCents: 150},
		FreeShippingThresholdCents: 15000,
	}
}

// LoadConfig starts from DefaultConfig and applies viper overrides for
// the knobs operators actually tune.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if viper.IsSet("rates.free_shipping_threshold_cents") {
		cfg.FreeShippingThresholdCents = viper.GetInt64("rates.free_shipping_threshold_cents")
	}
	for _, cur := range viper.GetStringSlice("rates.inclusive_currencies") {
		parsed, err := currency.ParseCurrency(cur)
		if err != nil {
			continue
		}
		cfg.InclusiveCurrencies = append(cfg.InclusiveCurrencies, parsed)
	}

	return cfg
}

// IsInclusive classifies a currency: the base currency always carries
// inclusive pricing, other currencies only when allow-listed.
func (c Config) IsInclusive(cur currency.Currency) bool {
	if cur == c.BaseCurrency {
		return true
	}
	for _, allowed := range c.InclusiveCurrencies {
		if cur == allowed {
			return true
		}
	}

	return false
}

// taxRateFor looks up the rate for a destination, preferring an exact
// country+region row over the country-wide one. Unknown destinations are
// untaxed.
func (c Config) taxRateFor(dest Destination) int64 {
	country := strings.ToUpper(dest.Country)
	region := strings.ToUpper(dest.Region)

	countryWide := int64(0)
	for _, r := range c.TaxRates {
		if r.Country != country {
			continue
		}
		if r.Region != "" && r.Region == region {
			return r.RateBp
		}
		if r.Region == "" {
			countryWide = r.RateBp
		}
	}

	return countryWide
}

func (c Config) shippingRateFor(dest Destination) ShippingRate {
	if r, ok := c.ShippingRates[strings.ToUpper(dest.Country)]; ok {
		return r
	}

	return c.DefaultShippingRate
}

// Calculator computes tax and shipping quotes. It holds only static
// configuration and performs no I/O.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

var (
	ErrNoLines        = errors.New("draft has no lines")
	ErrNoDestination  = errors.New("draft has no destination country")
	ErrBadLine        = errors.New("draft line has non-positive quantity or negative price")
	ErrDiscountBounds = errors.New("draft discount is negative")
)

// DraftInput is the raw material for a draft, as received from the cart.
type DraftInput struct {
	Lines         []Line
	Destination   Destination
	Currency      currency.Currency
	DiscountCents int64
}

// BuildDraftFromCart validates cart input and derives the subtotal.
// Rejected input never reaches Calculate.
func (c *Calculator) BuildDraftFromCart(input DraftInput) (Draft, error) {
	if len(input.Lines) == 0 {
		return Draft{}, ErrNoLines
	}
	if strings.TrimSpace(input.Destination.Country) == "" {
		return Draft{}, ErrNoDestination
	}
	if _, err := currency.ParseCurrency(input.Currency.String()); err != nil {
		return Draft{}, err
	}
	if input.DiscountCents < 0 {
		return Draft{}, ErrDiscountBounds
	}

	subtotal := int64(0)
	for i, l := range input.Lines {
		if l.Qty <= 0 || l.UnitPriceCents < 0 {
			return Draft{}, fmt.Errorf("%w: line %d", ErrBadLine, i)
		}
		subtotal += l.UnitPriceCents * int64(l.Qty)
	}

	return Draft{
		Lines:         input.Lines,
		Destination:   input.Destination,
		Currency:      input.Currency,
		SubtotalCents: subtotal,
		DiscountCents: input.DiscountCents,
	}, nil
}

// Calculate produces the tax and shipping quote for a draft.
//
// Exclusive mode computes tax on top of the taxable subtotal. Inclusive
// mode back-calculates the tax portion already contained in the prices
// and reports it without adding it. Each derived amount is rounded
// exactly once, at the subtotal level.
func (c *Calculator) Calculate(draft Draft) Quote {
	taxable := draft.TaxableCents()
	rateBp := c.cfg.taxRateFor(draft.Destination)
	inclusive := c.cfg.IsInclusive(draft.Currency)

	var taxCents int64
	if inclusive {
		taxCents = taxable - money.NetFromGross(taxable, rateBp)
	} else {
		taxCents = money.ApplyBasisPoints(taxable, rateBp)
	}

	shippingCents, adjustments := c.shipping(draft, taxable)

	return Quote{
		TaxCents:      taxCents,
		ShippingCents: shippingCents,
		Breakdown: Breakdown{
			PricesIncludeTax: inclusive,
			TaxRateBp:        rateBp,
			Adjustments:      adjustments,
		},
	}
}

func (c *Calculator) shipping(draft Draft, taxable int64) (int64, []Adjustment) {
	rate := c.cfg.shippingRateFor(draft.Destination)

	cost := rate.BaseCents
	if extra := draft.UnitCount() - 1; extra > 0 {
		cost += int64(extra) * rate.PerExtraItemCents
	}

	if taxable >= c.cfg.FreeShippingThresholdCents {
		waived := -cost
		return 0, []Adjustment{{Reason: AdjustmentFreeShipping, AmountCents: &waived}}
	}

	return cost, []Adjustment{}
}
