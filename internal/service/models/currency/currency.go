package currency

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *Currency) Scan(src any) error {
	s, ok := src.(string)
	if !ok {
		return fmt.Errorf("%w: unexpected type %T", ErrInvalidCurrency, src)
	}

	parsed, err := ParseCurrency(s)
	if err != nil {
		return err
	}
	*c = parsed

	return nil
}

func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(s)) {
	case CurrencyGBP:
		return CurrencyGBP, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	case CurrencyEUR:
		return CurrencyEUR, nil
	default:
		return "", ErrInvalidCurrency
	}
}
