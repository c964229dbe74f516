package model

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fractional digits in a rounded amount.
const MoneyPlaces = 2

// Money is an amount already rounded half away from zero to MoneyPlaces.
// It encodes as a bare JSON number with exactly two decimals, e.g. 20.00,
// so the figure a consumer displays is the figure the engine summed.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d once and wraps it.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(MoneyPlaces)}
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.StringFixed(MoneyPlaces)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = NewMoney(d)
	return nil
}
