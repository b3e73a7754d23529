// Package money provides an exact decimal amount used for every price,
// discount and total in the shop. Values are never converted to float.
package money

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// displayPlaces is the minimum number of fractional digits in String.
const displayPlaces = 2

// Money is an immutable decimal amount. The zero value is 0.
type Money struct {
	d decimal.Decimal
}

func Zero() Money {
	return Money{d: decimal.Zero}
}

func New(d decimal.Decimal) Money {
	return Money{d: d}
}

func FromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// FromCents builds an amount from minor units, e.g. 1999 -> 19.99.
func FromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// Parse reads a decimal string such as "19.99".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// Mul multiplies by an arbitrary decimal scalar such as a discount fraction.
func (m Money) Mul(scalar decimal.Decimal) Money {
	return Money{d: m.d.Mul(scalar)}
}

// MulInt multiplies by an integer quantity.
func (m Money) MulInt(n int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(n))}
}

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Equal compares numerically, so 25 equals 25.00.
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String renders at least two fractional digits and never rounds away
// precision the value actually carries.
func (m Money) String() string {
	s := m.d.String()
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > displayPlaces {
		return s
	}
	return m.d.StringFixed(displayPlaces)
}

// MarshalJSON encodes as a quoted decimal string so clients never parse a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.d.UnmarshalJSON(b)
}

// Value implements driver.Valuer for NUMERIC columns.
func (m Money) Value() (driver.Value, error) {
	return m.d.Value()
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src any) error {
	return m.d.Scan(src)
}

// Sum adds a list of amounts.
func Sum(amounts ...Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
