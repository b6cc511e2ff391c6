// Package split divides monetary totals across participants.
//
// Amounts are handled in cents so that the shares of a split always add up to
// the original total. Remainder cents go to the first participants in order.
package split

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept for money.
const Scale = 2

// MaxAmount is the largest amount accepted anywhere in the system. It keeps
// every stored value well inside BSON Decimal128 precision.
var MaxAmount = decimal.New(1, 12)

var (
	ErrNoParticipants = errors.New("must have at least one participant")
	ErrNegativeTotal  = errors.New("total cannot be negative")
	ErrTooPrecise     = fmt.Errorf("amount cannot have more than %d decimal places", Scale)
)

func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// ValidAmount reports whether d fits the money scale and does not exceed
// MaxAmount in magnitude.
func ValidAmount(d decimal.Decimal) bool {
	return fitsScale(d) && d.Abs().LessThanOrEqual(MaxAmount)
}

// Even splits total across n participants.
// Based on the largest remainder method: each share is floor(cents / n) and the
// first (cents mod n) shares get one extra cent. The division stays in decimal
// so the shares add up to total exactly, whatever its size.
func Even(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, ErrNoParticipants
	}
	if total.IsNegative() {
		return nil, ErrNegativeTotal
	}
	if !fitsScale(total) {
		return nil, ErrTooPrecise
	}

	cents := total.Shift(Scale)
	base, rem := cents.QuoRem(decimal.NewFromInt(int64(n)), 0)
	extra := int(rem.IntPart())
	plusOne := base.Add(decimal.NewFromInt(1))

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		c := base
		if i < extra {
			c = plusOne
		}
		shares[i] = c.Shift(-Scale)
	}
	return shares, nil
}
