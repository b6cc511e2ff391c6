package split

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEven(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{"three ways with remainder", "100", 3, []string{"33.34", "33.33", "33.33"}},
		{"divides evenly", "90", 3, []string{"30", "30", "30"}},
		{"single participant", "12.34", 1, []string{"12.34"}},
		{"zero total", "0", 4, []string{"0", "0", "0", "0"}},
		{"two cents over three", "0.02", 3, []string{"0.01", "0.01", "0"}},
		{"seven ways", "10", 7, []string{"1.43", "1.43", "1.43", "1.43", "1.43", "1.43", "1.42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Even(decimal.RequireFromString(tt.total), tt.n)
			require.NoError(t, err)
			require.Len(t, shares, len(tt.want))
			for i, w := range tt.want {
				assert.True(t, decimal.RequireFromString(w).Equal(shares[i]), "share %d = %s, want %s", i, shares[i], w)
			}
		})
	}
}

func TestEvenSumsToTotal(t *testing.T) {
	totals := []string{"0", "0.01", "1", "99.99", "100", "123.45", "1000000.07"}
	for _, ts := range totals {
		total := decimal.RequireFromString(ts)
		for n := 1; n <= 13; n++ {
			shares, err := Even(total, n)
			require.NoError(t, err)
			assert.True(t, sum(shares).Equal(total), "total %s over %d: sum %s", ts, n, sum(shares))

			// No two shares differ by more than one cent.
			lo, hi := shares[0], shares[0]
			for _, s := range shares {
				lo = decimal.Min(lo, s)
				hi = decimal.Max(hi, s)
			}
			assert.True(t, hi.Sub(lo).LessThanOrEqual(decimal.New(1, -Scale)))
		}
	}
}

func TestEvenLargeTotals(t *testing.T) {
	totals := []string{"92233720368547758.07", "92233720368547758.08", "100000000000000000000", "123456789012345678901.99"}
	for _, ts := range totals {
		total := decimal.RequireFromString(ts)
		for _, n := range []int{1, 3, 7, 1000} {
			shares, err := Even(total, n)
			require.NoError(t, err)
			require.Len(t, shares, n)
			assert.True(t, sum(shares).Equal(total), "total %s over %d: sum %s", ts, n, sum(shares))
			assert.False(t, shares[n-1].IsNegative())
		}
	}

	shares, err := Even(decimal.RequireFromString("100000000000000000000"), 3)
	require.NoError(t, err)
	assert.Equal(t, "33333333333333333333.34", shares[0].StringFixed(Scale))
	assert.Equal(t, "33333333333333333333.33", shares[2].StringFixed(Scale))
}

func TestEvenErrors(t *testing.T) {
	_, err := Even(decimal.NewFromInt(10), 0)
	assert.ErrorIs(t, err, ErrNoParticipants)

	_, err = Even(decimal.NewFromInt(-1), 2)
	assert.ErrorIs(t, err, ErrNegativeTotal)

	_, err = Even(decimal.RequireFromString("1.005"), 2)
	assert.ErrorIs(t, err, ErrTooPrecise)
}

func TestValidAmount(t *testing.T) {
	assert.True(t, ValidAmount(decimal.RequireFromString("10.50")))
	assert.True(t, ValidAmount(decimal.RequireFromString("7")))
	assert.False(t, ValidAmount(decimal.RequireFromString("0.001")))

	assert.True(t, ValidAmount(MaxAmount))
	assert.False(t, ValidAmount(MaxAmount.Add(decimal.New(1, -Scale))))
	assert.False(t, ValidAmount(decimal.RequireFromString("100000000000000000000")))
}

func sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
