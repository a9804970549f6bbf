package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"0.125", "0.13"},
		{"-0.125", "-0.13"},
		{"3", "3.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(Round(dec(tt.in))))
		})
	}
}

func TestSubtotal(t *testing.T) {
	assert.Equal(t, "30.00", Format(Subtotal(dec("10.00"), 3)))
	assert.Equal(t, "10.01", Format(Subtotal(dec("5.005"), 2)))
	assert.Equal(t, "0.00", Format(Subtotal(dec("0"), 9)))
}

func TestBreakdown(t *testing.T) {
	totals := Breakdown(dec("100.00"), 10, 21)

	assert.Equal(t, "100.00", Format(totals.Gross))
	assert.Equal(t, "90.00", Format(totals.Base))
	assert.Equal(t, "18.90", Format(totals.Tax))
	assert.Equal(t, "108.90", Format(totals.Total))
}

func TestBreakdownRoundsEachStep(t *testing.T) {
	// base 33.33 * 21% = 6.9993 -> 7.00; total 40.33
	totals := Breakdown(dec("33.33"), 0, 21)
	assert.Equal(t, "7.00", Format(totals.Tax))
	assert.Equal(t, "40.33", Format(totals.Total))

	// 0.15 * 95% = 0.1425 -> 0.14
	totals = Breakdown(dec("0.15"), 5, 0)
	assert.Equal(t, "0.14", Format(totals.Base))
}

func TestBreakdownIsPure(t *testing.T) {
	first := Breakdown(dec("1234.56"), 7, 21)
	second := Breakdown(dec("1234.56"), 7, 21)

	assert.True(t, first.Base.Equal(second.Base))
	assert.True(t, first.Tax.Equal(second.Tax))
	assert.True(t, first.Total.Equal(second.Total))
}

func TestParse(t *testing.T) {
	d, err := Parse(" 12,5 ")
	require.NoError(t, err)
	assert.Equal(t, "12.50", Format(d))

	d, err = Parse("7.25")
	require.NoError(t, err)
	assert.Equal(t, "7.25", Format(d))

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("1.234,56")
	assert.Error(t, err)

	_, err = Parse("abc")
	assert.Error(t, err)
}

func TestLinePriceKeepsFourDigits(t *testing.T) {
	tests := map[string]string{
		"0.123456789": "0.1235",
		"5.005":       "5.005",
		"10.00004":    "10",
		"2.99995":     "3",
	}
	for in, want := range tests {
		assert.True(t, dec(want).Equal(LinePrice(dec(in))), "%s -> %s", in, LinePrice(dec(in)))
	}
}
