package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculate(t *testing.T) {
	tot := Calculate([]Line{
		{Quantity: d("2"), UnitPrice: d("1500.50")},
		{Quantity: d("1"), UnitPrice: d("999.99")},
	}, d("10"), DefaultTaxRate)

	require.Len(t, tot.LineTotals, 2)
	assert.True(t, d("3001.00").Equal(tot.LineTotals[0]))
	assert.True(t, d("4000.99").Equal(tot.Subtotal), tot.Subtotal.String())
	assert.True(t, d("400.10").Equal(tot.DiscountAmount), tot.DiscountAmount.String())
	assert.True(t, d("720.18").Equal(tot.TaxAmount), tot.TaxAmount.String())
	assert.True(t, d("4321.07").Equal(tot.Total), tot.Total.String())
}

func TestCalculateRoundsLines(t *testing.T) {
	tot := Calculate([]Line{{Quantity: d("3"), UnitPrice: d("0.333")}}, decimal.Zero, decimal.Zero)
	assert.True(t, d("1.00").Equal(tot.LineTotals[0]))
	assert.True(t, d("1.00").Equal(tot.Total))
}

func TestCalculateEmpty(t *testing.T) {
	tot := Calculate(nil, d("5"), DefaultTaxRate)
	assert.True(t, tot.Total.IsZero())
	assert.Empty(t, tot.LineTotals)
}
