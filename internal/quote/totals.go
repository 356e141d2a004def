package quote

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate KDV oranı (%).
var DefaultTaxRate = decimal.NewFromInt(20)

var hundred = decimal.NewFromInt(100)

type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type Totals struct {
	LineTotals     []decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// Calculate kalem, iskonto ve KDV toplamlarını kuruş hassasiyetinde hesaplar.
// İskonto ara toplamdan düşülür, KDV iskontolu tutar üzerinden alınır.
func Calculate(lines []Line, discountRate, taxRate decimal.Decimal) Totals {
	t := Totals{LineTotals: make([]decimal.Decimal, len(lines))}
	for i, l := range lines {
		lt := l.Quantity.Mul(l.UnitPrice).Round(2)
		t.LineTotals[i] = lt
		t.Subtotal = t.Subtotal.Add(lt)
	}
	t.DiscountAmount = t.Subtotal.Mul(discountRate).Div(hundred).Round(2)
	taxable := t.Subtotal.Sub(t.DiscountAmount)
	t.TaxAmount = taxable.Mul(taxRate).Div(hundred).Round(2)
	t.Total = taxable.Add(t.TaxAmount)
	return t
}
