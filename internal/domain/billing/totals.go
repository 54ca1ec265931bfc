package billing

import (
	"github.com/shopspring/decimal"

	"github.com/facturado/backend/internal/domain/shared"
	"github.com/facturado/backend/internal/domain/shared/valueobject"
)

// LineFigures is the computed monetary result of a single document line.
type LineFigures struct {
	Gross          decimal.Decimal `json:"gross"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Net            decimal.Decimal `json:"net"`
}

// ComputeLine computes a line's gross, discount and net amounts from its
// quantity, unit price and discount specification. Quantity must be
// strictly positive and unit price non-negative; the discount may never
// exceed the line's gross value.
func ComputeLine(quantity, unitPrice decimal.Decimal, discount valueobject.Discount) (LineFigures, error) {
	if !quantity.IsPositive() {
		return LineFigures{}, shared.NewDomainError(shared.CodeInvalidQuantity, "quantity must be greater than zero")
	}
	if unitPrice.IsNegative() {
		return LineFigures{}, shared.NewDomainError(shared.CodeInvalidInput, "unit price cannot be negative")
	}

	gross := valueobject.Round(quantity.Mul(unitPrice))
	discountAmount, err := discount.AmountOn(gross)
	if err != nil {
		return LineFigures{}, err
	}

	return LineFigures{
		Gross:          gross,
		DiscountAmount: discountAmount,
		Net:            gross.Sub(discountAmount),
	}, nil
}

// Totals is the computed monetary summary of a document.
type Totals struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	LineDiscountTotal decimal.Decimal `json:"line_discount_total"`
	NetItemsTotal     decimal.Decimal `json:"net_items_total"`
	GlobalDiscount    decimal.Decimal `json:"global_discount"`
	TaxableBase       decimal.Decimal `json:"taxable_base"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
}

// ComputeTotals aggregates line figures into document totals, applying the
// document-level discount on the sum of line nets and tax on the remaining
// taxable base. The step order is a fiscal contract: line discounts first,
// then the global discount, then tax. Every document total in the system
// flows through this one function; sales orders and credit notes never
// duplicate the arithmetic.
func ComputeTotals(lines []LineFigures, globalDiscount valueobject.Discount, tax valueobject.TaxConfig) (Totals, error) {
	if err := tax.Validate(); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	lineDiscountTotal := decimal.Zero
	netItemsTotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Gross)
		lineDiscountTotal = lineDiscountTotal.Add(line.DiscountAmount)
		netItemsTotal = netItemsTotal.Add(line.Net)
	}

	globalAmount, err := globalDiscount.AmountOn(netItemsTotal)
	if err != nil {
		return Totals{}, err
	}

	taxableBase := netItemsTotal.Sub(globalAmount)
	if taxableBase.IsNegative() {
		taxableBase = decimal.Zero
	}

	taxAmount := tax.TaxOn(taxableBase)

	return Totals{
		Subtotal:          subtotal,
		LineDiscountTotal: lineDiscountTotal,
		NetItemsTotal:     netItemsTotal,
		GlobalDiscount:    globalAmount,
		TaxableBase:       taxableBase,
		Tax:               taxAmount,
		Total:             taxableBase.Add(taxAmount),
	}, nil
}
