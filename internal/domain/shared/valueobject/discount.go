package valueobject

import (
	"github.com/facturado/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DiscountType distinguishes percentage discounts from fixed-amount discounts
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeAmount     DiscountType = "AMOUNT"
)

// IsValid checks if the discount type is valid
func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeAmount
}

var oneHundred = decimal.NewFromInt(100)

// Discount is a value object describing either a percentage or a fixed
// amount reduction. It is embedded into line items and documents; the
// monetary effect is always computed against an explicit base via AmountOn,
// never stored.
type Discount struct {
	Type  DiscountType    `json:"type" gorm:"type:varchar(20)"`
	Value decimal.Decimal `json:"value" gorm:"type:decimal(20,4)"`
}

// NoDiscount returns a zero percentage discount
func NoDiscount() Discount {
	return Discount{Type: DiscountTypePercentage, Value: decimal.Zero}
}

// NewPercentageDiscount creates a percentage discount
func NewPercentageDiscount(percent decimal.Decimal) Discount {
	return Discount{Type: DiscountTypePercentage, Value: percent}
}

// NewAmountDiscount creates a fixed-amount discount
func NewAmountDiscount(amount decimal.Decimal) Discount {
	return Discount{Type: DiscountTypeAmount, Value: amount}
}

// IsZero returns true when the discount has no effect on any base
func (d Discount) IsZero() bool {
	return d.Value.IsZero()
}

// Validate checks the discount specification itself, independent of the
// base it will be applied to. Percentages must lie in [0, 100]; fixed
// amounts must be non-negative.
func (d Discount) Validate() error {
	if !d.Type.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidDiscount, "discount type must be PERCENTAGE or AMOUNT")
	}
	if d.Value.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidDiscount, "discount value cannot be negative")
	}
	if d.Type == DiscountTypePercentage && d.Value.GreaterThan(oneHundred) {
		return shared.NewDomainError(shared.CodeInvalidDiscount, "percentage discount cannot exceed 100")
	}
	return nil
}

// AmountOn computes the monetary effect of the discount against base,
// rounded to minor units. A discount whose monetary effect exceeds the
// base is rejected with INVALID_DISCOUNT rather than clamped; validation
// failures must surface to the caller, never be coerced away.
func (d Discount) AmountOn(base decimal.Decimal) (decimal.Decimal, error) {
	if err := d.Validate(); err != nil {
		return decimal.Zero, err
	}
	var amount decimal.Decimal
	switch d.Type {
	case DiscountTypePercentage:
		amount = PercentOf(base, d.Value)
	case DiscountTypeAmount:
		amount = Round(d.Value)
	}
	if amount.GreaterThan(base) {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidDiscount, "discount cannot exceed the amount it applies to")
	}
	return amount, nil
}
