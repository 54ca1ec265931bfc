package valueobject

import (
	"github.com/facturado/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TaxConfig describes the single document-level tax rate applied to the
// taxable base after all discounts. Per-line tax rates are not supported.
type TaxConfig struct {
	Enabled bool            `json:"enabled" gorm:"not null;default:false"`
	Rate    decimal.Decimal `json:"rate" gorm:"type:decimal(10,4)"`
}

// NoTax returns a disabled tax configuration
func NoTax() TaxConfig {
	return TaxConfig{Enabled: false, Rate: decimal.Zero}
}

// NewTaxConfig creates an enabled tax configuration with the given rate
func NewTaxConfig(rate decimal.Decimal) TaxConfig {
	return TaxConfig{Enabled: true, Rate: rate}
}

// Validate checks that the rate is a sane percentage
func (t TaxConfig) Validate() error {
	if t.Rate.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "tax rate cannot be negative")
	}
	if t.Rate.GreaterThan(oneHundred) {
		return shared.NewDomainError(shared.CodeInvalidInput, "tax rate cannot exceed 100")
	}
	return nil
}

// TaxOn computes the tax owed on the given base, rounded to minor units.
// Returns zero when tax is disabled or the base is not positive.
func (t TaxConfig) TaxOn(base decimal.Decimal) decimal.Decimal {
	if !t.Enabled || !base.IsPositive() {
		return decimal.Zero
	}
	return PercentOf(base, t.Rate)
}
