package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/facturado/backend/internal/domain/shared"
)

func TestDiscount_Validate(t *testing.T) {
	tests := []struct {
		name     string
		discount Discount
		wantErr  bool
	}{
		{"zero percentage ok", NoDiscount(), false},
		{"valid percentage", NewPercentageDiscount(decimal.NewFromInt(10)), false},
		{"full percentage ok", NewPercentageDiscount(decimal.NewFromInt(100)), false},
		{"percentage over 100", NewPercentageDiscount(decimal.NewFromInt(101)), true},
		{"negative percentage", NewPercentageDiscount(decimal.NewFromInt(-1)), true},
		{"valid amount", NewAmountDiscount(decimal.NewFromInt(50)), false},
		{"negative amount", NewAmountDiscount(decimal.NewFromInt(-50)), true},
		{"unknown type", Discount{Type: "COUPON", Value: decimal.NewFromInt(5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.discount.Validate()
			if tt.wantErr {
				var domainErr *shared.DomainError
				assert.ErrorAs(t, err, &domainErr)
				assert.Equal(t, shared.CodeInvalidDiscount, domainErr.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDiscount_AmountOn(t *testing.T) {
	tests := []struct {
		name     string
		discount Discount
		base     string
		expected string
		wantErr  bool
	}{
		{"ten percent of 1000", NewPercentageDiscount(decimal.NewFromInt(10)), "1000", "100", false},
		{"five percent of 900", NewPercentageDiscount(decimal.NewFromInt(5)), "900", "45", false},
		{"fixed amount", NewAmountDiscount(decimal.NewFromInt(50)), "900", "50", false},
		{"fixed amount exceeding base fails", NewAmountDiscount(decimal.NewFromInt(1200)), "900", "", true},
		{"zero discount", NoDiscount(), "900", "0", false},
		{"percentage rounds half up", NewPercentageDiscount(decimal.NewFromInt(5)), "10.07", "0.5", false},
		{"invalid percentage fails", NewPercentageDiscount(decimal.NewFromInt(120)), "1000", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := decimal.RequireFromString(tt.base)
			got, err := tt.discount.AmountOn(base)
			if tt.wantErr {
				var domainErr *shared.DomainError
				assert.ErrorAs(t, err, &domainErr)
				assert.Equal(t, shared.CodeInvalidDiscount, domainErr.Code)
				return
			}
			assert.NoError(t, err)
			expected := decimal.RequireFromString(tt.expected)
			assert.True(t, got.Equal(expected), "AmountOn(%s) = %s, want %s", tt.base, got, expected)
		})
	}
}

func TestTaxConfig(t *testing.T) {
	t.Run("disabled yields zero", func(t *testing.T) {
		tax := NoTax()
		assert.True(t, tax.TaxOn(decimal.NewFromInt(1000)).IsZero())
	})

	t.Run("seven percent of 855", func(t *testing.T) {
		tax := NewTaxConfig(decimal.NewFromInt(7))
		got := tax.TaxOn(decimal.NewFromInt(855))
		assert.True(t, got.Equal(decimal.RequireFromString("59.85")))
	})

	t.Run("negative base yields zero", func(t *testing.T) {
		tax := NewTaxConfig(decimal.NewFromInt(19))
		assert.True(t, tax.TaxOn(decimal.NewFromInt(-10)).IsZero())
	})

	t.Run("validate rejects negative rate", func(t *testing.T) {
		tax := NewTaxConfig(decimal.NewFromInt(-5))
		assert.Error(t, tax.Validate())
	})

	t.Run("validate rejects rate over 100", func(t *testing.T) {
		tax := NewTaxConfig(decimal.NewFromInt(150))
		assert.Error(t, tax.Validate())
	})
}
