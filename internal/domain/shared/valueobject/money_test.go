package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already two decimals", "10.25", "10.25"},
		{"half rounds up", "10.255", "10.26"},
		{"below half rounds down", "10.254", "10.25"},
		{"above half rounds up", "10.256", "10.26"},
		{"integer unchanged", "100", "100"},
		{"many decimals", "59.84999", "59.85"},
		{"zero", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := decimal.RequireFromString(tt.input)
			expected := decimal.RequireFromString(tt.expected)
			assert.True(t, Round(in).Equal(expected), "Round(%s) = %s, want %s", tt.input, Round(in), expected)
		})
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		percent  string
		expected string
	}{
		{"ten percent of 1000", "1000", "10", "100"},
		{"five percent of 900", "900", "5", "45"},
		{"seven percent of 855", "855", "7", "59.85"},
		{"rounding half up", "10.07", "5", "0.5"},
		{"zero percent", "500", "0", "0"},
		{"hundred percent", "123.45", "100", "123.45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := decimal.RequireFromString(tt.base)
			percent := decimal.RequireFromString(tt.percent)
			expected := decimal.RequireFromString(tt.expected)
			got := PercentOf(base, percent)
			assert.True(t, got.Equal(expected), "PercentOf(%s, %s) = %s, want %s", tt.base, tt.percent, got, expected)
		})
	}
}

func TestNewMoney(t *testing.T) {
	t.Run("valid money", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(100), COP)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))
		assert.Equal(t, COP, m.Currency())
	})

	t.Run("empty currency rejected", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	t.Run("add same currency", func(t *testing.T) {
		a := NewMoneyCOPFromFloat(100.50)
		b := NewMoneyCOPFromFloat(49.50)
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(150)))
	})

	t.Run("add different currency fails", func(t *testing.T) {
		a := NewMoneyCOP(decimal.NewFromInt(10))
		b, err := NewMoney(decimal.NewFromInt(10), "USD")
		require.NoError(t, err)
		_, err = a.Add(b)
		assert.Error(t, err)
	})

	t.Run("subtract can go negative", func(t *testing.T) {
		a := NewMoneyCOP(decimal.NewFromInt(10))
		b := NewMoneyCOP(decimal.NewFromInt(25))
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.IsNegative())
	})

	t.Run("percent", func(t *testing.T) {
		m := NewMoneyCOP(decimal.NewFromInt(855))
		tax := m.Percent(decimal.NewFromInt(7))
		assert.True(t, tax.Amount().Equal(decimal.RequireFromString("59.85")))
	})
}

func TestMoney_JSON(t *testing.T) {
	m := NewMoneyCOPFromFloat(914.85)
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoney_Scan(t *testing.T) {
	t.Run("scan string", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("365.94"))
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("365.94")))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scan nil yields zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})

	t.Run("scan invalid type fails", func(t *testing.T) {
		var m Money
		assert.Error(t, m.Scan(42))
	})
}
