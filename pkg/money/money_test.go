package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		european bool
		want     int64
		wantErr  bool
	}{
		{"integer", "1500", false, 150000, false},
		{"two decimals", "1500.50", false, 150050, false},
		{"thousands separator", "1,234.56", false, 123456, false},
		{"european", "1.234,56", true, 123456, false},
		{"currency symbol", "R$ 300", false, 30000, false},
		{"rounds half up", "10.005", false, 1001, false},
		{"negative", "-25.50", false, -2550, false},
		{"garbage", "abc", false, 0, true},
		{"empty", "", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.input, BRL, tt.european)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, BRL, m.Currency())
		})
	}
}

func TestMinorFromDecimal(t *testing.T) {
	tests := []struct {
		input    string
		currency string
		want     int64
	}{
		{"100", BRL, 10000},
		{"0.005", "EUR", 1},
		{"0.99", "USD", 99},
		{"1000", "JPY", 1000},
		{"92233720368547758.07", BRL, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.input+" "+tt.currency, func(t *testing.T) {
			got, err := MinorFromDecimal(decimal.RequireFromString(tt.input), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutOfRangeAmounts(t *testing.T) {
	for _, input := range []string{
		"92233720368547758.08",
		"184467440737095516.17",
		"1e20",
		"-1e20",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input, BRL, false)
			assert.ErrorIs(t, err, ErrOutOfRange)

			_, err = MinorFromDecimal(decimal.RequireFromString(input), BRL)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "$1,234.56", New(123456, "USD").Display())
	assert.Equal(t, "R$100,00", New(10000, BRL).Display())
}

func TestString(t *testing.T) {
	assert.Equal(t, "1234.56", New(123456, "USD").String())
	assert.Equal(t, "-5.00", New(-500, BRL).String())
	assert.Equal(t, "0.00", (*Money)(nil).String())
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(New(30000, BRL))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(30000), decoded["amount_minor"])
	assert.Equal(t, "BRL", decoded["currency"])
	assert.NotEmpty(t, decoded["display"])
}
