package pricefmt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		loc  Locale
		want string
	}{
		{"symbol and thousands", "$ 1.234.567", COPWhole, "1234567"},
		{"thousands only", "1.299.900", COP, "1299900"},
		{"decimal comma", "1.299.900,50", COP, "1299900.5"},
		{"decimal comma dropped", "1.299.900,00", COPWhole, "129990000"},
		{"currency code", "COP 45.000", COP, "45000"},
		{"nbsp between symbol and digits", "$\u00a089.900", COP, "89900"},
		{"plain digits", "899900", COP, "899900"},
		{"trailing label", "2.499.000 con descuento", COP, "2499000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw, tt.loc)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"empty", "", ErrEmpty},
		{"symbol and dash", "$-", ErrEmpty},
		{"only symbol", "$", ErrEmpty},
		{"only separators", "...", ErrEmpty},
		{"zero", "$ 0", ErrNotPositive},
		{"zero with decimals", "0,00", ErrNotPositive},
		{"two decimal separators", "1,2,3", ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw, COP)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, got.IsZero())
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "1234567", Normalize("$ 1.234.567", COP))
	assert.Equal(t, "1234.5", Normalize("1.234,5", COP))
	assert.Equal(t, "12345", Normalize("1.234,5", COPWhole))
	assert.Equal(t, "", Normalize("gratis", COP))
}
