package services

import (
	"testing"

	"claudygod/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPricing_Calculate(t *testing.T) {
	pricing := Pricing{TaxRate: dec("0.08"), ShippingFlat: dec("5.99"), FreeShippingOver: dec("100")}

	tests := []struct {
		name  string
		items []models.OrderItem
		want  Totals
	}{
		{
			name:  "flat shipping below threshold",
			items: []models.OrderItem{{Quantity: 2, UnitPrice: dec("15.00")}, {Quantity: 1, UnitPrice: dec("12.50")}},
			want:  Totals{Subtotal: dec("42.50"), Tax: dec("3.40"), Shipping: dec("5.99"), Total: dec("51.89")},
		},
		{
			name:  "free shipping at threshold",
			items: []models.OrderItem{{Quantity: 4, UnitPrice: dec("25.00")}},
			want:  Totals{Subtotal: dec("100"), Tax: dec("8"), Shipping: dec("0"), Total: dec("108")},
		},
		{
			name:  "tax rounds to cents",
			items: []models.OrderItem{{Quantity: 1, UnitPrice: dec("0.99")}},
			want:  Totals{Subtotal: dec("0.99"), Tax: dec("0.08"), Shipping: dec("5.99"), Total: dec("7.06")},
		},
		{
			name:  "free items",
			items: []models.OrderItem{{Quantity: 3, UnitPrice: dec("0")}},
			want:  Totals{Subtotal: dec("0"), Tax: dec("0"), Shipping: dec("5.99"), Total: dec("5.99")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.Calculate(tt.items)
			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.want.Tax.Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, tt.want.Shipping.Equal(got.Shipping), "shipping %s", got.Shipping)
			assert.True(t, tt.want.Total.Equal(got.Total), "total %s", got.Total)
			assert.True(t, got.Total.GreaterThanOrEqual(got.Subtotal))
		})
	}
}

func TestPricing_Calculate_NoTaxNoShipping(t *testing.T) {
	got := Pricing{}.Calculate([]models.OrderItem{{Quantity: 2, UnitPrice: dec("21.25")}})
	assert.True(t, dec("42.50").Equal(got.Subtotal))
	assert.True(t, dec("42.50").Equal(got.Total))
}
