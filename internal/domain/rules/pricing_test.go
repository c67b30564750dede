package rules

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTotalCostPerThousand(t *testing.T) {
	p := Pricing{UnitScale: 1000, MinQuantity: 100, QuantityStep: 100}

	tests := []struct {
		price    string
		quantity int
		want     string
	}{
		{price: "2.50", quantity: 1000, want: "2.5"},
		{price: "2.50", quantity: 100, want: "0.25"},
		{price: "1.99", quantity: 300, want: "0.6"},
		{price: "1500", quantity: 200, want: "300"},
		{price: "0.05", quantity: 100, want: "0.01"},
	}

	for _, tc := range tests {
		got := p.TotalCost(decimal.RequireFromString(tc.price), tc.quantity)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("price %s x %d: got %s want %s", tc.price, tc.quantity, got, tc.want)
		}
	}
}

func TestTotalCostPerUnit(t *testing.T) {
	p := Pricing{UnitScale: 1}
	got := p.TotalCost(decimal.RequireFromString("3.10"), 3)
	if !got.Equal(decimal.RequireFromString("9.30")) {
		t.Fatalf("unexpected total: %s", got)
	}
}

func TestValidateQuantity(t *testing.T) {
	p := Pricing{UnitScale: 1000, MinQuantity: 100, QuantityStep: 100}

	for _, q := range []int{100, 200, 5000} {
		if err := p.ValidateQuantity(q); err != nil {
			t.Fatalf("quantity %d should be valid: %v", q, err)
		}
	}
	for _, q := range []int{0, -100, 50, 150} {
		if err := p.ValidateQuantity(q); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %d should be invalid, got %v", q, err)
		}
	}
}
