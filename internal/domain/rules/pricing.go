package rules

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("invalid quantity")

// Pricing is the single authoritative order pricing convention.
// A catalog price is quoted per UnitScale units.
type Pricing struct {
	UnitScale    int
	MinQuantity  int
	QuantityStep int
}

func (p Pricing) normalized() Pricing {
	if p.UnitScale <= 0 {
		p.UnitScale = 1
	}
	if p.MinQuantity <= 0 {
		p.MinQuantity = 1
	}
	if p.QuantityStep <= 0 {
		p.QuantityStep = 1
	}
	return p
}

func (p Pricing) ValidateQuantity(quantity int) error {
	p = p.normalized()
	if quantity < p.MinQuantity {
		return fmt.Errorf("%w: minimum is %d", ErrInvalidQuantity, p.MinQuantity)
	}
	if quantity%p.QuantityStep != 0 {
		return fmt.Errorf("%w: must be a multiple of %d", ErrInvalidQuantity, p.QuantityStep)
	}
	return nil
}

// TotalCost is price * quantity / unit_scale rounded half away from zero to cents.
func (p Pricing) TotalCost(price decimal.Decimal, quantity int) decimal.Decimal {
	p = p.normalized()
	return price.
		Mul(decimal.NewFromInt(int64(quantity))).
		Div(decimal.NewFromInt(int64(p.UnitScale))).
		Round(2)
}
