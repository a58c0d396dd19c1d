package calculator

import (
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"GannCycles/internal/model"
)

// SquareOfNineStep is the square-root increment of one eighth of a half turn on the spiral (22.5°).
// A full 360° rotation adds 2 to the root.
const SquareOfNineStep = 0.125

// SquareOfNine places levels at (√price ± k·0.125)² for k = 1..steps. Levels above price are
// resistance, below are support; support roots that would reach zero are skipped.
// The result is sorted by price ascending.
func SquareOfNine(price float64, steps int) ([]model.PriceLevel, error) {
	if err := requirePositive("reference price", price); err != nil {
		return nil, err
	}
	if steps <= 0 {
		return nil, model.NewValidationError("square of nine steps", "must be positive, got %d", steps)
	}

	root := math.Sqrt(price)
	ref := decimal.NewFromFloat(price)
	levels := make([]model.PriceLevel, 0, 2*steps)
	for k := 1; k <= steps; k++ {
		delta := float64(k) * SquareOfNineStep
		angle := fmt.Sprintf("%g°", float64(k)*22.5)

		up := (root + delta) * (root + delta)
		levels = append(levels, model.PriceLevel{
			Price:          decimal.NewFromFloat(up),
			Role:           model.RoleResistance,
			Method:         model.MethodSquareOfNine,
			ReferencePrice: ref,
			Label:          "+" + angle,
		})

		if root-delta <= 0 {
			continue
		}
		down := (root - delta) * (root - delta)
		levels = append(levels, model.PriceLevel{
			Price:          decimal.NewFromFloat(down),
			Role:           model.RoleSupport,
			Method:         model.MethodSquareOfNine,
			ReferencePrice: ref,
			Label:          "-" + angle,
		})
	}

	slices.SortStableFunc(levels, byPrice)
	return levels, nil
}

func byPrice(a, b model.PriceLevel) int {
	return a.Price.Cmp(b.Price)
}
