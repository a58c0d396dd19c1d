package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"GannCycles/internal/model"
)

// RetracementFractions are the eighths of a range plus the golden 61.8%.
var RetracementFractions = []float64{0.125, 0.25, 0.375, 0.5, 0.618, 0.75, 0.875, 1.0}

// DivisionPercents are the pivot division steps: 8%, 1/8, 1/4, 1/3 and 1/2.
var DivisionPercents = []float64{0.08, 0.125, 0.25, 0.333, 0.5}

// RetracementLevels measures each fraction down from high towards low. Roles are judged against current.
func RetracementLevels(high, low, current float64) ([]model.PriceLevel, error) {
	if err := requirePositive("high price", high); err != nil {
		return nil, err
	}
	if err := requirePositive("low price", low); err != nil {
		return nil, err
	}
	if err := requirePositive("current price", current); err != nil {
		return nil, err
	}
	if high <= low {
		return nil, model.NewValidationError("price range", "high %v must exceed low %v", high, low)
	}

	ref := decimal.NewFromFloat(current)
	span := high - low
	levels := make([]model.PriceLevel, 0, len(RetracementFractions))
	for _, f := range RetracementFractions {
		level := high - f*span
		levels = append(levels, model.PriceLevel{
			Price:          decimal.NewFromFloat(level),
			Role:           roleAgainst(level, current),
			Method:         model.MethodPercentage,
			ReferencePrice: ref,
			Label:          fmt.Sprintf("%.1f%% retracement", f*100),
		})
	}
	return levels, nil
}

// PivotDivisionLevels divides each pivot price by fixed percentages: highs step down, lows step up.
// Two extra levels discount the current price by 8% and by one semitone. Roles are judged against current.
func PivotDivisionLevels(pivots []model.Pivot, current float64) ([]model.PriceLevel, error) {
	if err := requirePositive("current price", current); err != nil {
		return nil, err
	}
	if err := model.ValidatePivots(pivots); err != nil {
		return nil, err
	}

	levels := make([]model.PriceLevel, 0, len(pivots)*len(DivisionPercents)+2)
	for _, p := range pivots {
		price := p.Price.InexactFloat64()
		for _, pct := range DivisionPercents {
			var level float64
			var label string
			if p.Kind == model.PivotHigh {
				level = price * (1 - pct)
				label = fmt.Sprintf("%s -%.1f%%", p.Label(), pct*100)
			} else {
				level = price * (1 + pct)
				label = fmt.Sprintf("%s +%.1f%%", p.Label(), pct*100)
			}
			levels = append(levels, model.PriceLevel{
				Price:          decimal.NewFromFloat(level),
				Role:           roleAgainst(level, current),
				Method:         model.MethodPercentage,
				ReferencePrice: p.Price,
				Label:          label,
			})
		}
	}

	ref := decimal.NewFromFloat(current)
	levels = append(levels,
		model.PriceLevel{
			Price:          decimal.NewFromFloat(current / 1.08),
			Role:           model.RoleSupport,
			Method:         model.MethodPercentage,
			ReferencePrice: ref,
			Label:          "current ÷ 1.08",
		},
		model.PriceLevel{
			Price:          decimal.NewFromFloat(current / Semitone),
			Role:           model.RoleSupport,
			Method:         model.MethodPercentage,
			ReferencePrice: ref,
			Label:          fmt.Sprintf("current ÷ %.4f", Semitone),
		},
	)
	return levels, nil
}
