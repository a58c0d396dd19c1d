package calculator

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"GannCycles/internal/model"
)

// Semitone is the equal-tempered half-step ratio 2^(1/12).
var Semitone = math.Pow(2, 1.0/12)

var intervalNames = [12]string{
	"minor second", "major second", "minor third", "major third", "perfect fourth", "tritone",
	"perfect fifth", "minor sixth", "major sixth", "minor seventh", "major seventh", "octave",
}

// SemitoneRatio returns 2^(n/12).
func SemitoneRatio(n int) float64 {
	return math.Pow(2, float64(n)/12)
}

// HarmonicLevels multiplies price by each of the twelve semitone ratios for resistance and divides by
// them for support. The result is sorted by price ascending.
func HarmonicLevels(price float64) ([]model.PriceLevel, error) {
	if err := requirePositive("reference price", price); err != nil {
		return nil, err
	}

	ref := decimal.NewFromFloat(price)
	levels := make([]model.PriceLevel, 0, 24)
	for n := 1; n <= 12; n++ {
		ratio := SemitoneRatio(n)
		name := intervalNames[n-1]
		levels = append(levels,
			model.PriceLevel{
				Price:          decimal.NewFromFloat(price * ratio),
				Role:           model.RoleResistance,
				Method:         model.MethodHarmonic,
				ReferencePrice: ref,
				Label:          "+" + name,
			},
			model.PriceLevel{
				Price:          decimal.NewFromFloat(price / ratio),
				Role:           model.RoleSupport,
				Method:         model.MethodHarmonic,
				ReferencePrice: ref,
				Label:          "-" + name,
			},
		)
	}

	slices.SortStableFunc(levels, byPrice)
	return levels, nil
}
