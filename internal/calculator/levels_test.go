package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GannCycles/internal/model"
)

func levelByLabel(t *testing.T, levels []model.PriceLevel, label string) model.PriceLevel {
	t.Helper()
	for _, l := range levels {
		if l.Label == label {
			return l
		}
	}
	t.Fatalf("no level labelled %q", label)
	return model.PriceLevel{}
}

func assertSortedByPrice(t *testing.T, levels []model.PriceLevel) {
	t.Helper()
	for i := 1; i < len(levels); i++ {
		assert.True(t, levels[i-1].Price.LessThanOrEqual(levels[i].Price), "not sorted at %d", i)
	}
}

func TestSquareOfNine_RootSymmetry(t *testing.T) {
	const p = 67000.0
	levels, err := SquareOfNine(p, 16)
	require.NoError(t, err)
	require.Len(t, levels, 32)
	assertSortedByPrice(t, levels)

	above := levelByLabel(t, levels, "+22.5°")
	below := levelByLabel(t, levels, "-22.5°")
	assert.Equal(t, model.RoleResistance, above.Role)
	assert.Equal(t, model.RoleSupport, below.Role)
	assert.InDelta(t, 0.125, math.Sqrt(above.Price.InexactFloat64())-math.Sqrt(p), 1e-9)
	assert.InDelta(t, 0.125, math.Sqrt(p)-math.Sqrt(below.Price.InexactFloat64()), 1e-9)
	assert.NotEqual(t, above.Price.Sub(decimal.NewFromFloat(p)).Round(6), decimal.NewFromFloat(p).Sub(below.Price).Round(6))

	full := levelByLabel(t, levels, "+360°")
	assert.InDelta(t, math.Pow(math.Sqrt(p)+2, 2), full.Price.InexactFloat64(), 1e-6)

	for _, l := range levels {
		assert.Equal(t, model.MethodSquareOfNine, l.Method)
		assert.True(t, l.ReferencePrice.Equal(decimal.NewFromFloat(p)))
		if l.Price.GreaterThan(l.ReferencePrice) {
			assert.Equal(t, model.RoleResistance, l.Role)
		} else {
			assert.Equal(t, model.RoleSupport, l.Role)
		}
	}
}

func TestSquareOfNine_SkipsSupportBelowZero(t *testing.T) {
	// √0.04 = 0.2, so only the first support (k=1) keeps a positive root.
	levels, err := SquareOfNine(0.04, 4)
	require.NoError(t, err)
	supports := 0
	for _, l := range levels {
		if l.Role == model.RoleSupport {
			supports++
			assert.True(t, l.Price.IsPositive())
		}
	}
	assert.Equal(t, 1, supports)
	assert.Len(t, levels, 5)
}

func TestHarmonicLevels_RoundTrip(t *testing.T) {
	const p = 95000.0
	levels, err := HarmonicLevels(p)
	require.NoError(t, err)
	require.Len(t, levels, 24)
	assertSortedByPrice(t, levels)

	for n := 1; n < 12; n++ {
		up := p * SemitoneRatio(n)
		assert.InDelta(t, p, up*SemitoneRatio(12-n)/2, 1e-6, "n=%d", n)
		assert.InDelta(t, p, up/SemitoneRatio(n), 1e-6, "n=%d", n)
	}

	octave := levelByLabel(t, levels, "+octave")
	assert.InDelta(t, 2*p, octave.Price.InexactFloat64(), 1e-6)
	halfOctave := levelByLabel(t, levels, "-octave")
	assert.InDelta(t, p/2, halfOctave.Price.InexactFloat64(), 1e-6)

	fifthUp := levelByLabel(t, levels, "+perfect fifth")
	fourthUp := levelByLabel(t, levels, "+perfect fourth")
	assert.InDelta(t, 2*p, fifthUp.Price.InexactFloat64()*fourthUp.Price.InexactFloat64()/p, 1e-6)

	assert.InDelta(t, 1.05946, Semitone, 1e-5)
}

func TestRetracementLevels(t *testing.T) {
	levels, err := RetracementLevels(100000, 60000, 75000)
	require.NoError(t, err)
	require.Len(t, levels, len(RetracementFractions))

	want := []float64{95000, 90000, 85000, 80000, 75280, 70000, 65000, 60000}
	for i, l := range levels {
		assert.InDelta(t, want[i], l.Price.InexactFloat64(), 1e-6, l.Label)
		assert.Equal(t, model.MethodPercentage, l.Method)
	}
	assert.Equal(t, "50.0% retracement", levels[3].Label)
	assert.Equal(t, model.RoleResistance, levels[4].Role)
	assert.Equal(t, model.RoleSupport, levels[5].Role)
}

func TestRetracementLevels_RejectsInvertedRange(t *testing.T) {
	_, err := RetracementLevels(60000, 100000, 75000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestPivotDivisionLevels(t *testing.T) {
	high, err := model.NewPivot(model.NewDate(2024, 11, 10), model.PivotHigh, decimal.NewFromInt(93000))
	require.NoError(t, err)
	low, err := model.NewPivot(model.NewDate(2024, 1, 23), model.PivotLow, decimal.NewFromInt(38500))
	require.NoError(t, err)

	levels, err := PivotDivisionLevels([]model.Pivot{high, low}, 67000)
	require.NoError(t, err)
	require.Len(t, levels, 2*len(DivisionPercents)+2)

	assert.InDelta(t, 93000*0.92, levels[0].Price.InexactFloat64(), 1e-6)
	assert.Equal(t, model.RoleResistance, levels[0].Role)
	assert.True(t, levels[0].ReferencePrice.Equal(decimal.NewFromInt(93000)))

	lowFirst := levels[len(DivisionPercents)]
	assert.InDelta(t, 38500*1.08, lowFirst.Price.InexactFloat64(), 1e-6)
	assert.Equal(t, model.RoleSupport, lowFirst.Role)

	discount := levels[len(levels)-2]
	assert.InDelta(t, 67000/1.08, discount.Price.InexactFloat64(), 1e-6)
	semitone := levels[len(levels)-1]
	assert.InDelta(t, 67000/Semitone, semitone.Price.InexactFloat64(), 1e-6)
}

func TestLevels_RejectNonPositiveReference(t *testing.T) {
	for _, p := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := SquareOfNine(p, 4)
		assert.True(t, errors.Is(err, model.ErrValidation), "square of nine %v", p)
		_, err = HarmonicLevels(p)
		assert.True(t, errors.Is(err, model.ErrValidation), "harmonic %v", p)
		_, err = RetracementLevels(100, 50, p)
		assert.True(t, errors.Is(err, model.ErrValidation), "retracement %v", p)
		_, err = PivotDivisionLevels(nil, p)
		assert.True(t, errors.Is(err, model.ErrValidation), "division %v", p)
	}
	_, err := SquareOfNine(100, 0)
	assert.True(t, errors.Is(err, model.ErrValidation))
}
