package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GannCycles/internal/cycle"
	"GannCycles/internal/model"
)

func defaultOptions() Options {
	return Options{
		HorizonDays:       360,
		SquareOfNineSteps: 16,
		Score: cycle.ScoreOptions{
			SeasonalBonus:      1,
			SeasonalWindowDays: 1,
			MinScore:           2,
			Limit:              15,
		},
	}
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(cycle.DefaultCatalog(), nil, opts)
	require.NoError(t, err)
	return e
}

func mustParse(t *testing.T, in ...model.PivotInput) []model.Pivot {
	t.Helper()
	p, err := model.ParsePivots(in)
	require.NoError(t, err)
	return p
}

func sampleRequest(t *testing.T) Request {
	return Request{
		Pivots: mustParse(t,
			model.PivotInput{Date: "2024-11-10", Type: "high", Price: 93000},
			model.PivotInput{Date: "2024-08-05", Type: "low", Price: 49000},
			model.PivotInput{Date: "2024-03-14", Type: "high", Price: 73800},
			model.PivotInput{Date: "2024-01-23", Type: "low", Price: 38500},
		),
		CurrentPrice:  decimal.NewFromInt(67000),
		ReferenceDate: model.NewDate(2025, 1, 1),
	}
}

func TestAnalyze_FullReport(t *testing.T) {
	rep, err := newEngine(t, defaultOptions()).Analyze(sampleRequest(t))
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, "manual", rep.Source)
	assert.Equal(t, "2025-01-01", rep.AnalysisDate.String())
	assert.Equal(t, "2025-12-27", rep.EndDate.String())
	assert.Len(t, rep.Pivots, 4)
	assert.NotEmpty(t, rep.Projections)
	assert.LessOrEqual(t, len(rep.Convergences), 15)
	for _, c := range rep.Convergences {
		assert.GreaterOrEqual(t, c.Score, 2)
	}
	assert.Len(t, rep.SeasonalEvents, 4)

	assert.Len(t, rep.Levels.SquareOfNine, 32)
	assert.Len(t, rep.Levels.Harmonic, 24)
	require.Len(t, rep.Levels.Retracement, 8)
	assert.InDelta(t, 93000-0.5*(93000-38500), rep.Levels.Retracement[3].Price.InexactFloat64(), 1e-6)
	assert.Len(t, rep.Levels.PivotDivision, 4*5+2)
	assert.Len(t, rep.Levels.All(), 32+24+8+22)
}

func TestAnalyze_Deterministic(t *testing.T) {
	e := newEngine(t, defaultOptions())
	a, err := e.Analyze(sampleRequest(t))
	require.NoError(t, err)
	b, err := e.Analyze(sampleRequest(t))
	require.NoError(t, err)

	ja, err := json.Marshal(a.Convergences)
	require.NoError(t, err)
	jb, err := json.Marshal(b.Convergences)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
	assert.Equal(t, a.Levels, b.Levels)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestAnalyze_EmptyPivots(t *testing.T) {
	rep, err := newEngine(t, defaultOptions()).Analyze(Request{
		CurrentPrice:  decimal.NewFromInt(67000),
		ReferenceDate: model.NewDate(2025, 1, 1),
	})
	require.NoError(t, err)
	assert.Empty(t, rep.Projections)
	assert.NotNil(t, rep.Convergences)
	assert.Empty(t, rep.Convergences)
	assert.Empty(t, rep.Levels.Retracement)
	assert.NotEmpty(t, rep.Levels.SquareOfNine)
}

func TestAnalyze_RejectsInvalidInputBeforeComputing(t *testing.T) {
	good := sampleRequest(t)
	bad := good
	bad.Pivots = append(append([]model.Pivot{}, good.Pivots...), model.Pivot{
		Date: model.NewDate(2024, 5, 1), Kind: model.PivotLow, Price: decimal.NewFromInt(-5),
	})

	rep, err := newEngine(t, defaultOptions()).Analyze(bad)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, errors.Is(err, model.ErrValidation))

	var vErr *model.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "pivot price", vErr.Field)

	noPrice := good
	noPrice.CurrentPrice = decimal.Zero
	_, err = newEngine(t, defaultOptions()).Analyze(noPrice)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestParsePivots_RejectsMalformedInput(t *testing.T) {
	for _, in := range []model.PivotInput{
		{Date: "2024-13-45", Type: "high", Price: 100},
		{Date: "2024-01-01", Type: "sideways", Price: 100},
		{Date: "2024-01-01", Type: "low", Price: -5},
	} {
		_, err := model.ParsePivots([]model.PivotInput{in})
		assert.True(t, errors.Is(err, model.ErrValidation), "%+v", in)
	}
}

func TestNewEngine_RejectsBadOptions(t *testing.T) {
	opts := defaultOptions()
	opts.HorizonDays = 0
	_, err := NewEngine(cycle.DefaultCatalog(), nil, opts)
	assert.True(t, errors.Is(err, model.ErrValidation))

	opts = defaultOptions()
	opts.Score.MinScore = -1
	_, err = NewEngine(cycle.DefaultCatalog(), nil, opts)
	assert.True(t, errors.Is(err, model.ErrValidation))
}
