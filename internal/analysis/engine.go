package analysis

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"GannCycles/internal/calculator"
	"GannCycles/internal/cycle"
	"GannCycles/internal/model"
)

// Options are the caller-supplied knobs of one engine.
type Options struct {
	HorizonDays       int
	SquareOfNineSteps int
	Score             cycle.ScoreOptions
}

// Validate rejects options the core cannot run with.
func (o Options) Validate() error {
	if o.HorizonDays <= 0 {
		return model.NewValidationError("horizon", "must be positive, got %d days", o.HorizonDays)
	}
	if o.SquareOfNineSteps <= 0 {
		return model.NewValidationError("square of nine steps", "must be positive, got %d", o.SquareOfNineSteps)
	}
	return o.Score.Validate()
}

// Request is the input of one analysis run.
type Request struct {
	Symbol        string
	Source        string
	Pivots        []model.Pivot
	CurrentPrice  decimal.Decimal
	ReferenceDate model.Date
}

// Engine turns pivots and a current price into a Report.
type Engine struct {
	catalog cycle.Catalog
	marker  *cycle.SeasonalMarker
	scorer  *cycle.Scorer
	opts    Options
	newID   func() string
}

// NewEngine wires a catalog and a seasonal marker into an engine. A nil marker gets a private one.
func NewEngine(catalog cycle.Catalog, marker *cycle.SeasonalMarker, opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if marker == nil {
		marker = cycle.NewSeasonalMarker()
	}
	scorer, err := cycle.NewScorer(marker, opts.Score)
	if err != nil {
		return nil, err
	}
	return &Engine{catalog: catalog, marker: marker, scorer: scorer, opts: opts, newID: uuid.NewString}, nil
}

// Options returns the engine's settings.
func (e *Engine) Options() Options { return e.opts }

// Analyze validates the whole request before computing anything, so a rejected request never yields a
// partial report. Zero pivots is valid and produces a report without convergences.
func (e *Engine) Analyze(req Request) (*model.Report, error) {
	if err := model.ValidatePivots(req.Pivots); err != nil {
		return nil, err
	}
	if !req.CurrentPrice.IsPositive() {
		return nil, model.NewValidationError("current price", "must be positive, got %s", req.CurrentPrice)
	}
	if req.ReferenceDate.IsZero() {
		return nil, model.NewValidationError("reference date", "reference date is required")
	}

	projections, err := cycle.Project(req.Pivots, e.catalog, e.opts.HorizonDays, req.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("project cycles: %w", err)
	}
	end := req.ReferenceDate.AddDays(e.opts.HorizonDays)

	levels, err := e.levels(req.Pivots, req.CurrentPrice.InexactFloat64())
	if err != nil {
		return nil, fmt.Errorf("price levels: %w", err)
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}
	return &model.Report{
		RunID:          e.newID(),
		Symbol:         req.Symbol,
		Source:         source,
		AnalysisDate:   req.ReferenceDate,
		EndDate:        end,
		HorizonDays:    e.opts.HorizonDays,
		CurrentPrice:   req.CurrentPrice,
		Pivots:         append([]model.Pivot{}, req.Pivots...),
		Projections:    projections,
		Convergences:   e.scorer.Score(projections, req.ReferenceDate),
		SeasonalEvents: e.marker.EventsBetween(req.ReferenceDate, end, e.opts.Score.CrossQuarter),
		Levels:         levels,
	}, nil
}

// levels computes the level families concurrently; each family lands in its own slot.
func (e *Engine) levels(pivots []model.Pivot, current float64) (model.LevelSet, error) {
	var (
		set  model.LevelSet
		wg   sync.WaitGroup
		errs [4]error
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		set.SquareOfNine, errs[0] = calculator.SquareOfNine(current, e.opts.SquareOfNineSteps)
	}()
	go func() {
		defer wg.Done()
		set.Harmonic, errs[1] = calculator.HarmonicLevels(current)
	}()
	go func() {
		defer wg.Done()
		high, low, ok := pivotRange(pivots)
		if !ok {
			return
		}
		set.Retracement, errs[2] = calculator.RetracementLevels(high, low, current)
	}()
	go func() {
		defer wg.Done()
		set.PivotDivision, errs[3] = calculator.PivotDivisionLevels(pivots, current)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return model.LevelSet{}, err
		}
	}
	return set, nil
}

// pivotRange returns the highest HIGH and the lowest LOW pivot prices, when both exist and form a range.
func pivotRange(pivots []model.Pivot) (high, low float64, ok bool) {
	var hasHigh, hasLow bool
	for _, p := range pivots {
		price := p.Price.InexactFloat64()
		switch p.Kind {
		case model.PivotHigh:
			if !hasHigh || price > high {
				high, hasHigh = price, true
			}
		case model.PivotLow:
			if !hasLow || price < low {
				low, hasLow = price, true
			}
		}
	}
	return high, low, hasHigh && hasLow && high > low
}
