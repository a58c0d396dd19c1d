package model

import "github.com/shopspring/decimal"

// LevelSet groups the price levels of one run by family.
type LevelSet struct {
	SquareOfNine  []PriceLevel `json:"square_of_nine"`
	Harmonic      []PriceLevel `json:"harmonic"`
	Retracement   []PriceLevel `json:"retracement,omitempty"`
	PivotDivision []PriceLevel `json:"pivot_division,omitempty"`
}

// All flattens the set in family order.
func (s LevelSet) All() []PriceLevel {
	out := make([]PriceLevel, 0, len(s.SquareOfNine)+len(s.Harmonic)+len(s.Retracement)+len(s.PivotDivision))
	out = append(out, s.SquareOfNine...)
	out = append(out, s.Harmonic...)
	out = append(out, s.Retracement...)
	out = append(out, s.PivotDivision...)
	return out
}

// Report is everything one analysis run produced.
type Report struct {
	RunID          string             `json:"run_id"`
	Symbol         string             `json:"symbol,omitempty"`
	Source         string             `json:"source"`
	AnalysisDate   Date               `json:"analysis_date"`
	EndDate        Date               `json:"end_date"`
	HorizonDays    int                `json:"horizon_days"`
	CurrentPrice   decimal.Decimal    `json:"current_price"`
	Pivots         []Pivot            `json:"pivots"`
	Projections    []Projection       `json:"projections"`
	Convergences   []ConvergencePoint `json:"convergences"`
	SeasonalEvents []SeasonalEvent    `json:"seasonal_events"`
	Levels         LevelSet           `json:"levels"`
}
