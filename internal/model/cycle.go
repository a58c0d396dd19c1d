package model

import "fmt"

// CycleCategory names the theoretical family a cycle length comes from.
type CycleCategory string

const (
	CategoryGann      CycleCategory = "GANN"
	CategorySquare    CycleCategory = "SQUARE"
	CategoryFibonacci CycleCategory = "FIBONACCI"
)

// Cycle is a projection length in days and the family it belongs to.
type Cycle struct {
	LengthDays int           `json:"length_days"`
	Category   CycleCategory `json:"category"`
}

// Projection is a candidate turning-point date: a pivot's date moved forward by a cycle length.
type Projection struct {
	Source     Pivot `json:"source"`
	Cycle      Cycle `json:"cycle"`
	TargetDate Date  `json:"target_date"`
}

// Describe renders the projection as a one-line contributor summary.
func (p Projection) Describe() string {
	return fmt.Sprintf("%s +%dd (%s)", p.Source.Label(), p.Cycle.LengthDays, p.Cycle.Category)
}
