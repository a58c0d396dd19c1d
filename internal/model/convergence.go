package model

import "fmt"

// SeasonalKind identifies a solstice, equinox or cross-quarter midpoint.
type SeasonalKind string

const (
	SpringEquinox  SeasonalKind = "SPRING_EQUINOX"
	SummerSolstice SeasonalKind = "SUMMER_SOLSTICE"
	AutumnEquinox  SeasonalKind = "AUTUMN_EQUINOX"
	WinterSolstice SeasonalKind = "WINTER_SOLSTICE"

	WinterSpringMidpoint SeasonalKind = "WINTER_SPRING_MIDPOINT"
	SpringSummerMidpoint SeasonalKind = "SPRING_SUMMER_MIDPOINT"
	SummerAutumnMidpoint SeasonalKind = "SUMMER_AUTUMN_MIDPOINT"
	AutumnWinterMidpoint SeasonalKind = "AUTUMN_WINTER_MIDPOINT"
)

// SeasonalEvent is one astronomically anchored date.
type SeasonalEvent struct {
	Kind SeasonalKind `json:"kind"`
	Date Date         `json:"date"`
}

func (e SeasonalEvent) String() string {
	return fmt.Sprintf("%s (%s)", e.Kind, e.Date)
}

// Signal strength thresholds.
const (
	StrongScore = 5
	MediumScore = 3
)

// ConvergencePoint is a future date on which several projections coincide.
type ConvergencePoint struct {
	Date         Date           `json:"date"`
	Score        int            `json:"score"`
	DaysAway     int            `json:"days_away"`
	Contributors []Projection   `json:"contributors"`
	Seasonal     *SeasonalEvent `json:"seasonal,omitempty"`
}

// Strength maps the score to "strong", "medium" or "weak".
func (c ConvergencePoint) Strength() string {
	switch {
	case c.Score >= StrongScore:
		return "strong"
	case c.Score >= MediumScore:
		return "medium"
	default:
		return "weak"
	}
}

// Categories lists the distinct cycle families among the contributors, in first-seen order.
func (c ConvergencePoint) Categories() []CycleCategory {
	seen := make(map[CycleCategory]bool, 3)
	var out []CycleCategory
	for _, p := range c.Contributors {
		if !seen[p.Cycle.Category] {
			seen[p.Cycle.Category] = true
			out = append(out, p.Cycle.Category)
		}
	}
	return out
}
