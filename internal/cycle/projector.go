package cycle

import (
	"slices"

	"GannCycles/internal/model"
)

// Project moves every pivot forward by every catalog cycle and keeps the targets that fall inside
// [reference, reference+horizonDays]. The result is sorted by target date, then pivot date, then length.
func Project(pivots []model.Pivot, catalog Catalog, horizonDays int, reference model.Date) ([]model.Projection, error) {
	if horizonDays <= 0 {
		return nil, model.NewValidationError("horizon", "horizon must be positive, got %d days", horizonDays)
	}
	if reference.IsZero() {
		return nil, model.NewValidationError("reference date", "reference date is required")
	}

	end := reference.AddDays(horizonDays)
	cycles := catalog.Cycles()
	projections := make([]model.Projection, 0)
	for _, p := range pivots {
		for _, c := range cycles {
			target := p.Date.AddDays(c.LengthDays)
			if target.Before(reference) || target.After(end) {
				continue
			}
			projections = append(projections, model.Projection{Source: p, Cycle: c, TargetDate: target})
		}
	}

	slices.SortStableFunc(projections, compareProjections)
	return projections, nil
}

func compareProjections(a, b model.Projection) int {
	if c := a.TargetDate.Compare(b.TargetDate); c != 0 {
		return c
	}
	if c := a.Source.Date.Compare(b.Source.Date); c != 0 {
		return c
	}
	return a.Cycle.LengthDays - b.Cycle.LengthDays
}
