package cycle

import (
	"slices"

	"GannCycles/internal/model"
)

// ScoreOptions tunes convergence scoring. The caller supplies every value; there are no hidden defaults.
type ScoreOptions struct {
	// BucketToleranceDays merges projections within this many days of a bucket's center. 0 means exact-date grouping.
	BucketToleranceDays int
	// SeasonalBonus is added to a point within SeasonalWindowDays of a seasonal event.
	SeasonalBonus      int
	SeasonalWindowDays int
	// CrossQuarter also treats the midpoints between solstices and equinoxes as seasonal events.
	CrossQuarter bool
	// MinScore drops weaker points.
	MinScore int
	// Limit caps the number of returned points. 0 means no cap.
	Limit int
}

// Validate rejects negative settings.
func (o ScoreOptions) Validate() error {
	switch {
	case o.BucketToleranceDays < 0:
		return model.NewValidationError("bucket tolerance", "must not be negative, got %d", o.BucketToleranceDays)
	case o.SeasonalBonus < 0:
		return model.NewValidationError("seasonal bonus", "must not be negative, got %d", o.SeasonalBonus)
	case o.SeasonalWindowDays < 0:
		return model.NewValidationError("seasonal window", "must not be negative, got %d", o.SeasonalWindowDays)
	case o.MinScore < 0:
		return model.NewValidationError("min score", "must not be negative, got %d", o.MinScore)
	case o.Limit < 0:
		return model.NewValidationError("limit", "must not be negative, got %d", o.Limit)
	}
	return nil
}

// Scorer aggregates projections into ranked convergence points.
type Scorer struct {
	marker *SeasonalMarker
	opts   ScoreOptions
}

// NewScorer validates opts. A nil marker gets a private one.
func NewScorer(marker *SeasonalMarker, opts ScoreOptions) (*Scorer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if marker == nil {
		marker = NewSeasonalMarker()
	}
	return &Scorer{marker: marker, opts: opts}, nil
}

// Options returns the scorer's settings.
func (s *Scorer) Options() ScoreOptions { return s.opts }

type projectionKey struct {
	date   model.Date
	kind   model.PivotKind
	price  string
	length int
}

func keyOf(p model.Projection) projectionKey {
	return projectionKey{date: p.Source.Date, kind: p.Source.Kind, price: p.Source.Price.String(), length: p.Cycle.LengthDays}
}

type bucket struct {
	center  model.Date
	members []model.Projection
}

// Score groups projections by target date, scores each group and returns the points that reach
// MinScore, ordered by score descending then date ascending. Empty input yields an empty slice.
// The input slice is not modified.
func (s *Scorer) Score(projections []model.Projection, reference model.Date) []model.ConvergencePoint {
	sorted := dedupe(projections)
	slices.SortStableFunc(sorted, compareProjections)

	var buckets []*bucket
	if s.opts.BucketToleranceDays == 0 {
		buckets = exactBuckets(sorted)
	} else {
		buckets = tolerantBuckets(sorted, s.opts.BucketToleranceDays)
	}

	points := make([]model.ConvergencePoint, 0, len(buckets))
	for _, b := range buckets {
		contributors := slices.Clone(b.members)
		slices.SortStableFunc(contributors, func(a, c model.Projection) int {
			if d := a.Source.Date.Compare(c.Source.Date); d != 0 {
				return d
			}
			return a.Cycle.LengthDays - c.Cycle.LengthDays
		})

		pt := model.ConvergencePoint{
			Date:         b.center,
			DaysAway:     reference.DaysUntil(b.center),
			Contributors: contributors,
		}
		if ev, ok := s.marker.Nearest(b.center, s.opts.SeasonalWindowDays, s.opts.CrossQuarter); ok {
			pt.Seasonal = &ev
		}
		pt.Score = PointScore(pt.Contributors, pt.Seasonal, s.opts.SeasonalBonus)
		if pt.Score < s.opts.MinScore {
			continue
		}
		points = append(points, pt)
	}

	slices.SortStableFunc(points, func(a, b model.ConvergencePoint) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return a.Date.Compare(b.Date)
	})
	if s.opts.Limit > 0 && len(points) > s.opts.Limit {
		points = points[:s.opts.Limit]
	}
	return points
}

// PointScore is the score of a point: distinct (pivot, cycle) contributors, +1 when they span at
// least two cycle families, +seasonalBonus when a seasonal event is attached.
func PointScore(contributors []model.Projection, seasonal *model.SeasonalEvent, seasonalBonus int) int {
	pairs := make(map[projectionKey]bool, len(contributors))
	categories := make(map[model.CycleCategory]bool, 3)
	for _, p := range contributors {
		pairs[keyOf(p)] = true
		categories[p.Cycle.Category] = true
	}
	score := len(pairs)
	if len(categories) >= 2 {
		score++
	}
	if seasonal != nil {
		score += seasonalBonus
	}
	return score
}

func dedupe(projections []model.Projection) []model.Projection {
	seen := make(map[projectionKey]bool, len(projections))
	out := make([]model.Projection, 0, len(projections))
	for _, p := range projections {
		k := keyOf(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

// exactBuckets expects projections sorted by target date.
func exactBuckets(sorted []model.Projection) []*bucket {
	var out []*bucket
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].center.Equal(p.TargetDate) {
			out[n-1].members = append(out[n-1].members, p)
			continue
		}
		out = append(out, &bucket{center: p.TargetDate, members: []model.Projection{p}})
	}
	return out
}

// tolerantBuckets places each projection, in date order, into the first bucket whose center is within
// tolerance days. The center then moves to the lower median of the member dates.
func tolerantBuckets(sorted []model.Projection, tolerance int) []*bucket {
	var out []*bucket
	for _, p := range sorted {
		placed := false
		for _, b := range out {
			dist := b.center.DaysUntil(p.TargetDate)
			if dist < 0 {
				dist = -dist
			}
			if dist > tolerance {
				continue
			}
			b.members = append(b.members, p)
			dates := make([]model.Date, len(b.members))
			for i, m := range b.members {
				dates[i] = m.TargetDate
			}
			slices.SortFunc(dates, model.Date.Compare)
			b.center = dates[(len(dates)-1)/2]
			placed = true
			break
		}
		if !placed {
			out = append(out, &bucket{center: p.TargetDate, members: []model.Projection{p}})
		}
	}
	return out
}
