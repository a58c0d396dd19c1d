package cycle

import (
	"slices"

	"GannCycles/internal/model"
)

// Default cycle tables, in days.
var (
	defaultGann      = []int{30, 45, 60, 72, 90, 120, 144, 150, 180, 210, 225, 240, 270, 300, 315, 330, 360, 720}
	defaultSquare    = []int{49, 64, 81, 100, 121, 144, 169, 196, 225, 256, 289, 324, 361, 400}
	defaultFibonacci = []int{21, 34, 55, 89, 144, 233, 377}
)

// Catalog is an immutable registry of projection cycle lengths grouped by family.
// Build one with NewCatalog or DefaultCatalog and pass it to Project.
type Catalog struct {
	gann      []int
	square    []int
	fibonacci []int
	unique    []model.Cycle
}

// NewCatalog deduplicates and sorts each family. Lengths must be positive.
func NewCatalog(gann, square, fibonacci []int) (Catalog, error) {
	c := Catalog{}
	var err error
	if c.gann, err = normalize("gann", gann); err != nil {
		return Catalog{}, err
	}
	if c.square, err = normalize("square", square); err != nil {
		return Catalog{}, err
	}
	if c.fibonacci, err = normalize("fibonacci", fibonacci); err != nil {
		return Catalog{}, err
	}

	// A length listed by several families belongs to the first one in Gann, Square, Fibonacci order,
	// so one pivot never yields two projections with the same length.
	seen := make(map[int]bool)
	add := func(lengths []int, cat model.CycleCategory) {
		for _, l := range lengths {
			if !seen[l] {
				seen[l] = true
				c.unique = append(c.unique, model.Cycle{LengthDays: l, Category: cat})
			}
		}
	}
	add(c.gann, model.CategoryGann)
	add(c.square, model.CategorySquare)
	add(c.fibonacci, model.CategoryFibonacci)
	slices.SortFunc(c.unique, func(a, b model.Cycle) int { return a.LengthDays - b.LengthDays })
	return c, nil
}

// DefaultCatalog returns the classical tables.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(defaultGann, defaultSquare, defaultFibonacci)
	if err != nil {
		panic("cycle: default catalog: " + err.Error())
	}
	return c
}

func normalize(family string, lengths []int) ([]int, error) {
	out := slices.Clone(lengths)
	for _, l := range out {
		if l <= 0 {
			return nil, model.NewValidationError(family+" cycle", "length must be positive, got %d", l)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (c Catalog) Gann() []int      { return slices.Clone(c.gann) }
func (c Catalog) Square() []int    { return slices.Clone(c.square) }
func (c Catalog) Fibonacci() []int { return slices.Clone(c.fibonacci) }

// Cycles returns every distinct length once, tagged with its owning family, sorted by length.
func (c Catalog) Cycles() []model.Cycle {
	return slices.Clone(c.unique)
}

// MaxLength is the longest cycle in the catalog, or 0 for an empty catalog.
func (c Catalog) MaxLength() int {
	if len(c.unique) == 0 {
		return 0
	}
	return c.unique[len(c.unique)-1].LengthDays
}
