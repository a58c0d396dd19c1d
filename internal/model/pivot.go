package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PivotKind tells whether a pivot is a local high or a local low.
type PivotKind string

const (
	PivotHigh PivotKind = "HIGH"
	PivotLow  PivotKind = "LOW"
)

// ParsePivotKind accepts "high"/"low" in any case.
func ParsePivotKind(s string) (PivotKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(PivotHigh):
		return PivotHigh, nil
	case string(PivotLow):
		return PivotLow, nil
	default:
		return "", NewValidationError("pivot type", "unknown type %q (want high or low)", s)
	}
}

// Pivot is a historical price extremum used as the anchor of cycle projections.
type Pivot struct {
	Date  Date            `json:"date"`
	Kind  PivotKind       `json:"type"`
	Price decimal.Decimal `json:"price"`
}

// NewPivot validates and builds a Pivot.
func NewPivot(date Date, kind PivotKind, price decimal.Decimal) (Pivot, error) {
	if date.IsZero() {
		return Pivot{}, NewValidationError("pivot date", "date is required")
	}
	if kind != PivotHigh && kind != PivotLow {
		return Pivot{}, NewValidationError("pivot type", "unknown type %q", kind)
	}
	if !price.IsPositive() {
		return Pivot{}, NewValidationError("pivot price", "price must be positive, got %s", price)
	}
	return Pivot{Date: date, Kind: kind, Price: price}, nil
}

// Label renders the pivot the way reports refer to it, e.g. "2024-11-10 HIGH $93,000".
func (p Pivot) Label() string {
	return fmt.Sprintf("%s %s $%s", p.Date, p.Kind, FormatPrice(p.Price))
}

// PivotInput is the loosely typed wire shape of a pivot, as supplied on the command line or in YAML.
type PivotInput struct {
	Date  string  `json:"date" yaml:"date"`
	Type  string  `json:"type" yaml:"type"`
	Price float64 `json:"price" yaml:"price"`
}

// ParsePivot validates a single wire pivot.
func ParsePivot(in PivotInput) (Pivot, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return Pivot{}, NewValidationError("pivot date", "%v", err)
	}
	kind, err := ParsePivotKind(in.Type)
	if err != nil {
		return Pivot{}, err
	}
	return NewPivot(date, kind, decimal.NewFromFloat(in.Price))
}

// ParsePivots validates every input and returns either all pivots or the first failure.
func ParsePivots(inputs []PivotInput) ([]Pivot, error) {
	pivots := make([]Pivot, 0, len(inputs))
	for i, in := range inputs {
		p, err := ParsePivot(in)
		if err != nil {
			return nil, fmt.Errorf("pivot #%d: %w", i+1, err)
		}
		pivots = append(pivots, p)
	}
	return pivots, nil
}

// ValidatePivots checks already-built pivots, e.g. ones handed over by an upstream detector.
func ValidatePivots(pivots []Pivot) error {
	for i, p := range pivots {
		if _, err := NewPivot(p.Date, p.Kind, p.Price); err != nil {
			return fmt.Errorf("pivot #%d: %w", i+1, err)
		}
	}
	return nil
}
