package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LevelRole says whether a level sits above (resistance) or below (support) the price it is judged against.
type LevelRole string

const (
	RoleSupport    LevelRole = "SUPPORT"
	RoleResistance LevelRole = "RESISTANCE"
)

// LevelMethod names the algorithm that produced a level.
type LevelMethod string

const (
	MethodSquareOfNine LevelMethod = "SQUARE_OF_NINE"
	MethodHarmonic     LevelMethod = "HARMONIC"
	MethodPercentage   LevelMethod = "PERCENTAGE"
)

// PriceLevel is a derived support or resistance price.
type PriceLevel struct {
	Price          decimal.Decimal `json:"price"`
	Role           LevelRole       `json:"role"`
	Method         LevelMethod     `json:"method"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	Label          string          `json:"label"`
}

// FormatPrice renders a price rounded to whole units with thousands separators, e.g. 93000 -> "93,000".
func FormatPrice(p decimal.Decimal) string {
	s := p.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
