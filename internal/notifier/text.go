package notifier

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"GannCycles/internal/model"
)

// WriteText renders the full report as plain text for a terminal.
func WriteText(w io.Writer, r *model.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	p := func(format string, args ...any) { fmt.Fprintf(tw, format, args...) }

	p("GANN CYCLE ANALYSIS  %s\n", r.RunID)
	p("Symbol:\t%s (%s)\n", orDash(r.Symbol), r.Source)
	p("Date:\t%s\n", r.AnalysisDate)
	p("Window:\t%s .. %s (%d days)\n", r.AnalysisDate, r.EndDate, r.HorizonDays)
	p("Price:\t$%s\n\n", model.FormatPrice(r.CurrentPrice))

	p("PIVOTS\n")
	for _, pv := range r.Pivots {
		p("  %s\t%s\t$%s\n", pv.Date, pv.Kind, model.FormatPrice(pv.Price))
	}

	p("\nCONVERGENCE POINTS (%d)\n", len(r.Convergences))
	if len(r.Convergences) == 0 {
		p("  none\n")
	}
	for _, cp := range r.Convergences {
		seasonal := ""
		if cp.Seasonal != nil {
			seasonal = seasonalName(cp.Seasonal.Kind) + " " + cp.Seasonal.Date.String()
		}
		p("  %s\tscore %d\t%s\t+%dd\t%s\n", cp.Date, cp.Score, strings.ToUpper(cp.Strength()), cp.DaysAway, seasonal)
		for _, c := range cp.Contributors {
			p("  \t\t\t\t  %s\n", c.Describe())
		}
	}

	if len(r.SeasonalEvents) > 0 {
		p("\nSEASONAL DATES\n")
		for _, ev := range r.SeasonalEvents {
			p("  %s\t%s\n", ev.Date, seasonalName(ev.Kind))
		}
	}

	p("\nPRICE LEVELS\n")
	for _, family := range []struct {
		name   string
		levels []model.PriceLevel
	}{
		{"Square of nine", r.Levels.SquareOfNine},
		{"Harmonic", r.Levels.Harmonic},
		{"Retracement", r.Levels.Retracement},
		{"Pivot division", r.Levels.PivotDivision},
	} {
		if len(family.levels) == 0 {
			continue
		}
		p("  %s\n", family.name)
		for _, l := range family.levels {
			p("    $%s\t%s\t%s\n", model.FormatPrice(l.Price), strings.ToLower(string(l.Role)), l.Label)
		}
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
