package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"GannCycles/internal/model"
	"GannCycles/internal/recorder"
)

// maxMessagePoints caps the convergence list in chat messages; Telegram rejects messages over 4096 chars.
const maxMessagePoints = 10

var strengthIcon = map[string]string{
	"strong": "🔴",
	"medium": "🟡",
	"weak":   "⚪",
}

// FormatReport formats a report into an HTML Telegram message.
func FormatReport(r *model.Report) string {
	var b strings.Builder

	title := "Gann Cycle Report"
	if r.Symbol != "" {
		title += " · " + html.EscapeString(r.Symbol)
	}
	b.WriteString(fmt.Sprintf("📅 <b>%s</b> | %s\n", title, r.AnalysisDate))
	b.WriteString(fmt.Sprintf("Price: $%s (%s)\n", model.FormatPrice(r.CurrentPrice), html.EscapeString(r.Source)))
	b.WriteString(fmt.Sprintf("Window: %s → %s (%d days), %d pivots\n\n",
		r.AnalysisDate, r.EndDate, r.HorizonDays, len(r.Pivots)))

	if len(r.Convergences) == 0 {
		b.WriteString("No convergence points in the window.\n")
	} else {
		b.WriteString("🎯 <b>Convergence points:</b>\n")
		for i, cp := range r.Convergences {
			if i == maxMessagePoints {
				b.WriteString(fmt.Sprintf("  … %d more\n", len(r.Convergences)-maxMessagePoints))
				break
			}
			b.WriteString(fmt.Sprintf("%s <b>%s</b> score %d · in %dd",
				strengthIcon[cp.Strength()], cp.Date, cp.Score, cp.DaysAway))
			if cp.Seasonal != nil {
				b.WriteString(" · 🌗 " + seasonalName(cp.Seasonal.Kind))
			}
			b.WriteString("\n")
			for _, p := range cp.Contributors {
				b.WriteString("    " + html.EscapeString(p.Describe()) + "\n")
			}
		}
	}

	if len(r.SeasonalEvents) > 0 {
		b.WriteString("\n🌍 <b>Seasonal dates:</b>\n")
		for _, ev := range r.SeasonalEvents {
			b.WriteString(fmt.Sprintf("  %s %s\n", ev.Date, seasonalName(ev.Kind)))
		}
	}
	return b.String()
}

// FormatLevels lists the supports and resistances closest to the current price.
func FormatLevels(r *model.Report, n int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📐 <b>Price levels</b> | $%s\n\n", model.FormatPrice(r.CurrentPrice)))

	supports, resistances := NearestLevels(r.Levels.All(), r.CurrentPrice, n)
	b.WriteString("⬆️ <b>Resistance:</b>\n")
	writeLevels(&b, resistances)
	b.WriteString("\n⬇️ <b>Support:</b>\n")
	writeLevels(&b, supports)
	return b.String()
}

func writeLevels(b *strings.Builder, levels []model.PriceLevel) {
	if len(levels) == 0 {
		b.WriteString("  none\n")
		return
	}
	for _, l := range levels {
		b.WriteString(fmt.Sprintf("  $%s  %s %s\n", model.FormatPrice(l.Price),
			methodName(l.Method), html.EscapeString(l.Label)))
	}
}

// NearestLevels splits levels around current and returns up to n of each side, closest first.
// Levels equal to current are omitted. Duplicate prices keep the first level.
func NearestLevels(levels []model.PriceLevel, current decimal.Decimal, n int) (supports, resistances []model.PriceLevel) {
	seen := make(map[string]bool, len(levels))
	for _, l := range levels {
		key := l.Price.Round(2).String()
		if seen[key] {
			continue
		}
		seen[key] = true
		switch l.Price.Cmp(current) {
		case -1:
			supports = append(supports, l)
		case 1:
			resistances = append(resistances, l)
		}
	}
	sort.SliceStable(supports, func(i, j int) bool { return supports[i].Price.GreaterThan(supports[j].Price) })
	sort.SliceStable(resistances, func(i, j int) bool { return resistances[i].Price.LessThan(resistances[j].Price) })
	if len(supports) > n {
		supports = supports[:n]
	}
	if len(resistances) > n {
		resistances = resistances[:n]
	}
	return supports, resistances
}

// FormatHistory formats recent runs for the /history command.
func FormatHistory(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No recorded runs yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, run := range runs {
		b.WriteString(fmt.Sprintf("%s %s $%s · %d points", run.AnalysisDate,
			html.EscapeString(run.Symbol), formatPriceString(run.CurrentPrice), run.ConvergenceCount))
		if run.TopDate != "" {
			b.WriteString(fmt.Sprintf(" · top %s (%d)", run.TopDate, run.TopScore))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatPriceString(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return html.EscapeString(s)
	}
	return model.FormatPrice(d)
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "🤖 <b>Gann cycle bot</b>\n\n" +
		"/report - run the analysis now and show convergence dates\n" +
		"/levels - price levels around the current price\n" +
		"/history - recently recorded runs\n" +
		"/help - this message"
}

// FormatError formats a failed run notification.
func FormatError(task string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s failed</b>\n%s", html.EscapeString(task), html.EscapeString(err.Error()))
}

func seasonalName(k model.SeasonalKind) string {
	switch k {
	case model.SpringEquinox:
		return "spring equinox"
	case model.SummerSolstice:
		return "summer solstice"
	case model.AutumnEquinox:
		return "autumn equinox"
	case model.WinterSolstice:
		return "winter solstice"
	case model.WinterSpringMidpoint:
		return "winter/spring midpoint"
	case model.SpringSummerMidpoint:
		return "spring/summer midpoint"
	case model.SummerAutumnMidpoint:
		return "summer/autumn midpoint"
	case model.AutumnWinterMidpoint:
		return "autumn/winter midpoint"
	}
	return strings.ToLower(string(k))
}

func methodName(m model.LevelMethod) string {
	switch m {
	case model.MethodSquareOfNine:
		return "SQ9"
	case model.MethodHarmonic:
		return "harmonic"
	case model.MethodPercentage:
		return "pct"
	}
	return string(m)
}
