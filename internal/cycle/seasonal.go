package cycle

import (
	"math"
	"slices"
	"sync"
	"time"

	"GannCycles/internal/model"
)

// SeasonalMarker computes solstice and equinox dates with Meeus' algorithm (Astronomical Algorithms,
// ch. 27): mean-equinox polynomials plus the 24 periodic terms, converted to a UTC calendar day.
// The instant is accurate to minutes; the calendar day may differ by one from local-time almanacs,
// which is within the ±1 day tolerance scoring allows. Results are memoized per year and the marker
// is safe for concurrent use.
type SeasonalMarker struct {
	mu    sync.Mutex
	solar map[int][]model.SeasonalEvent
}

// NewSeasonalMarker returns an empty marker.
func NewSeasonalMarker() *SeasonalMarker {
	return &SeasonalMarker{solar: make(map[int][]model.SeasonalEvent)}
}

var solarKinds = [4]model.SeasonalKind{
	model.SpringEquinox, model.SummerSolstice, model.AutumnEquinox, model.WinterSolstice,
}

// SolarEvents returns the spring equinox, summer solstice, autumn equinox and winter solstice of year.
func (m *SeasonalMarker) SolarEvents(year int) []model.SeasonalEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.solar[year]; ok {
		return slices.Clone(ev)
	}
	ev := make([]model.SeasonalEvent, 0, 4)
	for i, kind := range solarKinds {
		ev = append(ev, model.SeasonalEvent{Kind: kind, Date: model.DateOf(julianToTime(solarJDE(year, i)))})
	}
	m.solar[year] = ev
	return slices.Clone(ev)
}

// CrossQuarterEvents returns the four calendar midpoints between consecutive solar events of year.
// The winter-spring midpoint is measured from the previous year's winter solstice.
func (m *SeasonalMarker) CrossQuarterEvents(year int) []model.SeasonalEvent {
	prev := m.SolarEvents(year - 1)
	cur := m.SolarEvents(year)
	mid := func(a, b model.Date) model.Date { return a.AddDays(a.DaysUntil(b) / 2) }
	return []model.SeasonalEvent{
		{Kind: model.WinterSpringMidpoint, Date: mid(prev[3].Date, cur[0].Date)},
		{Kind: model.SpringSummerMidpoint, Date: mid(cur[0].Date, cur[1].Date)},
		{Kind: model.SummerAutumnMidpoint, Date: mid(cur[1].Date, cur[2].Date)},
		{Kind: model.AutumnWinterMidpoint, Date: mid(cur[2].Date, cur[3].Date)},
	}
}

func (m *SeasonalMarker) eventsOfYear(year int, crossQuarter bool) []model.SeasonalEvent {
	ev := m.SolarEvents(year)
	if crossQuarter {
		ev = append(ev, m.CrossQuarterEvents(year)...)
	}
	return ev
}

// EventsBetween lists the events dated within [from, to], sorted by date.
func (m *SeasonalMarker) EventsBetween(from, to model.Date, crossQuarter bool) []model.SeasonalEvent {
	var out []model.SeasonalEvent
	for y := from.Year(); y <= to.Year(); y++ {
		for _, e := range m.eventsOfYear(y, crossQuarter) {
			if !e.Date.Before(from) && !e.Date.After(to) {
				out = append(out, e)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b model.SeasonalEvent) int { return a.Date.Compare(b.Date) })
	return out
}

// Nearest returns the event closest to d when it lies within windowDays. Ties go to the earlier event.
func (m *SeasonalMarker) Nearest(d model.Date, windowDays int, crossQuarter bool) (model.SeasonalEvent, bool) {
	from, to := d.AddDays(-windowDays), d.AddDays(windowDays)
	best, bestDist, found := model.SeasonalEvent{}, 0, false
	for _, e := range m.EventsBetween(from, to, crossQuarter) {
		dist := d.DaysUntil(e.Date)
		if dist < 0 {
			dist = -dist
		}
		if !found || dist < bestDist {
			best, bestDist, found = e, dist, true
		}
	}
	return best, found
}

type periodicTerm struct{ a, b, c float64 }

var periodicTerms = []periodicTerm{
	{485, 324.96, 1934.136}, {203, 337.23, 32964.467}, {199, 342.08, 20.186},
	{182, 27.85, 445267.112}, {156, 73.14, 45036.886}, {136, 171.52, 22518.443},
	{77, 222.54, 65928.934}, {74, 296.72, 3034.906}, {70, 243.58, 9037.513},
	{58, 119.81, 33718.147}, {52, 297.17, 150.678}, {50, 21.02, 2281.226},
	{45, 247.54, 29929.562}, {44, 325.15, 31555.956}, {29, 60.93, 4443.417},
	{18, 155.12, 67555.328}, {17, 288.79, 4562.452}, {16, 198.04, 62894.029},
	{14, 199.76, 31436.921}, {12, 95.39, 14577.848}, {12, 287.11, 31931.756},
	{12, 320.81, 34777.259}, {9, 227.73, 1222.114}, {8, 15.45, 16859.074},
}

// Mean-equinox polynomial coefficients, one row per event, for years before and after 1000 AD.
var (
	meanBefore1000 = [4][5]float64{
		{1721139.29189, 365242.13740, 0.06134, 0.00111, -0.00071},
		{1721233.25401, 365241.72562, -0.05323, 0.00907, 0.00025},
		{1721325.70455, 365242.49558, -0.11677, -0.00297, 0.00074},
		{1721414.39987, 365242.88257, -0.00769, -0.00933, -0.00006},
	}
	meanAfter1000 = [4][5]float64{
		{2451623.80984, 365242.37404, 0.05169, -0.00411, -0.00057},
		{2451716.56767, 365241.62603, 0.00325, 0.00888, -0.00030},
		{2451810.21715, 365242.01767, -0.11575, 0.00337, 0.00078},
		{2451900.05952, 365242.74049, -0.06223, -0.00823, 0.00032},
	}
)

// solarJDE returns the Julian Ephemeris Day of event (0 = March ... 3 = December) in year.
func solarJDE(year, event int) float64 {
	coef := meanAfter1000[event]
	y := float64(year-2000) / 1000
	if year < 1000 {
		coef = meanBefore1000[event]
		y = float64(year) / 1000
	}
	jde0 := coef[0] + y*(coef[1]+y*(coef[2]+y*(coef[3]+y*coef[4])))

	t := (jde0 - 2451545.0) / 36525
	w := deg(35999.373*t - 2.47)
	dl := 1 + 0.0334*math.Cos(w) + 0.0007*math.Cos(2*w)
	s := 0.0
	for _, p := range periodicTerms {
		s += p.a * math.Cos(deg(p.b+p.c*t))
	}
	return jde0 + 0.00001*s/dl
}

func deg(d float64) float64 { return d * math.Pi / 180 }

// julianToTime converts a Julian Day to UTC. The TT-UT difference (about a minute) is ignored.
func julianToTime(jd float64) time.Time {
	const unixEpochJD = 2440587.5
	secs := (jd - unixEpochJD) * 86400
	return time.Unix(int64(math.Floor(secs)), 0).UTC()
}
