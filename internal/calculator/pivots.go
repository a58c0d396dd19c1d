package calculator

import (
	"math"

	"github.com/shopspring/decimal"

	"GannCycles/internal/model"
)

// DetectPivots scans daily bars for swing points and returns them in chronological order.
//
// Bar i is a HIGH when its high is strictly above every other high within lookback bars on either
// side, otherwise a LOW when its low is strictly below every other low in that window. Raw swings
// are then thinned: of two consecutive same-kind swings the more extreme one is kept, and a swing of
// the opposite kind is kept only when it moved at least minChangePct percent from the last kept one.
//
// Fewer than 2*lookback+1 bars yield no pivots.
func DetectPivots(bars []model.OHLCV, lookback int, minChangePct float64) ([]model.Pivot, error) {
	if lookback <= 0 {
		return nil, model.NewValidationError("lookback", "must be positive, got %d", lookback)
	}
	if math.IsNaN(minChangePct) || minChangePct < 0 {
		return nil, model.NewValidationError("min change", "must not be negative, got %v", minChangePct)
	}
	n := len(bars)
	if n < 2*lookback+1 {
		return []model.Pivot{}, nil
	}

	type swing struct {
		bar   model.OHLCV
		kind  model.PivotKind
		price float64
	}
	var raw []swing
	for i := lookback; i < n-lookback; i++ {
		isHigh, isLow := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if j == i {
				continue
			}
			if bars[i].High <= bars[j].High {
				isHigh = false
			}
			if bars[i].Low >= bars[j].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		switch {
		case isHigh:
			raw = append(raw, swing{bar: bars[i], kind: model.PivotHigh, price: bars[i].High})
		case isLow:
			raw = append(raw, swing{bar: bars[i], kind: model.PivotLow, price: bars[i].Low})
		}
	}
	if len(raw) == 0 {
		return []model.Pivot{}, nil
	}

	kept := []swing{raw[0]}
	for _, s := range raw[1:] {
		last := &kept[len(kept)-1]
		if s.kind == last.kind {
			if (s.kind == model.PivotHigh && s.price > last.price) || (s.kind == model.PivotLow && s.price < last.price) {
				*last = s
			}
			continue
		}
		change := 0.0
		if last.price != 0 {
			change = math.Abs(s.price-last.price) / last.price * 100
		}
		if change >= minChangePct {
			kept = append(kept, s)
		}
	}

	pivots := make([]model.Pivot, 0, len(kept))
	for _, s := range kept {
		p, err := model.NewPivot(model.DateOf(s.bar.Time.UTC()), s.kind, decimal.NewFromFloat(s.price))
		if err != nil {
			return nil, err
		}
		pivots = append(pivots, p)
	}
	return pivots, nil
}
