package collector

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"GannCycles/internal/calculator"
	"GannCycles/internal/model"
)

// Collector orchestrates data fetching and pivot detection for auto mode.
type Collector struct {
	Fetcher      Fetcher
	Symbol       string
	Lookback     int
	MinChangePct float64
	HistoryDays  int

	now func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, lookback int, minChangePct float64, historyDays int) *Collector {
	return &Collector{
		Fetcher:      fetcher,
		Symbol:       symbol,
		Lookback:     lookback,
		MinChangePct: minChangePct,
		HistoryDays:  historyDays,
		now:          time.Now,
	}
}

// Collect fetches the current price and daily history, then detects swing pivots.
// Any upstream failure aborts the run; nothing is substituted for missing data.
func (c *Collector) Collect(ctx context.Context) (*model.MarketSnapshot, error) {
	if c.HistoryDays <= 0 {
		return nil, model.NewValidationError("history days", "must be positive, got %d", c.HistoryDays)
	}

	price, err := c.Fetcher.FetchCurrentPrice(ctx, c.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch current price: %w", err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("fetch current price: %s returned non-positive price %v", c.Fetcher.Name(), price)
	}

	bars, err := c.Fetcher.FetchDailyBars(ctx, c.Symbol, c.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}

	pivots, err := calculator.DetectPivots(bars, c.Lookback, c.MinChangePct)
	if err != nil {
		return nil, fmt.Errorf("detect pivots: %w", err)
	}
	if len(pivots) == 0 {
		log.WithFields(log.Fields{
			"symbol": c.Symbol,
			"bars":   len(bars),
		}).Warn("no pivots detected in history")
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return &model.MarketSnapshot{
		Symbol:       c.Symbol,
		Source:       c.Fetcher.Name(),
		CurrentPrice: price,
		DailyBars:    bars,
		Pivots:       pivots,
		FetchedAt:    now().UTC(),
	}, nil
}
