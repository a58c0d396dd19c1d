package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MarketSnapshot is the fully materialized upstream input of an auto-mode run.
type MarketSnapshot struct {
	Symbol       string
	Source       string
	CurrentPrice float64
	DailyBars    []OHLCV
	Pivots       []Pivot
	FetchedAt    time.Time
}
