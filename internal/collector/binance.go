package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"GannCycles/internal/model"
)

// DefaultBinanceURL is the public spot API.
const DefaultBinanceURL = "https://api.binance.com"

// binanceMaxLimit is the largest kline page Binance serves.
const binanceMaxLimit = 1000

// BinanceFetcher implements Fetcher using the Binance spot REST API.
type BinanceFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewBinanceFetcher creates a fetcher with optional proxy support. An empty baseURL uses DefaultBinanceURL.
func NewBinanceFetcher(baseURL, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = DefaultBinanceURL
	}
	return &BinanceFetcher{BaseURL: baseURL, Client: newHTTPClient(proxyURL, 30*time.Second)}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchDailyBars returns up to days daily klines, capped at Binance's page size of 1000.
func (f *BinanceFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if days <= 0 {
		return nil, fmt.Errorf("binance klines: days must be positive, got %d", days)
	}
	limit := min(days, binanceMaxLimit)
	q := url.Values{"symbol": {symbol}, "interval": {"1d"}, "limit": {strconv.Itoa(limit)}}

	var raw [][]any
	if err := f.get(ctx, "/api/v3/klines", q, &raw); err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	if days > binanceMaxLimit {
		log.WithFields(log.Fields{
			"symbol":    symbol,
			"requested": days,
			"served":    len(raw),
		}).Warnf("binance serves at most %d daily bars; history is truncated", binanceMaxLimit)
	}

	bars := make([]model.OHLCV, 0, len(raw))
	for i, k := range raw {
		bar, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("binance kline #%d: %w", i, err)
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *BinanceFetcher) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := f.get(ctx, "/api/v3/ticker/price", url.Values{"symbol": {symbol}}, &ticker); err != nil {
		return 0, fmt.Errorf("binance ticker: %w", err)
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance ticker: parse price %q: %w", ticker.Price, err)
	}
	return price, nil
}

func (f *BinanceFetcher) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "gann-cycles/1.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// parseKline reads [openTime, open, high, low, close, volume, ...]; prices arrive as strings.
func parseKline(k []any) (model.OHLCV, error) {
	if len(k) < 6 {
		return model.OHLCV{}, fmt.Errorf("expected at least 6 fields, got %d", len(k))
	}
	openTime, ok := k[0].(float64)
	if !ok {
		return model.OHLCV{}, fmt.Errorf("open time is %T", k[0])
	}
	var vals [5]float64
	for i := range vals {
		s, ok := k[i+1].(string)
		if !ok {
			return model.OHLCV{}, fmt.Errorf("field %d is %T", i+1, k[i+1])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.OHLCV{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return model.OHLCV{
		Time:   time.UnixMilli(int64(openTime)).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
