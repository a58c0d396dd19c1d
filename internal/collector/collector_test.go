package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GannCycles/internal/model"
)

func TestBinanceFetcher_FetchDailyBars(t *testing.T) {
	var gotLimit, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		gotLimit = r.URL.Query().Get("limit")
		gotInterval = r.URL.Query().Get("interval")
		_, _ = w.Write([]byte(`[
			[1704153600000,"42000.1","43000.5","41500.0","42800.0","1200.5",1704239999999,"0",1,"0","0","0"],
			[1704067200000,"41000.0","42500.0","40800.0","42000.1","900.0",1704153599999,"0",1,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	hook := logtest.NewGlobal()
	defer hook.Reset()

	f := NewBinanceFetcher(srv.URL, "")
	bars, err := f.FetchDailyBars(context.Background(), "BTCUSDT", 5000)
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry, "truncated history is reported")
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, 5000, entry.Data["requested"])
	assert.Equal(t, 2, entry.Data["served"])

	assert.Equal(t, "1000", gotLimit, "limit is capped at the Binance page size")
	assert.Equal(t, "1d", gotInterval)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time, "bars are sorted oldest first")
	assert.InDelta(t, 43000.5, bars[1].High, 1e-9)
	assert.InDelta(t, 1200.5, bars[1].Volume, 1e-9)
}

func TestBinanceFetcher_NoWarningWithinLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	hook := logtest.NewGlobal()
	defer hook.Reset()

	_, err := NewBinanceFetcher(srv.URL, "").FetchDailyBars(context.Background(), "BTCUSDT", 1000)
	require.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}

func TestBinanceFetcher_FetchCurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"67123.45000000"}`))
	}))
	defer srv.Close()

	price, err := NewBinanceFetcher(srv.URL, "").FetchCurrentPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 67123.45, price, 1e-9)
}

func TestBinanceFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := NewBinanceFetcher(srv.URL, "").FetchCurrentPrice(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "Invalid symbol")
}

func TestBinanceFetcher_MalformedKline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[[1704067200000,"abc","1","1","1","1"]]`))
	}))
	defer srv.Close()

	_, err := NewBinanceFetcher(srv.URL, "").FetchDailyBars(context.Background(), "BTCUSDT", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kline #0")
}

func TestYahooFetcher_SkipsNullBars(t *testing.T) {
	var gotPath, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704067200,1704153600,1704240000],
			"indicators":{"quote":[{"open":[100,null,102],"high":[110,null,112],"low":[95,null,97],
			"close":[105,null,107],"volume":[1000,null,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "")
	bars, err := f.FetchDailyBars(context.Background(), "BTCUSDT", 700)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BTC-USD", gotPath)
	assert.Equal(t, "2y", gotRange)
	require.Len(t, bars, 2)
	assert.InDelta(t, 107.0, bars[1].Close, 1e-9)
	assert.Zero(t, bars[1].Volume)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	_, err := NewYahooFetcher(srv.URL, "").FetchCurrentPrice(context.Background(), "ZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestYahooRange(t *testing.T) {
	assert.Equal(t, "1mo", yahooRange(30))
	assert.Equal(t, "1y", yahooRange(365))
	assert.Equal(t, "5y", yahooRange(1000))
	assert.Equal(t, "max", yahooRange(4000))
}

func TestCollector_Collect(t *testing.T) {
	mock := &MockFetcher{Price: 50000}
	c := NewCollector(mock, "BTCUSDT", 5, 5, 365)
	c.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }

	snap, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, "mock", snap.Source)
	assert.InDelta(t, 50000.0, snap.CurrentPrice, 1e-9)
	assert.Len(t, snap.DailyBars, 365)
	assert.NotEmpty(t, snap.Pivots, "the mock sine wave has swings")
	assert.Equal(t, 1, mock.BarCalls)
	assert.Equal(t, 1, mock.PriceCalls)

	for i := 1; i < len(snap.Pivots); i++ {
		assert.NotEqual(t, snap.Pivots[i-1].Kind, snap.Pivots[i].Kind, "filtered pivots alternate")
	}
}

func TestCollector_PropagatesUpstreamFailure(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewCollector(&MockFetcher{Err: boom}, "BTCUSDT", 5, 5, 365)

	snap, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, boom)
}

func TestCollector_RejectsBadConfiguration(t *testing.T) {
	_, err := NewCollector(&MockFetcher{Price: 1}, "X", 5, 5, 0).Collect(context.Background())
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = NewCollector(&MockFetcher{Price: 1}, "X", 0, 5, 100).Collect(context.Background())
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCollector_ShortHistoryYieldsNoPivots(t *testing.T) {
	mock := &MockFetcher{Price: 100, DailyData: generateMockBars(100, 6)}
	snap, err := NewCollector(mock, "X", 5, 5, 100).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Pivots)
}
