package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GannCycles/internal/collector"
	"GannCycles/internal/model"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return s, client
}

func TestRedisFetcher_CachesPrice(t *testing.T) {
	s, client := setupTestRedis(t)
	mock := &collector.MockFetcher{Price: 64000}
	f := NewRedisFetcher(mock, client, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		price, err := f.FetchCurrentPrice(ctx, "BTCUSDT")
		require.NoError(t, err)
		assert.InDelta(t, 64000.0, price, 1e-9)
	}
	assert.Equal(t, 1, mock.PriceCalls)
	assert.Equal(t, Stats{Hits: 2, Misses: 1, Sets: 1}, f.GetStats())

	s.FastForward(2 * time.Minute)
	_, err := f.FetchCurrentPrice(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.PriceCalls, "expired entries are refetched")
}

func TestRedisFetcher_CachesBarsPerWindow(t *testing.T) {
	s, client := setupTestRedis(t)
	mock := &collector.MockFetcher{Price: 100}
	f := NewRedisFetcher(mock, client, 0)
	ctx := context.Background()

	first, err := f.FetchDailyBars(ctx, "BTCUSDT", 30)
	require.NoError(t, err)
	second, err := f.FetchDailyBars(ctx, "BTCUSDT", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.BarCalls)
	require.Len(t, second, 30)
	assert.True(t, first[10].Time.Equal(second[10].Time))
	assert.InDelta(t, first[10].Close, second[10].Close, 1e-9)

	_, err = f.FetchDailyBars(ctx, "BTCUSDT", 60)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.BarCalls, "a different window is a different key")

	assert.Equal(t, DefaultTTL, s.TTL("gann:bars:mock:BTCUSDT:30"))
}

func TestRedisFetcher_DoesNotCacheErrors(t *testing.T) {
	s, client := setupTestRedis(t)
	boom := errors.New("upstream down")
	mock := &collector.MockFetcher{Err: boom}
	f := NewRedisFetcher(mock, client, time.Minute)

	_, err := f.FetchCurrentPrice(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Exists("gann:price:mock:BTCUSDT"))
}

func TestRedisFetcher_RedisOutageFallsThrough(t *testing.T) {
	s, client := setupTestRedis(t)
	mock := &collector.MockFetcher{Price: 5}
	f := NewRedisFetcher(mock, client, time.Minute)
	s.Close()

	price, err := f.FetchCurrentPrice(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, price, 1e-9)
	assert.Equal(t, 1, mock.PriceCalls)
	assert.Positive(t, f.GetStats().Errors)
	assert.Error(t, f.Ping(context.Background()))
}

func TestRedisFetcher_CorruptEntry(t *testing.T) {
	s, client := setupTestRedis(t)
	mock := &collector.MockFetcher{DailyData: []model.OHLCV{{Close: 1}}}
	f := NewRedisFetcher(mock, client, time.Minute)
	require.NoError(t, s.Set("gann:bars:mock:X:1", "{not json"))

	bars, err := f.FetchDailyBars(context.Background(), "X", 1)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 1, mock.BarCalls)
}

func TestRedisFetcher_Name(t *testing.T) {
	_, client := setupTestRedis(t)
	assert.Equal(t, "mock", NewRedisFetcher(&collector.MockFetcher{}, client, 0).Name())
}
