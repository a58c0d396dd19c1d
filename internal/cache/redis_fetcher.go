// Package cache puts a Redis read-through cache in front of a market data fetcher.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"GannCycles/internal/collector"
	"GannCycles/internal/model"
)

// DefaultTTL matches the refresh interval of the dashboard the tool grew out of.
const DefaultTTL = 5 * time.Minute

// Stats tracks cache performance.
type Stats struct {
	Hits   int64
	Misses int64
	Sets   int64
	Errors int64
}

// RedisFetcher wraps a collector.Fetcher. Successful upstream responses are cached for ttl;
// upstream errors are never cached. A Redis outage degrades to direct fetching.
type RedisFetcher struct {
	next   collector.Fetcher
	redis  *redis.Client
	ttl    time.Duration
	prefix string

	mu    sync.Mutex
	stats Stats
}

// NewRedisFetcher wraps next. A non-positive ttl uses DefaultTTL.
func NewRedisFetcher(next collector.Fetcher, client *redis.Client, ttl time.Duration) *RedisFetcher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFetcher{next: next, redis: client, ttl: ttl, prefix: "gann:"}
}

// Name reports the upstream name so reports keep the real data source.
func (f *RedisFetcher) Name() string { return f.next.Name() }

func (f *RedisFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	key := f.prefix + "bars:" + f.next.Name() + ":" + symbol + ":" + strconv.Itoa(days)

	var bars []model.OHLCV
	if f.get(ctx, key, &bars) {
		return bars, nil
	}
	bars, err := f.next.FetchDailyBars(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	f.set(ctx, key, bars)
	return bars, nil
}

func (f *RedisFetcher) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	key := f.prefix + "price:" + f.next.Name() + ":" + symbol

	var price float64
	if f.get(ctx, key, &price) {
		return price, nil
	}
	price, err := f.next.FetchCurrentPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	f.set(ctx, key, price)
	return price, nil
}

func (f *RedisFetcher) get(ctx context.Context, key string, out any) bool {
	data, err := f.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		f.count(func(s *Stats) { s.Misses++ })
		return false
	}
	if err != nil {
		log.WithField("key", key).Warnf("redis get failed, fetching upstream: %v", err)
		f.count(func(s *Stats) { s.Errors++ })
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.WithField("key", key).Warnf("corrupt cache entry, refetching: %v", err)
		f.count(func(s *Stats) { s.Errors++ })
		return false
	}
	f.count(func(s *Stats) { s.Hits++ })
	return true
}

func (f *RedisFetcher) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.WithField("key", key).Warnf("encode cache entry: %v", err)
		return
	}
	if err := f.redis.Set(ctx, key, data, f.ttl).Err(); err != nil {
		log.WithField("key", key).Warnf("redis set failed: %v", err)
		f.count(func(s *Stats) { s.Errors++ })
		return
	}
	f.count(func(s *Stats) { s.Sets++ })
}

func (f *RedisFetcher) count(fn func(*Stats)) {
	f.mu.Lock()
	fn(&f.stats)
	f.mu.Unlock()
}

// GetStats returns a snapshot of the counters.
func (f *RedisFetcher) GetStats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// LogStats logs current cache performance statistics.
func (f *RedisFetcher) LogStats() {
	s := f.GetStats()
	var hitRate float64
	if total := s.Hits + s.Misses; total > 0 {
		hitRate = float64(s.Hits) / float64(total) * 100
	}
	log.WithFields(log.Fields{
		"hits":   s.Hits,
		"misses": s.Misses,
		"sets":   s.Sets,
		"errors": s.Errors,
	}).Infof("fetch cache hit rate %.2f%%", hitRate)
}

// Ping checks connectivity.
func (f *RedisFetcher) Ping(ctx context.Context) error {
	if err := f.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
