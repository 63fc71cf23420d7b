// Package marketdata serves the candle proxy routes: it validates requests,
// throttles upstream calls and caches responses for a short TTL.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/backtrack/internal/cache"
	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/marketdata/binance"
	"github.com/newthinker/backtrack/internal/marketdata/yahoo"
	"github.com/newthinker/backtrack/internal/metrics"
)

const (
	MinLimit        = 1
	MaxLimit        = 1000
	DefaultLimit    = 500
	DefaultInterval = "1d"
)

// Provider is an upstream candle source.
type Provider interface {
	Name() core.Provider
	Validate(q core.CandleQuery) error
	FetchCandles(ctx context.Context, q core.CandleQuery) ([]core.Candle, error)
}

// Result is a candle response plus whether it came from the cache.
type Result struct {
	Provider core.Provider `json:"provider"`
	Symbol   string        `json:"symbol"`
	Interval string        `json:"interval"`
	Candles  []core.Candle `json:"candles"`
	Cached   bool          `json:"cached"`
}

type Service struct {
	providers    map[core.Provider]Provider
	cache        cache.Store
	ttl          time.Duration
	limiter      *rate.Limiter
	defaultLimit int
	metrics      *metrics.Registry
	logger       *zap.Logger
}

// NewService creates a service with no providers registered. A nil store
// disables caching.
func NewService(store cache.Store, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		providers:    make(map[core.Provider]Provider),
		cache:        store,
		ttl:          ttl,
		defaultLimit: DefaultLimit,
		logger:       logger,
	}
}

// NewFromConfig wires the Binance and Yahoo providers with the configured
// throttle and base URLs.
func NewFromConfig(cfg config.MarketDataConfig, store cache.Store, ttl time.Duration, logger *zap.Logger) *Service {
	s := NewService(store, ttl, logger)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.SetLimiter(rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst))
	}
	if cfg.DefaultLimit >= MinLimit && cfg.DefaultLimit <= MaxLimit {
		s.defaultLimit = cfg.DefaultLimit
	}

	if cfg.BinanceBaseURL != "" {
		s.Register(binance.NewWithBaseURL(cfg.BinanceBaseURL, cfg.Timeout))
	} else {
		s.Register(binance.New(cfg.Timeout))
	}
	if cfg.YahooBaseURL != "" {
		s.Register(yahoo.NewWithBaseURL(cfg.YahooBaseURL, cfg.Timeout))
	} else {
		s.Register(yahoo.New(cfg.Timeout))
	}
	return s
}

func (s *Service) Register(p Provider) {
	s.providers[p.Name()] = p
}

// SetLimiter throttles upstream calls. Cache hits are not throttled.
func (s *Service) SetLimiter(l *rate.Limiter) {
	s.limiter = l
}

func (s *Service) SetMetrics(m *metrics.Registry) {
	s.metrics = m
}

// TTL is the revalidation window advertised to clients.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Providers lists registered provider names, sorted.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// Normalize applies defaults and clamps the limit into [MinLimit, MaxLimit].
func (s *Service) Normalize(provider core.Provider, q core.CandleQuery) core.CandleQuery {
	q.Symbol = strings.TrimSpace(q.Symbol)
	if provider == core.ProviderBinance {
		q.Symbol = strings.ToUpper(q.Symbol)
	}
	q.Interval = strings.TrimSpace(q.Interval)
	if q.Interval == "" {
		q.Interval = DefaultInterval
	}
	switch {
	case q.Limit == 0:
		q.Limit = s.defaultLimit
	case q.Limit < MinLimit:
		q.Limit = MinLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	if provider == core.ProviderYahoo && q.Range == "" {
		q.Range = yahoo.DefaultRange
	}
	return q
}

// Candles returns bars for q from provider, serving from cache when fresh.
func (s *Service) Candles(ctx context.Context, provider core.Provider, q core.CandleQuery) (*Result, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, core.Invalid("unknown market data provider %q", provider)
	}
	q = s.Normalize(provider, q)
	if err := p.Validate(q); err != nil {
		return nil, err
	}

	result := &Result{Provider: provider, Symbol: q.Symbol, Interval: q.Interval}
	key := cacheKey(provider, q)

	if candles, ok := s.lookup(ctx, key); ok {
		s.metrics.RecordMarketData(string(provider), "hit")
		result.Candles = candles
		result.Cached = true
		return result, nil
	}
	s.metrics.RecordMarketData(string(provider), "miss")

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, core.WrapError(core.ErrUpstreamFailed, fmt.Errorf("rate limiter: %w", err))
		}
	}

	candles, err := p.FetchCandles(ctx, q)
	if err != nil {
		s.logger.Warn("market data fetch failed",
			zap.String("provider", string(provider)),
			zap.String("symbol", q.Symbol),
			zap.Error(err))
		return nil, err
	}
	if candles == nil {
		candles = []core.Candle{}
	}
	s.store(ctx, key, candles)

	result.Candles = candles
	return result, nil
}

func (s *Service) lookup(ctx context.Context, key string) ([]core.Candle, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	var candles []core.Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return candles, true
}

func (s *Service) store(ctx context.Context, key string, candles []core.Candle) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(candles)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(provider core.Provider, q core.CandleQuery) string {
	if provider == core.ProviderYahoo {
		return fmt.Sprintf("md:%s:%s:%s:%s", provider, q.Symbol, q.Interval, q.Range)
	}
	return fmt.Sprintf("md:%s:%s:%s:%d", provider, q.Symbol, q.Interval, q.Limit)
}
