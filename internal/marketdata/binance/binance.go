// Package binance fetches spot klines through the Binance REST API.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/newthinker/backtrack/internal/core"
)

const (
	defaultBaseURL = "https://api.binance.com"
	MaxLimit       = 1000
)

// Intervals is the kline interval whitelist.
var Intervals = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "6h", "8h", "12h",
	"1d", "3d", "1w", "1M",
}

// validSymbol matches spot pairs like BTCUSDT, ETHBTC, 1000SATSUSDT
var validSymbol = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// Binance serves klines through an unauthenticated go-binance client.
type Binance struct {
	client *binance.Client
}

// New creates a provider against the public Binance endpoint.
func New(timeout time.Duration) *Binance {
	return NewWithBaseURL(defaultBaseURL, timeout)
}

// NewWithBaseURL creates a provider with custom base URL (for testing)
func NewWithBaseURL(url string, timeout time.Duration) *Binance {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := binance.NewClient("", "")
	client.BaseURL = strings.TrimRight(url, "/")
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &Binance{client: client}
}

func (b *Binance) Name() core.Provider {
	return core.ProviderBinance
}

// Validate checks symbol, interval and limit before any network call.
func (b *Binance) Validate(q core.CandleQuery) error {
	if !validSymbol.MatchString(q.Symbol) {
		return core.Invalid("invalid binance symbol %q", q.Symbol)
	}
	if !ValidInterval(q.Interval) {
		return core.Invalid("unsupported binance interval %q", q.Interval)
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return core.Invalid("limit must be between 1 and %d, got %d", MaxLimit, q.Limit)
	}
	return nil
}

// FetchCandles returns up to q.Limit klines, oldest first.
func (b *Binance) FetchCandles(ctx context.Context, q core.CandleQuery) ([]core.Candle, error) {
	if err := b.Validate(q); err != nil {
		return nil, err
	}

	klines, err := b.client.NewKlinesService().
		Symbol(q.Symbol).
		Interval(q.Interval).
		Limit(q.Limit).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == -1121 {
			return nil, core.Invalid("unknown binance symbol %q", q.Symbol)
		}
		return nil, core.WrapError(core.ErrUpstreamFailed, fmt.Errorf("binance klines: %w", err))
	}

	candles := make([]core.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := toCandle(k)
		if err != nil {
			return nil, core.WrapError(core.ErrUpstreamFailed, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func toCandle(k *binance.Kline) (core.Candle, error) {
	var c core.Candle
	fields := []struct {
		raw string
		dst *float64
	}{
		{k.Open, &c.Open},
		{k.High, &c.High},
		{k.Low, &c.Low},
		{k.Close, &c.Close},
		{k.Volume, &c.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return core.Candle{}, fmt.Errorf("parsing kline value %q: %w", f.raw, err)
		}
		*f.dst = v
	}
	c.Time = time.UnixMilli(k.OpenTime).UTC()
	return c, nil
}

// ValidInterval reports whether interval is on the whitelist.
func ValidInterval(interval string) bool {
	for _, i := range Intervals {
		if i == interval {
			return true
		}
	}
	return false
}
