// Package yahoo fetches chart bars from the Yahoo Finance v8 chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/backtrack/internal/core"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultRange   = "1mo"
)

// Intervals and Ranges are the accepted chart parameters.
var (
	Intervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}
	Ranges    = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}
)

// validSymbol matches symbols like AAPL, MSFT, 600519.SH, 0700.HK, ^GSPC, EURUSD=X, BTC-USD
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9]{1,10}([.\-][A-Za-z]{1,4})?(=[A-Za-z])?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.Invalid("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return core.Invalid("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return core.Invalid("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the chart proxy provider.
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// New creates a provider against the public Yahoo endpoint.
func New(timeout time.Duration) *Yahoo {
	return NewWithBaseURL(defaultBaseURL, timeout)
}

// NewWithBaseURL creates a provider with custom base URL (for testing)
func NewWithBaseURL(baseURL string, timeout time.Duration) *Yahoo {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Yahoo{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (y *Yahoo) Name() core.Provider {
	return core.ProviderYahoo
}

// Validate checks symbol, interval and range before any network call.
func (y *Yahoo) Validate(q core.CandleQuery) error {
	if err := validateSymbol(q.Symbol); err != nil {
		return err
	}
	if !contains(Intervals, q.Interval) {
		return core.Invalid("unsupported yahoo interval %q", q.Interval)
	}
	if !contains(Ranges, q.Range) {
		return core.Invalid("unsupported yahoo range %q", q.Range)
	}
	return nil
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchCandles fetches OHLCV bars for q.Range at q.Interval. Bars with a
// missing price are skipped.
func (y *Yahoo) FetchCandles(ctx context.Context, q core.CandleQuery) ([]core.Candle, error) {
	if err := y.Validate(q); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s?interval=%s&range=%s",
		y.baseURL, url.PathEscape(toYahooSymbol(q.Symbol)),
		url.QueryEscape(q.Interval), url.QueryEscape(q.Range))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; backtrack)")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrUpstreamFailed, fmt.Errorf("fetching chart: %w", err))
	}
	defer resp.Body.Close()

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, core.WrapError(core.ErrUpstreamFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
		}
		return nil, core.WrapError(core.ErrUpstreamFailed, fmt.Errorf("decoding response: %w", err))
	}

	if result.Chart.Error != nil {
		if result.Chart.Error.Code == "Not Found" {
			return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("yahoo: %s", result.Chart.Error.Description))
		}
		return nil, core.WrapError(core.ErrUpstreamFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrUpstreamFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", q.Symbol))
	}

	r := result.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return []core.Candle{}, nil
	}
	quotes := r.Indicators.Quote[0]

	data := make([]core.Candle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open, high, low, closePrice := at(quotes.Open, i), at(quotes.High, i), at(quotes.Low, i), at(quotes.Close, i)
		if open == nil || high == nil || low == nil || closePrice == nil {
			continue
		}
		var volume float64
		if v := at(quotes.Volume, i); v != nil {
			volume = *v
		}
		data = append(data, core.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closePrice,
			Volume: volume,
		})
	}

	return data, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
