package core

import "time"

// Provider identifies an upstream market-data source
type Provider string

const (
	ProviderBinance Provider = "binance"
	ProviderYahoo   Provider = "yahoo"
)

// Candle represents a single OHLCV bar returned by the market-data proxies
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IsValid checks the bar is internally consistent
func (c Candle) IsValid() bool {
	if c.Time.IsZero() || c.High < c.Low {
		return false
	}
	return c.Open >= c.Low && c.Open <= c.High && c.Close >= c.Low && c.Close <= c.High
}

// CandleQuery describes a candle request to any provider
type CandleQuery struct {
	Symbol   string
	Interval string
	Limit    int    // Binance: number of bars
	Range    string // Yahoo: "1d", "5d", "1mo", ...
}
