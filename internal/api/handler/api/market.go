package api

import (
	"fmt"
	"net/http"

	"github.com/newthinker/backtrack/internal/api/response"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/marketdata"
)

// MarketHandler serves the candle proxy routes.
type MarketHandler struct {
	svc *marketdata.Service
}

// NewMarketHandler creates a market-data handler.
func NewMarketHandler(svc *marketdata.Service) *MarketHandler {
	return &MarketHandler{svc: svc}
}

// BinanceKlines handles GET /api/v1/market/binance/klines?symbol=&interval=&limit=
func (h *MarketHandler) BinanceKlines(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		response.Fail(w, err)
		return
	}
	q := r.URL.Query()
	h.serve(w, r, core.ProviderBinance, core.CandleQuery{
		Symbol:   q.Get("symbol"),
		Interval: q.Get("interval"),
		Limit:    limit,
	})
}

// YahooChart handles GET /api/v1/market/yahoo/chart?symbol=&interval=&range=
func (h *MarketHandler) YahooChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, core.ProviderYahoo, core.CandleQuery{
		Symbol:   q.Get("symbol"),
		Interval: q.Get("interval"),
		Range:    q.Get("range"),
	})
}

func (h *MarketHandler) serve(w http.ResponseWriter, r *http.Request, provider core.Provider, q core.CandleQuery) {
	result, err := h.svc.Candles(r.Context(), provider, q)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if ttl := h.svc.TTL(); ttl > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
	}
	if result.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	response.JSON(w, http.StatusOK, result)
}
