package core

import (
	"testing"
	"time"
)

func TestCandle_IsValid(t *testing.T) {
	c := Candle{
		Time:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:   100,
		High:   110,
		Low:    95,
		Close:  105,
		Volume: 1200,
	}
	if !c.IsValid() {
		t.Error("expected valid candle")
	}

	inverted := c
	inverted.High, inverted.Low = 90, 120
	if inverted.IsValid() {
		t.Error("expected invalid candle when high < low")
	}

	outside := c
	outside.Close = 130
	if outside.IsValid() {
		t.Error("expected invalid candle when close is above high")
	}

	if (Candle{}).IsValid() {
		t.Error("expected zero candle to be invalid")
	}
}

func TestProvider_Constants(t *testing.T) {
	if ProviderBinance != "binance" || ProviderYahoo != "yahoo" {
		t.Errorf("unexpected provider names: %s, %s", ProviderBinance, ProviderYahoo)
	}
}
