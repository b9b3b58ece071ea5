package models

import "time"

// Bar is a fixed-interval OHLCV bar with the buy/sell volume split.
// A bar is finalized exactly once and never mutated afterwards.
type Bar struct {
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	BuyVolume  int64
	SellVolume int64
	TradeCount int64
	Symbol     string
}

// Delta is per-bar buy volume minus sell volume.
func (b Bar) Delta() int64 {
	return b.BuyVolume - b.SellVolume
}

// Range is the bar's high-low spread in points.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}
