package models

import "time"

// Side is the aggressor side of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Valid reports whether the side is one of the two recognized values.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Trade is a single raw market trade as delivered by a feed.
// Trades are immutable; the engine consumes them transiently.
type Trade struct {
	Timestamp time.Time
	Price     float64
	Size      int64
	Side      Side
	Symbol    string
}
