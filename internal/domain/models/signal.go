package models

import "time"

// ImpulseDirection is the direction of an impulse leg.
type ImpulseDirection string

const (
	ImpulseUp   ImpulseDirection = "up"
	ImpulseDown ImpulseDirection = "down"
)

// Direction is a trade direction derived from the originating impulse:
// an up impulse makes its nodes long setups, a down impulse short ones.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// TradeDirection maps an impulse direction to the trade direction taken
// at its nodes.
func (d ImpulseDirection) TradeDirection() Direction {
	if d == ImpulseUp {
		return Long
	}
	return Short
}

// MarketState classifies the rolling bar window.
type MarketState string

const (
	Balanced   MarketState = "balanced"
	Imbalanced MarketState = "imbalanced"
)

// Signal is an entry recommendation produced by the level signal
// generator. It is produced once and consumed once by the position
// manager.
type Signal struct {
	Direction  Direction
	Entry      float64
	Stop       float64
	Target     float64 // zero disables the fixed target (trailing only)
	Size       int
	LevelPrice float64
	ImpulseID  int64
	Delta      int64
	Timestamp  time.Time
}
