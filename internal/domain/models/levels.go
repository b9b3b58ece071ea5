package models

import "time"

// ReferenceLevel identifies which session level a breakout crossed.
type ReferenceLevel string

const (
	PriorDayHigh  ReferenceLevel = "PDH"
	PriorDayLow   ReferenceLevel = "PDL"
	OvernightHigh ReferenceLevel = "ONH"
	OvernightLow  ReferenceLevel = "ONL"
	ValueAreaHigh ReferenceLevel = "VAH"
	ValueAreaLow  ReferenceLevel = "VAL"
)

// DailyLevels holds the session reference levels computed once per
// trading day before breakout detection activates.
// Invariant: ValueAreaLow <= PointOfControl <= ValueAreaHigh.
type DailyLevels struct {
	Date           string  `json:"date"` // YYYY-MM-DD session date
	PriorDayHigh   float64 `json:"pdh"`
	PriorDayLow    float64 `json:"pdl"`
	OvernightHigh  float64 `json:"onh"`
	OvernightLow   float64 `json:"onl"`
	PointOfControl float64 `json:"poc"`
	ValueAreaHigh  float64 `json:"vah"`
	ValueAreaLow   float64 `json:"val"`
}

// LvnLevel is a low-volume node extracted from an impulse leg's volume
// profile. It is related to its parent impulse only by id; the impulse
// itself may already be gone.
type LvnLevel struct {
	ImpulseID int64
	Price     float64
	Volume    int64
	AvgVolume float64
	Ratio     float64 // Volume / AvgVolume; below the threshold ratio qualifies
	Direction ImpulseDirection
	Start     time.Time
	End       time.Time
}
