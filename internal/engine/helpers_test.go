package engine

import (
	"testing"
	"time"

	"NodeFlow/internal/domain/models"
	"NodeFlow/pkg/logger"
)

// sessionStart is a Monday 11:00 ET, comfortably inside regular hours.
var sessionStart = time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Symbol:              "NQ",
		Interval:            time.Second,
		BreakoutThreshold:   2.0,
		MinImpulseSize:      25.0,
		MinImpulseScore:     4,
		MaxImpulseBars:      300,
		MaxHuntingBars:      600,
		MaxRetraceRatio:     0.5,
		FastImpulseBars:     5,
		NodeBucketSize:      0.5,
		NodeThresholdRatio:  0.15,
		LevelTolerance:      2.0,
		RetestDistance:      8.0,
		MinDelta:            100,
		MaxAbsorptionRange:  1.5,
		CooldownBars:        0,
		LevelCooldownBars:   0,
		StateWindowBars:     2,
		RangeExpansionMult:  1000,
		DeltaImbalanceLimit: 50,
		StopBuffer:          2.0,
		TrailingStop:        4.0,
		TargetDistance:      0,
		MaxHoldBars:         300,
		PositionSize:        1,
		MaxDailyLosses:      3,
		DailyLossLimit:      60.0,
		Slippage:            0,
		Commission:          0,
		PointValue:          20.0,
		TradingStart:        "00:00",
		TradingEnd:          "23:59",
		Timezone:            "America/New_York",
	}
}

func testLevels() *models.DailyLevels {
	return &models.DailyLevels{
		Date:           "2025-06-01",
		PriorDayHigh:   21500,
		PriorDayLow:    21300,
		PointOfControl: 21400,
		ValueAreaHigh:  21450,
		ValueAreaLow:   21350,
	}
}

func mkTrade(sec int, price float64, size int64, side models.Side) *models.Trade {
	return &models.Trade{
		Timestamp: sessionStart.Add(time.Duration(sec) * time.Second),
		Price:     price,
		Size:      size,
		Side:      side,
		Symbol:    "NQ",
	}
}

// mkBar builds a one-trade bar with the given close and buy delta.
func mkBar(sec int, close float64, delta int64) *models.Bar {
	return &models.Bar{
		Timestamp:  sessionStart.Add(time.Duration(sec) * time.Second),
		Open:       close,
		High:       close,
		Low:        close,
		Close:      close,
		Volume:     abs64(delta),
		BuyVolume:  maxi64(delta, 0),
		SellVolume: maxi64(-delta, 0),
		TradeCount: 1,
		Symbol:     "NQ",
	}
}

func mkBarOHLC(sec int, open, high, low, close float64, delta int64) *models.Bar {
	b := mkBar(sec, close, delta)
	b.Open = open
	b.High = high
	b.Low = low
	return b
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxi64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

type nopMetrics struct{}

func (nopMetrics) RecordTrade(string)                 {}
func (nopMetrics) RecordReject(string)                {}
func (nopMetrics) RecordBar(string)                   {}
func (nopMetrics) RecordTransition(string)            {}
func (nopMetrics) RecordAction(models.ActionKind)     {}
func (nopMetrics) RecordState(string)                 {}
func (nopMetrics) RecordSessionPnL(float64)           {}
func (nopMetrics) RecordLastPrice(string, float64)    {}
func (nopMetrics) RecordLatency(string, float64)      {}

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	e, err := New(cfg, log, nopMetrics{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}
