package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
)

func newPM(t *testing.T, cfg Config) *PositionManager {
	t.Helper()
	pm, err := NewPositionManager(cfg)
	require.NoError(t, err)
	return pm
}

func longSignal(stop float64) *models.Signal {
	return &models.Signal{
		Direction:  models.Long,
		Entry:      21500,
		Stop:       stop,
		Size:       1,
		LevelPrice: stop + 2,
		ImpulseID:  1,
		Delta:      200,
		Timestamp:  sessionStart,
	}
}

// openLong walks a manager through signal acceptance and the deferred
// entry at the next bar's open.
func openLong(t *testing.T, pm *PositionManager, entryOpen float64, stop float64) {
	t.Helper()
	require.Nil(t, pm.ProcessBar(mkBar(0, entryOpen, 10))) // establishes trading hours
	a := pm.OnSignal(longSignal(stop))
	require.Equal(t, models.Pending{}, a)

	a = pm.ProcessBar(mkBar(1, entryOpen, 10))
	enter, ok := a.(models.Enter)
	require.True(t, ok)
	require.Equal(t, entryOpen, enter.Price)
	require.Equal(t, stop, enter.Stop)
	require.False(t, pm.Flat())
}

func TestDeferredEntryAtNextOpen(t *testing.T) {
	pm := newPM(t, testConfig())
	openLong(t, pm, 21500, 21496)

	id, ok := pm.OpenImpulseID()
	require.True(t, ok)
	require.Equal(t, int64(1), id)
}

func TestTrailingStopTightensMonotonically(t *testing.T) {
	pm := newPM(t, testConfig()) // trailing distance 4, no fixed target
	openLong(t, pm, 21500, 21496)

	// price rising to 21510 ratchets the stop to 21506
	a := pm.ProcessBar(mkBarOHLC(2, 21507, 21510, 21507, 21509, 10))
	require.Equal(t, models.UpdateStop{Stop: 21506}, a)

	// a quieter bar holding above the stop changes nothing
	a = pm.ProcessBar(mkBarOHLC(3, 21509, 21509, 21507, 21508, 10))
	require.Nil(t, a)

	// a deeper push ratchets again, never loosening
	a = pm.ProcessBar(mkBarOHLC(4, 21511, 21514, 21511, 21513, 10))
	require.Equal(t, models.UpdateStop{Stop: 21510}, a)
}

func TestTrailingStopExit(t *testing.T) {
	pm := newPM(t, testConfig())
	openLong(t, pm, 21500, 21496)

	a := pm.ProcessBar(mkBarOHLC(2, 21507, 21510, 21507, 21509, 10))
	require.Equal(t, models.UpdateStop{Stop: 21506}, a)

	// low at 21505 crosses the 21506 stop: exit there, reason Stop
	a = pm.ProcessBar(mkBarOHLC(3, 21508, 21508, 21505, 21506, 10))
	exit, ok := a.(models.Exit)
	require.True(t, ok)
	require.Equal(t, ReasonStop, exit.Reason)
	require.Equal(t, 21506.0, exit.Price)
	require.Equal(t, 6.0, exit.Points) // zero-cost config
	require.True(t, pm.Flat())
}

func TestTargetExit(t *testing.T) {
	cfg := testConfig()
	cfg.TargetDistance = 8
	pm := newPM(t, cfg)
	openLong(t, pm, 21500, 21496)

	a := pm.ProcessBar(mkBarOHLC(2, 21505, 21508.5, 21505, 21508, 10))
	exit, ok := a.(models.Exit)
	require.True(t, ok)
	require.Equal(t, ReasonTarget, exit.Reason)
	require.Equal(t, 21508.0, exit.Price)
}

func TestTimeoutExit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHoldBars = 3
	pm := newPM(t, cfg)
	openLong(t, pm, 21500, 21496)

	require.Nil(t, pm.ProcessBar(mkBar(2, 21501, 10)))
	require.Nil(t, pm.ProcessBar(mkBar(3, 21501, 10)))
	a := pm.ProcessBar(mkBar(4, 21501.5, 10))
	exit, ok := a.(models.Exit)
	require.True(t, ok)
	require.Equal(t, ReasonTimeout, exit.Reason)
	require.Equal(t, 21501.5, exit.Price) // closes at the bar close
}

func TestNetPointsSubtractCosts(t *testing.T) {
	cfg := testConfig()
	cfg.Slippage = 0.25
	cfg.Commission = 4.0
	cfg.PointValue = 20.0
	cfg.TargetDistance = 8
	pm := newPM(t, cfg)
	openLong(t, pm, 21500, 21496)

	a := pm.ProcessBar(mkBarOHLC(2, 21506, 21509, 21506, 21508, 10))
	exit := a.(models.Exit)
	// gross 8, minus 2x0.25 slippage, minus 4/20 commission points
	require.InDelta(t, 8-0.5-0.2, exit.Points, 1e-9)
	require.InDelta(t, 7.3, pm.DailyPnL(), 1e-9)
}

func TestShortPosition(t *testing.T) {
	pm := newPM(t, testConfig())
	require.Nil(t, pm.ProcessBar(mkBar(0, 21500, 10)))

	sig := &models.Signal{
		Direction: models.Short, Entry: 21500, Stop: 21504,
		Size: 1, LevelPrice: 21502, ImpulseID: 2, Timestamp: sessionStart,
	}
	require.Equal(t, models.Pending{}, pm.OnSignal(sig))
	a := pm.ProcessBar(mkBar(1, 21500, 10))
	require.IsType(t, models.Enter{}, a)

	// drop 10 points: trail ratchets to lowest+4
	a = pm.ProcessBar(mkBarOHLC(2, 21493, 21493, 21490, 21491, -10))
	require.Equal(t, models.UpdateStop{Stop: 21494}, a)

	// a bounce through the trailing stop exits short at the stop
	a = pm.ProcessBar(mkBarOHLC(3, 21492, 21495, 21492, 21494, 10))
	exit := a.(models.Exit)
	require.Equal(t, ReasonStop, exit.Reason)
	require.InDelta(t, 6.0, exit.Points, 1e-9)
}

func TestMaxDailyLossesDisablesEntries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyLosses = 3
	pm := newPM(t, cfg)

	bar := 0
	loseOnce := func() {
		require.Nil(t, pm.ProcessBar(mkBar(bar, 21500, 10)))
		bar++
		require.Equal(t, models.Pending{}, pm.OnSignal(longSignal(21496)))
		require.IsType(t, models.Enter{}, pm.ProcessBar(mkBar(bar, 21500, 10)))
		bar++
		a := pm.ProcessBar(mkBarOHLC(bar, 21498, 21498, 21495, 21496, 10))
		bar++
		require.Equal(t, ReasonStop, a.(models.Exit).Reason)
	}

	loseOnce()
	loseOnce()
	require.False(t, pm.Stopped())
	loseOnce()
	require.True(t, pm.Stopped())

	// a fourth otherwise-qualifying signal produces nothing
	require.Nil(t, pm.OnSignal(longSignal(21496)))
	s := pm.Summary()
	require.Equal(t, 3, s.Losses)
	require.Equal(t, 1, s.SignalsSkipped)
}

func TestDailyLossLimitStopsDay(t *testing.T) {
	cfg := testConfig()
	cfg.DailyLossLimit = 5
	cfg.MaxDailyLosses = 0
	pm := newPM(t, cfg)
	openLong(t, pm, 21500, 21494)

	// stop out for -6 points, past the 5 point daily limit
	a := pm.ProcessBar(mkBarOHLC(2, 21496, 21496, 21493, 21494, 10))
	require.Equal(t, ReasonStop, a.(models.Exit).Reason)
	require.False(t, pm.Stopped())

	// the breach is noticed on the next bar; flat, so the day stops
	// without a phantom flatten
	require.Nil(t, pm.ProcessBar(mkBar(3, 21494, 10)))
	require.True(t, pm.Stopped())
	require.Nil(t, pm.ProcessBar(mkBar(4, 21494, 10)))
	require.Nil(t, pm.OnSignal(longSignal(21490)))
}

func TestDailyLossLimitFlattensOpenPosition(t *testing.T) {
	cfg := testConfig()
	cfg.DailyLossLimit = 5
	cfg.MaxDailyLosses = 0
	pm := newPM(t, cfg)
	openLong(t, pm, 21500, 21494)

	// push the realized day loss past the limit with the position open
	pm.dailyPnL = -6

	a := pm.ProcessBar(mkBar(2, 21499, 10))
	require.Equal(t, models.Flatten{Reason: ReasonLossLimit}, a)
	require.True(t, pm.Stopped())
	require.True(t, pm.Flat())
}

func TestDailyRolloverResetsCounters(t *testing.T) {
	cfg := testConfig()
	cfg.DailyLossLimit = 5
	cfg.MaxDailyLosses = 0
	pm := newPM(t, cfg)
	openLong(t, pm, 21500, 21494)
	pm.ProcessBar(mkBarOHLC(2, 21496, 21496, 21493, 21494, 10)) // -6 points
	pm.ProcessBar(mkBar(3, 21494, 10))                          // daily stop
	require.True(t, pm.Stopped())

	// next session date: counters reset, entries allowed again
	nextDay := mkBar(0, 21500, 10)
	nextDay.Timestamp = sessionStart.Add(24 * time.Hour)
	require.Nil(t, pm.ProcessBar(nextDay))
	require.False(t, pm.Stopped())
	require.Equal(t, 0.0, pm.DailyPnL())
	require.Equal(t, models.Pending{}, pm.OnSignal(longSignal(21496)))

	s := pm.Summary()
	require.Equal(t, 1, s.DaysStopped)
}

func TestOutsideHoursFlattensAndBlocksSignals(t *testing.T) {
	cfg := testConfig()
	cfg.TradingStart = "09:30"
	cfg.TradingEnd = "16:00"
	pm := newPM(t, cfg)
	openLong(t, pm, 21500, 21496) // 11:00 ET

	// 16:05 ET bar forces the position flat
	late := mkBar(0, 21503, 10)
	late.Timestamp = time.Date(2025, 6, 2, 20, 5, 0, 0, time.UTC)
	a := pm.ProcessBar(late)
	require.Equal(t, models.Flatten{Reason: ReasonSessionEnd}, a)
	require.True(t, pm.Flat())

	require.Nil(t, pm.OnSignal(longSignal(21496)))
}

func TestForceFlatten(t *testing.T) {
	pm := newPM(t, testConfig())
	openLong(t, pm, 21500, 21496)

	a := pm.ForceFlatten(21502, ReasonShutdown)
	require.Equal(t, models.Flatten{Reason: ReasonShutdown}, a)
	require.True(t, pm.Flat())
	require.Nil(t, pm.ForceFlatten(21502, ReasonShutdown))
}

func TestSummaryAccounting(t *testing.T) {
	cfg := testConfig()
	cfg.TargetDistance = 8
	pm := newPM(t, cfg)

	// one winner at the target
	openLong(t, pm, 21500, 21496)
	a := pm.ProcessBar(mkBarOHLC(2, 21506, 21509, 21506, 21508, 10))
	require.Equal(t, ReasonTarget, a.(models.Exit).Reason)

	// one loser at the stop
	require.Equal(t, models.Pending{}, pm.OnSignal(longSignal(21496)))
	require.IsType(t, models.Enter{}, pm.ProcessBar(mkBar(3, 21500, 10)))
	a = pm.ProcessBar(mkBarOHLC(4, 21498, 21498, 21495, 21496, 10))
	require.Equal(t, ReasonStop, a.(models.Exit).Reason)

	s := pm.Summary()
	require.Equal(t, 2, s.TotalTrades)
	require.Equal(t, 1, s.Wins)
	require.Equal(t, 1, s.Losses)
	require.InDelta(t, 50.0, s.WinRate, 1e-9)
	require.InDelta(t, 8.0, s.GrossProfit, 1e-9)
	require.InDelta(t, 4.0, s.GrossLoss, 1e-9)
	require.InDelta(t, 2.0, s.ProfitFactor, 1e-9)
	require.InDelta(t, 4.0, s.NetPoints, 1e-9)
	// balance moved by net points times point value
	require.InDelta(t, 80.0, s.RunningBalance, 1e-9)
	require.InDelta(t, 80.0, s.MaxDrawdown, 1e-9)
}
