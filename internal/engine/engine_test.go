package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
)

func mustProcess(t *testing.T, e *Engine, tr *models.Trade) models.Action {
	t.Helper()
	a, err := e.ProcessTrade(tr)
	require.NoError(t, err)
	return a
}

// driveToEntry runs an engine through a full breakout, impulse, node
// extraction and retest, up to the deferred entry filling. Leaves a
// long open at 21516 with its stop at 21513.
func driveToEntry(t *testing.T) *Engine {
	t.Helper()
	e := testEngine(t, testConfig())
	e.SetDailyLevels(testLevels())

	// quiet bar below the prior day high
	require.Nil(t, mustProcess(t, e, mkTrade(0, 21400, 100, models.Buy)))

	// close at 21503 clears PDH 21500 plus the 2 point threshold
	require.Nil(t, mustProcess(t, e, mkTrade(1, 21503, 200, models.Buy)))
	require.Nil(t, mustProcess(t, e, mkTrade(2, 21505, 300, models.Buy)))
	require.Equal(t, ProfilingImpulse, e.State())

	// impulse leg with a thin print at 21515
	for _, price := range []float64{21507, 21509, 21511, 21513, 21517, 21519, 21521, 21523} {
		require.Nil(t, mustProcess(t, e, mkTrade(2, price, 300, models.Buy)))
	}
	require.Nil(t, mustProcess(t, e, mkTrade(2, 21515, 1, models.Buy)))
	require.Nil(t, mustProcess(t, e, mkTrade(3, 21530, 400, models.Buy)))

	// the 21530 close puts size at 27 over the 25 floor: impulse done
	require.Nil(t, mustProcess(t, e, mkTrade(4, 21533, 100, models.Buy)))
	require.Equal(t, Hunting, e.State())
	require.Equal(t, 1, e.TrackedNodes())

	// touch, move away past the retest distance, return
	require.Nil(t, mustProcess(t, e, mkTrade(5, 21516, 100, models.Buy)))
	require.Nil(t, mustProcess(t, e, mkTrade(6, 21526, 100, models.Buy)))
	require.Nil(t, mustProcess(t, e, mkTrade(7, 21515.5, 80, models.Buy)))
	require.Equal(t, 1, e.ArmedNodes())

	// absorption bar at the node: narrow range, buy delta 160
	require.Nil(t, mustProcess(t, e, mkTrade(7, 21516.2, 60, models.Buy)))
	require.Nil(t, mustProcess(t, e, mkTrade(7, 21515.8, 20, models.Buy)))

	a := mustProcess(t, e, mkTrade(8, 21516, 50, models.Buy))
	require.Equal(t, models.Pending{}, a)

	a = mustProcess(t, e, mkTrade(9, 21521, 100, models.Buy))
	enter, ok := a.(models.Enter)
	require.True(t, ok)
	require.Equal(t, models.Long, enter.Direction)
	require.Equal(t, 21516.0, enter.Price)
	require.Equal(t, 21513.0, enter.Stop)
	require.Equal(t, 0.0, enter.Target)
	return e
}

func TestEngineLifecycle(t *testing.T) {
	e := driveToEntry(t)

	// the 21521 high ratchets the trailing stop to 21517
	require.Nil(t, mustProcess(t, e, mkTrade(9, 21520, 50, models.Buy)))
	a := mustProcess(t, e, mkTrade(10, 21518, 100, models.Sell))
	require.Equal(t, models.UpdateStop{Stop: 21517}, a)

	// price through the stop exits and tears the cycle down
	require.Nil(t, mustProcess(t, e, mkTrade(10, 21516, 100, models.Sell)))
	a = mustProcess(t, e, mkTrade(11, 21514, 100, models.Sell))
	exit, ok := a.(models.Exit)
	require.True(t, ok)
	require.Equal(t, ReasonStop, exit.Reason)
	require.Equal(t, 21517.0, exit.Price)
	require.InDelta(t, 1.0, exit.Points, 1e-9)

	// after any exit the machine resets and the exited impulse's nodes
	// are dropped
	require.Equal(t, Resetting, e.State())
	require.Equal(t, 0, e.TrackedNodes())
	require.InDelta(t, 1.0, e.SessionPnL(), 1e-9)

	s := e.Summary()
	require.Equal(t, 1, s.TotalTrades)
	require.Equal(t, 1, s.Wins)

	kinds := drainTransitions(e)
	require.Contains(t, kinds, TransitionBreakout)
	require.Contains(t, kinds, TransitionImpulseDone)
}

func drainTransitions(e *Engine) []TransitionKind {
	var kinds []TransitionKind
	for {
		select {
		case tr := <-e.Notifications():
			kinds = append(kinds, tr.Kind)
		default:
			return kinds
		}
	}
}

func TestEngineShutdownFlattens(t *testing.T) {
	e := driveToEntry(t)

	a := e.Shutdown()
	require.Equal(t, models.Flatten{Reason: ReasonShutdown}, a)
	require.Equal(t, Resetting, e.State())
	require.Equal(t, 0, e.TrackedNodes())
	require.Equal(t, 1, e.Summary().TotalTrades)

	// nothing left to flatten
	require.Nil(t, e.Shutdown())
}

func TestEngineRejectsMalformedTrades(t *testing.T) {
	e := testEngine(t, testConfig())

	bad := []*models.Trade{
		mkTrade(0, 0, 100, models.Buy),
		mkTrade(0, -5, 100, models.Buy),
		mkTrade(0, 21500, 0, models.Buy),
		mkTrade(0, 21500, 100, models.Side("x")),
	}
	for _, tr := range bad {
		_, err := e.ProcessTrade(tr)
		require.ErrorIs(t, err, ErrMalformedTrade)
	}
	require.Equal(t, 0.0, e.LastPrice())
}

func TestEngineRejectsOutOfOrderTrades(t *testing.T) {
	e := testEngine(t, testConfig())

	require.Nil(t, mustProcess(t, e, mkTrade(1, 21500, 100, models.Buy)))
	_, err := e.ProcessTrade(mkTrade(0, 21499, 100, models.Buy))
	require.ErrorIs(t, err, ErrOutOfOrderTrade)
	require.Equal(t, 21500.0, e.LastPrice())

	// equal timestamps are in order
	require.Nil(t, mustProcess(t, e, mkTrade(1, 21501, 100, models.Buy)))
}

func TestRolloverKeysOnExchangeDate(t *testing.T) {
	e := testEngine(t, testConfig())
	e.SetDailyLevels(testLevels())

	at := func(ts time.Time, price float64) *models.Trade {
		return &models.Trade{Timestamp: ts, Price: price, Size: 100, Side: models.Buy, Symbol: "NQ"}
	}

	// 23:30 and 01:00 UTC straddle UTC midnight but are 19:30 and 21:00
	// ET, the same exchange date
	require.Nil(t, mustProcess(t, e, at(time.Date(2025, 6, 3, 23, 30, 0, 0, time.UTC), 21503)))
	require.Nil(t, mustProcess(t, e, at(time.Date(2025, 6, 4, 1, 0, 0, 0, time.UTC), 21504)))
	require.Equal(t, ProfilingImpulse, e.State())

	// the next bar lands on UTC June 4 too; the machine must not reset
	require.Nil(t, mustProcess(t, e, at(time.Date(2025, 6, 4, 2, 0, 0, 0, time.UTC), 21505)))
	require.Equal(t, ProfilingImpulse, e.State())

	// a bar on the next exchange date does roll the session
	require.Nil(t, mustProcess(t, e, at(time.Date(2025, 6, 5, 1, 0, 0, 0, time.UTC), 21400)))
	require.Nil(t, mustProcess(t, e, at(time.Date(2025, 6, 5, 1, 0, 1, 0, time.UTC), 21400)))
	require.Equal(t, WaitingForBreakout, e.State())
}

func TestEngineFlush(t *testing.T) {
	e := testEngine(t, testConfig())
	require.Nil(t, e.Flush())

	require.Nil(t, mustProcess(t, e, mkTrade(0, 21400, 100, models.Buy)))
	require.Nil(t, mustProcess(t, e, mkTrade(0, 21401, 100, models.Buy)))
	require.Nil(t, e.Flush()) // partial bar runs through, no action
	require.Nil(t, e.Flush())
	require.Equal(t, 21401.0, e.LastPrice())
}
