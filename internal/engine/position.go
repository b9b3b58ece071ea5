package engine

import (
	"fmt"
	"time"

	"NodeFlow/internal/domain/models"
)

// Exit reasons carried on Exit and Flatten actions.
const (
	ReasonStop       = "Stop"
	ReasonTarget     = "Target"
	ReasonTimeout    = "Timeout"
	ReasonLossLimit  = "DailyLossLimit"
	ReasonLossCount  = "MaxDailyLosses"
	ReasonSessionEnd = "SessionEnd"
	ReasonShutdown   = "Shutdown"
)

// openPosition is the single owned position slot.
type openPosition struct {
	direction models.Direction
	entry     float64
	entryTime time.Time
	stop      float64
	target    float64
	trailing  float64
	highest   float64
	lowest    float64
	barCount  int
	size      int
	impulseID int64
}

// Summary is the cumulative session statistics snapshot.
type Summary struct {
	TotalTrades     int     `json:"total_trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	Breakevens      int     `json:"breakevens"`
	WinRate         float64 `json:"win_rate"`
	NetPoints       float64 `json:"net_points"`
	GrossProfit     float64 `json:"gross_profit"`
	GrossLoss       float64 `json:"gross_loss"`
	ProfitFactor    float64 `json:"profit_factor"`
	TotalSlippage   float64 `json:"total_slippage"`
	TotalCommission float64 `json:"total_commission"`
	RunningBalance  float64 `json:"running_balance"`
	PeakBalance     float64 `json:"peak_balance"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	DaysStopped     int     `json:"days_stopped"`
	SignalsSkipped  int     `json:"signals_skipped"`
}

// PositionManager consumes signals, manages the single open position
// with a monotonic trailing stop, and enforces the daily risk limits.
type PositionManager struct {
	cfg Config
	loc *time.Location

	startMin int
	endMin   int

	pending *models.Signal
	open    *openPosition

	// daily counters
	currentDate  string
	dailyLosses  int
	dailyPnL     float64
	dailyStopped bool
	inHours      bool

	// session statistics
	totalTrades     int
	wins            int
	losses          int
	breakevens      int
	grossProfit     float64
	grossLoss       float64
	netPoints       float64
	totalSlippage   float64
	totalCommission float64
	runningBalance  float64
	peakBalance     float64
	maxDrawdown     float64
	daysStopped     int
	signalsSkipped  int
}

// NewPositionManager parses the trading-hours window and returns a
// flat manager.
func NewPositionManager(cfg Config) (*PositionManager, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	startMin, err := parseClock(cfg.TradingStart)
	if err != nil {
		return nil, fmt.Errorf("trading_start: %w", err)
	}
	endMin, err := parseClock(cfg.TradingEnd)
	if err != nil {
		return nil, fmt.Errorf("trading_end: %w", err)
	}
	return &PositionManager{cfg: cfg, loc: loc, startMin: startMin, endMin: endMin}, nil
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// Flat reports whether there is neither an open position nor a pending
// entry.
func (pm *PositionManager) Flat() bool { return pm.open == nil && pm.pending == nil }

// DailyPnL returns the accumulated net points for the current session.
func (pm *PositionManager) DailyPnL() float64 { return pm.dailyPnL }

// Stopped reports whether new entries are disabled for the day.
func (pm *PositionManager) Stopped() bool { return pm.dailyStopped }

// OpenImpulseID returns the impulse id behind the live trade (pending
// or open), if any.
func (pm *PositionManager) OpenImpulseID() (int64, bool) {
	if pm.open != nil {
		return pm.open.impulseID, true
	}
	if pm.pending != nil {
		return pm.pending.ImpulseID, true
	}
	return 0, false
}

// OnSignal accepts a signal when flat, inside trading hours, and not
// daily-stopped. The entry fills at the next bar's open; the returned
// Pending action reports the acceptance.
func (pm *PositionManager) OnSignal(s *models.Signal) models.Action {
	if pm.open != nil || pm.pending != nil {
		return nil
	}
	if pm.dailyStopped {
		pm.signalsSkipped++
		return nil
	}
	if !pm.inHours {
		return nil
	}
	pm.pending = s
	return models.Pending{}
}

// ProcessBar runs the per-bar position logic: daily rollover, trading
// hours, risk limits, deferred entry, then open-position management.
// At most one action is returned.
func (pm *PositionManager) ProcessBar(b *models.Bar) models.Action {
	pm.rollover(b)
	pm.inHours = pm.withinHours(b.Timestamp)

	if !pm.inHours {
		pm.pending = nil
		if pm.open != nil {
			return pm.closeAt(b.Close, ReasonSessionEnd, true)
		}
		return nil
	}

	if pm.dailyStopped {
		pm.pending = nil
		return nil
	}

	if pm.cfg.DailyLossLimit > 0 && pm.dailyPnL <= -pm.cfg.DailyLossLimit {
		pm.dailyStopped = true
		pm.pending = nil
		if pm.open != nil {
			return pm.closeAt(b.Close, ReasonLossLimit, true)
		}
		// already flat: stop the day without emitting an action
		return nil
	}

	if pm.pending != nil {
		return pm.enter(b)
	}

	if pm.open != nil {
		return pm.manage(b)
	}
	return nil
}

// ForceFlatten closes any open position at the given price on shutdown.
func (pm *PositionManager) ForceFlatten(price float64, reason string) models.Action {
	pm.pending = nil
	if pm.open == nil {
		return nil
	}
	return pm.closeAt(price, reason, true)
}

// Summary returns the cumulative session statistics.
func (pm *PositionManager) Summary() Summary {
	s := Summary{
		TotalTrades:     pm.totalTrades,
		Wins:            pm.wins,
		Losses:          pm.losses,
		Breakevens:      pm.breakevens,
		NetPoints:       pm.netPoints,
		GrossProfit:     pm.grossProfit,
		GrossLoss:       pm.grossLoss,
		TotalSlippage:   pm.totalSlippage,
		TotalCommission: pm.totalCommission,
		RunningBalance:  pm.runningBalance,
		PeakBalance:     pm.peakBalance,
		MaxDrawdown:     pm.maxDrawdown,
		DaysStopped:     pm.daysStopped,
		SignalsSkipped:  pm.signalsSkipped,
	}
	if pm.dailyStopped {
		s.DaysStopped++
	}
	if pm.totalTrades > 0 {
		s.WinRate = float64(pm.wins) / float64(pm.totalTrades) * 100
	}
	if pm.grossLoss > 0 {
		s.ProfitFactor = pm.grossProfit / pm.grossLoss
	}
	return s
}

func (pm *PositionManager) rollover(b *models.Bar) {
	date := b.Timestamp.In(pm.loc).Format("2006-01-02")
	if pm.currentDate == date {
		return
	}
	if pm.dailyStopped {
		pm.daysStopped++
	}
	pm.currentDate = date
	pm.dailyLosses = 0
	pm.dailyPnL = 0
	pm.dailyStopped = false
}

func (pm *PositionManager) withinHours(ts time.Time) bool {
	t := ts.In(pm.loc)
	mins := t.Hour()*60 + t.Minute()
	return mins >= pm.startMin && mins < pm.endMin
}

func (pm *PositionManager) enter(b *models.Bar) models.Action {
	s := pm.pending
	pm.pending = nil

	entry := b.Open
	var target float64
	if pm.cfg.TargetDistance > 0 {
		if s.Direction == models.Long {
			target = entry + pm.cfg.TargetDistance
		} else {
			target = entry - pm.cfg.TargetDistance
		}
	}

	pm.open = &openPosition{
		direction: s.Direction,
		entry:     entry,
		entryTime: b.Timestamp,
		stop:      s.Stop,
		target:    target,
		trailing:  s.Stop,
		highest:   entry,
		lowest:    entry,
		size:      s.Size,
		impulseID: s.ImpulseID,
	}

	return models.Enter{
		Direction: s.Direction,
		Price:     entry,
		Stop:      s.Stop,
		Target:    target,
		Size:      s.Size,
	}
}

func (pm *PositionManager) manage(b *models.Bar) models.Action {
	pos := pm.open
	pos.barCount++
	if b.High > pos.highest {
		pos.highest = b.High
	}
	if b.Low < pos.lowest {
		pos.lowest = b.Low
	}

	trailed := pm.updateTrailing(pos)

	if pos.direction == models.Long {
		if b.Low <= pos.trailing {
			return pm.closeAt(pos.trailing, ReasonStop, false)
		}
		if pos.target > 0 && b.High >= pos.target {
			return pm.closeAt(pos.target, ReasonTarget, false)
		}
	} else {
		if b.High >= pos.trailing {
			return pm.closeAt(pos.trailing, ReasonStop, false)
		}
		if pos.target > 0 && b.Low <= pos.target {
			return pm.closeAt(pos.target, ReasonTarget, false)
		}
	}

	if pos.barCount >= pm.cfg.MaxHoldBars {
		return pm.closeAt(b.Close, ReasonTimeout, false)
	}

	if trailed {
		return models.UpdateStop{Stop: pos.trailing}
	}
	return nil
}

// updateTrailing ratchets the trailing stop toward price once the
// favorable excursion clears the trailing distance. It never loosens.
func (pm *PositionManager) updateTrailing(pos *openPosition) bool {
	dist := pm.cfg.TrailingStop
	if pos.direction == models.Long {
		if pos.highest >= pos.entry+dist {
			if trail := pos.highest - dist; trail > pos.trailing {
				pos.trailing = trail
				return true
			}
		}
	} else {
		if pos.lowest <= pos.entry-dist {
			if trail := pos.lowest + dist; trail < pos.trailing {
				pos.trailing = trail
				return true
			}
		}
	}
	return false
}

// closeAt finalizes the open position at price. Net points subtract
// entry and exit slippage plus the commission converted to points.
// flatten selects the Flatten action shape over Exit.
func (pm *PositionManager) closeAt(price float64, reason string, flatten bool) models.Action {
	pos := pm.open
	pm.open = nil

	var gross float64
	if pos.direction == models.Long {
		gross = price - pos.entry
	} else {
		gross = pos.entry - price
	}

	slip := 2 * pm.cfg.Slippage
	commission := pm.cfg.Commission * float64(pos.size)
	net := gross - slip - commission/pm.cfg.PointValue

	pm.totalSlippage += slip
	pm.totalCommission += commission
	pm.dailyPnL += net
	pm.netPoints += net
	pm.totalTrades++

	dollars := net * pm.cfg.PointValue * float64(pos.size)
	pm.runningBalance += dollars
	if pm.runningBalance > pm.peakBalance {
		pm.peakBalance = pm.runningBalance
	}
	if dd := pm.peakBalance - pm.runningBalance; dd > pm.maxDrawdown {
		pm.maxDrawdown = dd
	}

	switch {
	case net > 0.5:
		pm.wins++
		pm.grossProfit += net
	case net < -0.5:
		pm.losses++
		pm.dailyLosses++
		pm.grossLoss += -net
		if pm.cfg.MaxDailyLosses > 0 && pm.dailyLosses >= pm.cfg.MaxDailyLosses {
			pm.dailyStopped = true
		}
	default:
		pm.breakevens++
	}

	if flatten {
		return models.Flatten{Reason: reason}
	}
	return models.Exit{
		Direction: pos.direction,
		Price:     price,
		Points:    net,
		Reason:    reason,
	}
}
