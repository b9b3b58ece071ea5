package engine

import (
	"fmt"
	"math"

	"NodeFlow/internal/domain/models"
)

// BreakoutState is the phase of the breakout machine.
type BreakoutState string

const (
	WaitingForBreakout BreakoutState = "waiting_for_breakout"
	ProfilingImpulse   BreakoutState = "profiling_impulse"
	Hunting            BreakoutState = "hunting"
	Resetting          BreakoutState = "reset"
)

// TransitionKind names a state-machine notification.
type TransitionKind string

const (
	TransitionBreakout       TransitionKind = "breakout_detected"
	TransitionImpulseDone    TransitionKind = "impulse_complete"
	TransitionImpulseInvalid TransitionKind = "impulse_invalid"
	TransitionHuntingTimeout TransitionKind = "hunting_timeout"
	TransitionReset          TransitionKind = "reset_complete"
)

// Transition is a read-only notification emitted by the machine for
// logging and telemetry. It carries no control authority.
type Transition struct {
	Kind      TransitionKind
	Level     models.ReferenceLevel
	Direction models.ImpulseDirection
	Price     float64
	ImpulseID int64
	NodeCount int
	Reason    string
}

// Bars of pre-breakout history kept for the swing extremes handed to
// the impulse profiler.
const swingLookback = 10

// activeImpulse is the single owned impulse slot.
type activeImpulse struct {
	id       int64
	level    models.ReferenceLevel
	profiler *ImpulseProfiler
	trades   []models.Trade
	startBar int
}

// BreakoutStateMachine drives WaitingForBreakout -> ProfilingImpulse ->
// Hunting -> Reset. It owns the active impulse and the node set
// extracted from it; signal logic lives in LevelSignalGenerator.
type BreakoutStateMachine struct {
	cfg    Config
	state  BreakoutState
	levels *models.DailyLevels

	nextImpulseID int64
	active        *activeImpulse
	nodes         []models.LvnLevel

	huntingStart int
	barCount     int
	recent       []models.Bar // pre-breakout swing window
}

// NewBreakoutStateMachine creates the machine in WaitingForBreakout.
func NewBreakoutStateMachine(cfg Config) *BreakoutStateMachine {
	return &BreakoutStateMachine{
		cfg:    cfg,
		state:  WaitingForBreakout,
		recent: make([]models.Bar, 0, swingLookback),
	}
}

// SetDailyLevels supplies the session reference levels. Breakout
// detection is inert until this is called.
func (m *BreakoutStateMachine) SetDailyLevels(levels *models.DailyLevels) {
	m.levels = levels
}

// DailyLevels returns the active reference levels, nil when unset.
func (m *BreakoutStateMachine) DailyLevels() *models.DailyLevels { return m.levels }

// State returns the current phase.
func (m *BreakoutStateMachine) State() BreakoutState { return m.state }

// Nodes returns the node set of the completed impulse, valid during
// Hunting.
func (m *BreakoutStateMachine) Nodes() []models.LvnLevel { return m.nodes }

// ActiveImpulseID returns the live impulse id, if any.
func (m *BreakoutStateMachine) ActiveImpulseID() (int64, bool) {
	if m.active == nil {
		return 0, false
	}
	return m.active.id, true
}

// ProcessTrade accumulates a trade for node extraction while an impulse
// is being profiled.
func (m *BreakoutStateMachine) ProcessTrade(t *models.Trade) {
	if m.state == ProfilingImpulse && m.active != nil {
		m.active.trades = append(m.active.trades, *t)
	}
}

// ForceReset jumps straight to Reset regardless of state, clearing the
// impulse and node set. PositionManager calls this after any exit.
// Idempotent.
func (m *BreakoutStateMachine) ForceReset() {
	m.enterReset()
}

// ProcessBar advances the machine and returns a notification when a
// transition occurred.
func (m *BreakoutStateMachine) ProcessBar(b *models.Bar) *Transition {
	m.barCount++

	var tr *Transition
	switch m.state {
	case WaitingForBreakout:
		tr = m.processWaiting(b)
	case ProfilingImpulse:
		tr = m.processProfiling(b)
	case Hunting:
		tr = m.processHunting()
	case Resetting:
		m.state = WaitingForBreakout
		tr = &Transition{Kind: TransitionReset}
	}

	if m.state == WaitingForBreakout {
		m.rememberBar(b)
	}
	return tr
}

func (m *BreakoutStateMachine) processWaiting(b *models.Bar) *Transition {
	if m.levels == nil {
		return nil
	}

	level, dir, ok := checkBreakout(m.levels, b.Close, m.cfg.BreakoutThreshold)
	if !ok {
		return nil
	}

	m.nextImpulseID++
	swingHigh, swingLow := m.swingExtremes()
	m.active = &activeImpulse{
		id:       m.nextImpulseID,
		level:    level,
		profiler: NewImpulseProfiler(b, dir, swingHigh, swingLow, m.cfg.MinImpulseSize, m.cfg.FastImpulseBars),
		startBar: m.barCount,
	}
	m.state = ProfilingImpulse

	return &Transition{
		Kind:      TransitionBreakout,
		Level:     level,
		Direction: dir,
		Price:     b.Close,
		ImpulseID: m.active.id,
	}
}

func (m *BreakoutStateMachine) processProfiling(b *models.Bar) *Transition {
	imp := m.active
	imp.profiler.AddBar(b)

	if elapsed := m.barCount - imp.startBar; elapsed > m.cfg.MaxImpulseBars {
		m.enterReset()
		return &Transition{
			Kind:      TransitionImpulseInvalid,
			ImpulseID: imp.id,
			Reason:    fmt.Sprintf("timed out after %d bars", elapsed),
		}
	}

	if ratio := imp.profiler.RetraceRatio(); ratio > m.cfg.MaxRetraceRatio {
		m.enterReset()
		return &Transition{
			Kind:      TransitionImpulseInvalid,
			ImpulseID: imp.id,
			Reason:    fmt.Sprintf("retraced %.0f%% before completing", ratio*100),
		}
	}

	if imp.profiler.Size() < m.cfg.MinImpulseSize || imp.profiler.Score() < m.cfg.MinImpulseScore {
		return nil
	}

	dir := imp.profiler.Direction()
	nodes := ExtractNodes(imp.trades, imp.id, dir, imp.profiler.StartTime(), b.Timestamp, m.cfg.NodeBucketSize, m.cfg.NodeThresholdRatio)
	if len(nodes) == 0 {
		// a flat volume profile yields nothing to hunt; Hunting must
		// always hold a non-empty node set
		m.enterReset()
		return &Transition{
			Kind:      TransitionImpulseInvalid,
			ImpulseID: imp.id,
			Reason:    "no low-volume nodes",
		}
	}
	m.nodes = nodes
	m.huntingStart = m.barCount
	m.state = Hunting

	return &Transition{
		Kind:      TransitionImpulseDone,
		Direction: dir,
		ImpulseID: imp.id,
		NodeCount: len(m.nodes),
	}
}

func (m *BreakoutStateMachine) processHunting() *Transition {
	if elapsed := m.barCount - m.huntingStart; elapsed > m.cfg.MaxHuntingBars {
		id := m.active.id
		m.enterReset()
		return &Transition{Kind: TransitionHuntingTimeout, ImpulseID: id}
	}
	return nil
}

func (m *BreakoutStateMachine) enterReset() {
	m.state = Resetting
	m.active = nil
	m.nodes = nil
	m.huntingStart = 0
}

func (m *BreakoutStateMachine) rememberBar(b *models.Bar) {
	if len(m.recent) == swingLookback {
		copy(m.recent, m.recent[1:])
		m.recent[swingLookback-1] = *b
	} else {
		m.recent = append(m.recent, *b)
	}
}

func (m *BreakoutStateMachine) swingExtremes() (hi, lo float64) {
	hi, lo = math.Inf(-1), math.Inf(1)
	for i := range m.recent {
		if m.recent[i].High > hi {
			hi = m.recent[i].High
		}
		if m.recent[i].Low < lo {
			lo = m.recent[i].Low
		}
	}
	return hi, lo
}

// checkBreakout compares a close against the reference levels plus the
// threshold, in fixed priority: prior-day levels, then overnight, then
// value area. Overnight levels at zero are skipped (no overnight
// session).
func checkBreakout(l *models.DailyLevels, price, threshold float64) (models.ReferenceLevel, models.ImpulseDirection, bool) {
	if price > l.PriorDayHigh+threshold {
		return models.PriorDayHigh, models.ImpulseUp, true
	}
	if price < l.PriorDayLow-threshold {
		return models.PriorDayLow, models.ImpulseDown, true
	}
	if l.OvernightHigh > 0 && price > l.OvernightHigh+threshold {
		return models.OvernightHigh, models.ImpulseUp, true
	}
	if l.OvernightLow > 0 && price < l.OvernightLow-threshold {
		return models.OvernightLow, models.ImpulseDown, true
	}
	if price > l.ValueAreaHigh+threshold {
		return models.ValueAreaHigh, models.ImpulseUp, true
	}
	if price < l.ValueAreaLow-threshold {
		return models.ValueAreaLow, models.ImpulseDown, true
	}
	return "", "", false
}
