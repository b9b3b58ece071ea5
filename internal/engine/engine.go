package engine

import (
	"fmt"
	"time"

	"NodeFlow/internal/domain/models"
	domrepo "NodeFlow/internal/domain/repository"
	"NodeFlow/pkg/logger"
)

// notifyBuffer sizes the notification channel. Sends never block; a
// slow reader just misses notifications.
const notifyBuffer = 256

// Engine is the synchronous reducer over the ordered trade stream. One
// event, including every transition it triggers, runs to completion
// before the next is accepted. Not safe for concurrent use; callers
// serialize.
type Engine struct {
	cfg       Config
	log       *logger.Logger
	metrics   domrepo.Metrics
	agg       *BarAggregator
	machine   *BreakoutStateMachine
	signals   *LevelSignalGenerator
	positions *PositionManager

	loc         *time.Location
	lastTradeTS time.Time
	lastPrice   float64
	sessionDate string
	barSink     func(*models.Bar)

	notifications chan Transition
}

// New builds an engine from the validated configuration.
func New(cfg Config, log *logger.Logger, metrics domrepo.Metrics) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	positions, err := NewPositionManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("position manager: %w", err)
	}
	return &Engine{
		cfg:           cfg,
		log:           log,
		metrics:       metrics,
		agg:           NewBarAggregator(cfg.Interval),
		machine:       NewBreakoutStateMachine(cfg),
		signals:       NewLevelSignalGenerator(cfg),
		positions:     positions,
		loc:           positions.loc,
		notifications: make(chan Transition, notifyBuffer),
	}, nil
}

// SetDailyLevels supplies the session reference levels. Must be called
// before breakout detection can trigger.
func (e *Engine) SetDailyLevels(levels *models.DailyLevels) {
	e.machine.SetDailyLevels(levels)
	e.log.Info("daily levels set",
		logger.String("date", levels.Date),
		logger.Float64("pdh", levels.PriorDayHigh),
		logger.Float64("pdl", levels.PriorDayLow),
		logger.Float64("vah", levels.ValueAreaHigh),
		logger.Float64("val", levels.ValueAreaLow))
}

// SetBarSink registers a callback that receives every finished bar,
// e.g. for persistence. Called synchronously on the engine goroutine;
// the sink must not block.
func (e *Engine) SetBarSink(fn func(*models.Bar)) { e.barSink = fn }

// Notifications exposes the read-only state-transition feed. It carries
// no control authority.
func (e *Engine) Notifications() <-chan Transition { return e.notifications }

// State returns the breakout machine's phase.
func (e *Engine) State() BreakoutState { return e.machine.State() }

// TrackedNodes returns the tracked node count.
func (e *Engine) TrackedNodes() int { return e.signals.TrackedCount() }

// ArmedNodes returns the armed/retesting node count.
func (e *Engine) ArmedNodes() int { return e.signals.ArmedCount() }

// SessionPnL returns the day's accumulated net points.
func (e *Engine) SessionPnL() float64 { return e.positions.DailyPnL() }

// Summary returns the cumulative trading statistics.
func (e *Engine) Summary() Summary { return e.positions.Summary() }

// MarketState reports the classifier's current reading.
func (e *Engine) MarketState() models.MarketState { return e.signals.MarketState() }

// TrackedLevels returns the tracked levels for the monitoring surface.
func (e *Engine) TrackedLevels() []TrackedLevel { return e.signals.Levels() }

// LastPrice returns the last accepted trade price.
func (e *Engine) LastPrice() float64 { return e.lastPrice }

// DailyLevels returns the active reference levels, nil before they are
// set for the session.
func (e *Engine) DailyLevels() *models.DailyLevels { return e.machine.DailyLevels() }

// ProcessTrade folds one trade in. A trade that finalizes a bar yields
// at most one action. Rejected trades return a sentinel error and leave
// state untouched.
func (e *Engine) ProcessTrade(t *models.Trade) (models.Action, error) {
	if t.Price <= 0 || t.Size <= 0 || !t.Side.Valid() {
		return nil, ErrMalformedTrade
	}
	if t.Timestamp.Before(e.lastTradeTS) {
		return nil, ErrOutOfOrderTrade
	}

	done, err := e.agg.Add(t)
	if err != nil {
		return nil, err
	}
	e.lastTradeTS = t.Timestamp
	e.lastPrice = t.Price
	e.metrics.RecordTrade(t.Symbol)
	e.metrics.RecordLastPrice(t.Symbol, t.Price)

	var action models.Action
	if done != nil {
		action = e.processBar(done)
	}
	e.machine.ProcessTrade(t)
	return action, nil
}

// Flush finalizes the open partial bar and runs it through the engine.
// Used at shutdown and session boundaries.
func (e *Engine) Flush() models.Action {
	done := e.agg.Flush()
	if done == nil {
		return nil
	}
	return e.processBar(done)
}

// Shutdown force-exits any open position at the last observed price.
func (e *Engine) Shutdown() models.Action {
	id, had := e.positions.OpenImpulseID()
	a := e.positions.ForceFlatten(e.lastPrice, ReasonShutdown)
	if a != nil {
		if had {
			e.signals.ClearImpulse(id)
		}
		e.machine.ForceReset()
		e.emitAction(a)
	}
	return a
}

// processBar drives every component in the fixed order: session
// rollover, breakout machine, position manager, signal generator.
func (e *Engine) processBar(b *models.Bar) models.Action {
	start := time.Now()
	e.metrics.RecordBar(b.Symbol)
	if e.barSink != nil {
		e.barSink(b)
	}
	e.rollover(b)

	if tr := e.machine.ProcessBar(b); tr != nil {
		e.onTransition(tr)
	}

	tradeImpulse, hadTrade := e.positions.OpenImpulseID()
	action := e.positions.ProcessBar(b)
	if closed(action) && hadTrade {
		e.machine.ForceReset()
		e.signals.ClearImpulse(tradeImpulse)
	}

	if action == nil && e.positions.Flat() {
		if sig := e.signals.ProcessBar(b); sig != nil {
			e.log.Info("signal",
				logger.String("direction", string(sig.Direction)),
				logger.Float64("entry", sig.Entry),
				logger.Float64("level", sig.LevelPrice),
				logger.Int64("delta", sig.Delta))
			action = e.positions.OnSignal(sig)
		}
	} else {
		e.signals.Observe(b)
	}

	e.metrics.RecordState(string(e.machine.State()))
	e.metrics.RecordSessionPnL(e.positions.DailyPnL())
	e.metrics.RecordLatency("process_bar", time.Since(start).Seconds())

	if action != nil {
		e.emitAction(action)
	}
	return action
}

// closed reports whether the action ended the live trade.
func closed(a models.Action) bool {
	if a == nil {
		return false
	}
	k := a.Kind()
	return k == models.ActionExit || k == models.ActionFlatten
}

// rollover clears per-session state when the bar lands on a new
// exchange date, the same calendar the position manager rolls its risk
// counters on. Fresh daily levels must be supplied before breakouts
// resume.
func (e *Engine) rollover(b *models.Bar) {
	date := b.Timestamp.In(e.loc).Format("2006-01-02")
	if e.sessionDate == date {
		return
	}
	if e.sessionDate != "" {
		e.log.Info("session rollover", logger.String("date", date))
		e.machine.ForceReset()
		e.signals.ClearAll()
	}
	e.sessionDate = date
}

func (e *Engine) onTransition(tr *Transition) {
	e.metrics.RecordTransition(string(tr.Kind))
	select {
	case e.notifications <- *tr:
	default:
	}

	switch tr.Kind {
	case TransitionBreakout:
		e.log.Info("breakout detected",
			logger.String("level", string(tr.Level)),
			logger.String("direction", string(tr.Direction)),
			logger.Float64("price", tr.Price),
			logger.Int64("impulse_id", tr.ImpulseID))
	case TransitionImpulseDone:
		e.signals.AddNodes(e.machine.Nodes())
		e.log.Info("impulse complete",
			logger.Int64("impulse_id", tr.ImpulseID),
			logger.Int("nodes", tr.NodeCount),
			logger.String("direction", string(tr.Direction)))
	case TransitionImpulseInvalid:
		e.log.Info("impulse invalid",
			logger.Int64("impulse_id", tr.ImpulseID),
			logger.String("reason", tr.Reason))
	case TransitionHuntingTimeout:
		e.signals.ClearImpulse(tr.ImpulseID)
		e.log.Info("hunting timeout", logger.Int64("impulse_id", tr.ImpulseID))
	case TransitionReset:
		e.log.Debug("reset complete")
	}
}

func (e *Engine) emitAction(a models.Action) {
	e.metrics.RecordAction(a.Kind())
	switch v := a.(type) {
	case models.Enter:
		e.log.Info("enter",
			logger.String("direction", string(v.Direction)),
			logger.Float64("price", v.Price),
			logger.Float64("stop", v.Stop),
			logger.Float64("target", v.Target))
	case models.Exit:
		e.log.Info("exit",
			logger.String("direction", string(v.Direction)),
			logger.Float64("price", v.Price),
			logger.Float64("points", v.Points),
			logger.String("reason", v.Reason))
	case models.UpdateStop:
		e.log.Debug("trailing stop", logger.Float64("stop", v.Stop))
	case models.Flatten:
		e.log.Warn("flatten", logger.String("reason", v.Reason))
	case models.Pending:
		e.log.Info("signal pending, entering next bar")
	}
}
