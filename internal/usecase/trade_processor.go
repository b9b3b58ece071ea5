package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"NodeFlow/internal/domain/models"
	drepo "NodeFlow/internal/domain/repository"
	"NodeFlow/internal/engine"
	mid "NodeFlow/internal/middleware"
	"NodeFlow/pkg/logger"
)

// TradeProcessor owns the engine and serializes every trade through it.
// Emitted actions go to the publisher and the journal; data-quality
// rejects are counted and dropped so a bad tick never stalls the stream.
type TradeProcessor struct {
	engine  *engine.Engine
	pub     drepo.ActionPublisher
	journal drepo.ActionJournal
	metrics drepo.Metrics
	log     *logger.Logger

	mu sync.Mutex
}

// NewTradeProcessor creates a new TradeProcessor instance.
func NewTradeProcessor(
	eng *engine.Engine,
	pub drepo.ActionPublisher,
	journal drepo.ActionJournal,
	metrics drepo.Metrics,
	log *logger.Logger,
) *TradeProcessor {
	return &TradeProcessor{
		engine:  eng,
		pub:     pub,
		journal: journal,
		metrics: metrics,
		log:     log,
	}
}

// Engine exposes the underlying engine for read-only monitoring.
func (p *TradeProcessor) Engine() *engine.Engine { return p.engine }

// EngineSnapshot is a consistent read of the engine's observable state.
type EngineSnapshot struct {
	State        string
	MarketState  string
	TrackedNodes int
	ArmedNodes   int
	SessionPnL   float64
	LastPrice    float64
	Summary      engine.Summary
	Levels       *models.DailyLevels
	Tracked      []engine.TrackedLevel
}

// Snapshot reads the engine under the same lock the trade path uses.
func (p *TradeProcessor) Snapshot() EngineSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return EngineSnapshot{
		State:        string(p.engine.State()),
		MarketState:  string(p.engine.MarketState()),
		TrackedNodes: p.engine.TrackedNodes(),
		ArmedNodes:   p.engine.ArmedNodes(),
		SessionPnL:   p.engine.SessionPnL(),
		LastPrice:    p.engine.LastPrice(),
		Summary:      p.engine.Summary(),
		Levels:       p.engine.DailyLevels(),
		Tracked:      p.engine.TrackedLevels(),
	}
}

// SetDailyLevels forwards fresh session levels under the engine lock.
func (p *TradeProcessor) SetDailyLevels(levels *models.DailyLevels) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.SetDailyLevels(levels)
}

// Process folds one trade into the engine and dispatches any resulting
// action. Sentinel rejections are counted and swallowed.
func (p *TradeProcessor) Process(ctx context.Context, t *models.Trade) error {
	if t == nil {
		return fmt.Errorf("trade is nil")
	}

	p.mu.Lock()
	action, err := p.engine.ProcessTrade(t)
	p.mu.Unlock()

	if err != nil {
		switch {
		case errors.Is(err, engine.ErrMalformedTrade):
			p.metrics.RecordReject("malformed")
		case errors.Is(err, engine.ErrOutOfOrderTrade):
			p.metrics.RecordReject("out_of_order")
		case errors.Is(err, engine.ErrStaleTrade):
			p.metrics.RecordReject("stale_interval")
		default:
			return fmt.Errorf("process trade: %w", err)
		}
		return nil
	}

	if action != nil {
		return p.dispatch(ctx, t.Symbol, action)
	}
	return nil
}

// Flush finalizes the open partial bar, e.g. at a session boundary.
func (p *TradeProcessor) Flush(ctx context.Context, symbol string) error {
	p.mu.Lock()
	action := p.engine.Flush()
	p.mu.Unlock()

	if action != nil {
		return p.dispatch(ctx, symbol, action)
	}
	return nil
}

// Shutdown flushes the open bar and force-exits any live position. The
// resulting actions are still delivered before resources close.
func (p *TradeProcessor) Shutdown(ctx context.Context, symbol string) error {
	p.mu.Lock()
	flushed := p.engine.Flush()
	final := p.engine.Shutdown()
	p.mu.Unlock()

	if flushed != nil {
		if err := p.dispatch(ctx, symbol, flushed); err != nil {
			p.log.Error("dispatch flushed action", logger.Error(err))
		}
	}
	if final != nil {
		if err := p.dispatch(ctx, symbol, final); err != nil {
			p.log.Error("dispatch final action", logger.Error(err))
		}
	}
	return nil
}

// dispatch journals and publishes one action. The journal is
// best-effort; publish failures propagate to the caller.
func (p *TradeProcessor) dispatch(ctx context.Context, symbol string, a models.Action) error {
	now := time.Now().UTC()
	if p.journal != nil {
		if err := p.journal.Record(ctx, symbol, a, now); err != nil {
			p.log.Warn("journal action", logger.Error(err))
		}
	}
	if p.pub != nil {
		if err := p.pub.Publish(ctx, symbol, a); err != nil {
			return fmt.Errorf("publish %s action: %w", a.Kind(), err)
		}
	}
	return nil
}

// Close closes the outbound publisher.
func (p *TradeProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}

var _ mid.Proc = (*TradeProcessor)(nil)
