package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NodeFlow/internal/domain/models"
	domrepo "NodeFlow/internal/domain/repository"
)

// ErrTradeRejected wraps every validation failure, so callers can tell
// a clean reject from a downstream processing error.
var ErrTradeRejected = errors.New("trade rejected")

// Proc is the minimal downstream interface the gate needs.
type Proc interface {
	Process(ctx context.Context, t *models.Trade) error
}

// TradeGate sits between the inbound stream and the engine. It rejects
// malformed or off-symbol trades at the boundary so the engine only
// sees well-formed input, and counts every rejection by reason.
type TradeGate struct {
	proc    Proc
	metrics domrepo.Metrics

	symbol       string
	maxStaleness time.Duration
}

type GateOption func(*TradeGate)

// WithSymbol restricts the gate to a single instrument. Trades for any
// other symbol are rejected.
func WithSymbol(symbol string) GateOption {
	return func(g *TradeGate) { g.symbol = symbol }
}

// WithMaxStaleness rejects trades whose event time lags the wall clock
// by more than d. Zero disables the check (replay runs).
func WithMaxStaleness(d time.Duration) GateOption {
	return func(g *TradeGate) { g.maxStaleness = d }
}

// NewTradeGate creates a gate in front of the given processor.
func NewTradeGate(proc Proc, metrics domrepo.Metrics, opts ...GateOption) *TradeGate {
	g := &TradeGate{proc: proc, metrics: metrics}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Process validates one trade and forwards it downstream.
func (g *TradeGate) Process(ctx context.Context, t *models.Trade) error {
	start := time.Now()
	if reason, err := g.check(t, start); err != nil {
		g.metrics.RecordReject(reason)
		return err
	}

	if err := g.proc.Process(ctx, t); err != nil {
		return fmt.Errorf("gate downstream: %w", err)
	}
	g.metrics.RecordLatency("gate_process", time.Since(start).Seconds())
	return nil
}

func (g *TradeGate) check(t *models.Trade, now time.Time) (string, error) {
	switch {
	case t == nil:
		return "nil", fmt.Errorf("%w: trade nil", ErrTradeRejected)
	case t.Symbol == "":
		return "symbol_empty", fmt.Errorf("%w: symbol empty", ErrTradeRejected)
	case g.symbol != "" && t.Symbol != g.symbol:
		return "symbol_mismatch", fmt.Errorf("%w: unexpected symbol %q", ErrTradeRejected, t.Symbol)
	case t.Timestamp.IsZero():
		return "timestamp_zero", fmt.Errorf("%w: timestamp missing", ErrTradeRejected)
	case t.Price <= 0:
		return "price_invalid", fmt.Errorf("%w: price %v out of range", ErrTradeRejected, t.Price)
	case t.Size <= 0:
		return "size_invalid", fmt.Errorf("%w: size %d out of range", ErrTradeRejected, t.Size)
	case !t.Side.Valid():
		return "side_invalid", fmt.Errorf("%w: unknown side %q", ErrTradeRejected, t.Side)
	case g.maxStaleness > 0 && now.Sub(t.Timestamp) > g.maxStaleness:
		return "stale", fmt.Errorf("%w: trade %s stale by %s", ErrTradeRejected, t.Symbol, now.Sub(t.Timestamp))
	}
	return "", nil
}
