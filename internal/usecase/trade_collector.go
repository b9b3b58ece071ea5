package usecase

import (
	"context"
	"errors"

	drepo "NodeFlow/internal/domain/repository"
	mid "NodeFlow/internal/middleware"
	"NodeFlow/pkg/logger"
)

// TradeCollector reads the market stream and pushes every trade through
// the validation gate into the processor. Stream errors trigger a
// reconnect loop; the fresh channels replace the dead ones.
type TradeCollector struct {
	stream drepo.MarketStream
	gate   *mid.TradeGate
	log    *logger.Logger
}

// NewTradeCollector creates a new TradeCollector instance.
func NewTradeCollector(stream drepo.MarketStream, gate *mid.TradeGate, log *logger.Logger) *TradeCollector {
	return &TradeCollector{stream: stream, gate: gate, log: log}
}

// IsConnected returns true if the market stream is connected.
func (c *TradeCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes, and launches the consume loop.
func (c *TradeCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	go c.consume(ctx)
	return nil
}

func (c *TradeCollector) consume(ctx context.Context) {
	trCh, errCh := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			c.log.Warn("stream error, reconnecting", logger.Error(err))
			if !c.reconnect(ctx) {
				return
			}
			trCh, errCh = c.stream.Read(ctx)
		case t, ok := <-trCh:
			if !ok {
				if !c.reconnect(ctx) {
					return
				}
				trCh, errCh = c.stream.Read(ctx)
				continue
			}
			if t == nil {
				continue
			}
			if err := c.gate.Process(ctx, t); err != nil && !errors.Is(err, mid.ErrTradeRejected) {
				c.log.Error("process trade", logger.Error(err), logger.String("symbol", t.Symbol))
			}
		}
	}
}

// reconnect retries until the stream is back or the context ends.
func (c *TradeCollector) reconnect(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}
			c.log.Warn("reconnect failed, retrying", logger.Error(err))
			continue
		}
		c.log.Info("stream reconnected")
		return true
	}
}

// Shutdown closes the stream.
func (c *TradeCollector) Shutdown(ctx context.Context) error {
	return c.stream.Close()
}
