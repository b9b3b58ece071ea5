package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
	mid "NodeFlow/internal/middleware"
)

type recordMetrics struct {
	mu      sync.Mutex
	rejects []string
}

func (m *recordMetrics) RecordTrade(string)              {}
func (m *recordMetrics) RecordBar(string)                {}
func (m *recordMetrics) RecordTransition(string)         {}
func (m *recordMetrics) RecordAction(models.ActionKind)  {}
func (m *recordMetrics) RecordState(string)              {}
func (m *recordMetrics) RecordSessionPnL(float64)        {}
func (m *recordMetrics) RecordLastPrice(string, float64) {}
func (m *recordMetrics) RecordLatency(string, float64)   {}

func (m *recordMetrics) RecordReject(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejects = append(m.rejects, reason)
}

type recordProc struct {
	trades []*models.Trade
}

func (p *recordProc) Process(_ context.Context, t *models.Trade) error {
	p.trades = append(p.trades, t)
	return nil
}

func TestReplayHandlerDecodesTrade(t *testing.T) {
	m := &recordMetrics{}
	proc := &recordProc{}
	gate := mid.NewTradeGate(proc, m, mid.WithSymbol("NQ"))
	h := NewTradeReplayHandler("nodeflow.trades", gate, m)

	assert.Equal(t, "nodeflow.trades", h.Topic())

	msg := []byte(`{"symbol":"NQ","t":1748959200000,"p":21500.25,"q":3,"side":"buy"}`)
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, proc.trades, 1)
	tr := proc.trades[0]
	assert.Equal(t, "NQ", tr.Symbol)
	assert.Equal(t, 21500.25, tr.Price)
	assert.Equal(t, int64(3), tr.Size)
	assert.Equal(t, models.Buy, tr.Side)
	assert.Equal(t, time.UnixMilli(1748959200000).UTC(), tr.Timestamp)
}

func TestReplayHandlerDropsMalformedPayload(t *testing.T) {
	m := &recordMetrics{}
	proc := &recordProc{}
	gate := mid.NewTradeGate(proc, m)
	h := NewTradeReplayHandler("nodeflow.trades", gate, m)

	require.NoError(t, h.Handle(context.Background(), []byte("not json")))
	assert.Empty(t, proc.trades)
	assert.Equal(t, []string{"replay_unmarshal"}, m.rejects)
}

func TestReplayHandlerDropsRejectedTrades(t *testing.T) {
	m := &recordMetrics{}
	proc := &recordProc{}
	gate := mid.NewTradeGate(proc, m, mid.WithSymbol("NQ"))
	h := NewTradeReplayHandler("nodeflow.trades", gate, m)

	msg := []byte(`{"symbol":"ES","t":1748959200000,"p":5300,"q":1,"side":"sell"}`)
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Empty(t, proc.trades)
	assert.Equal(t, []string{"symbol_mismatch"}, m.rejects)
}
