package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
)

type captureMetrics struct {
	mu      sync.Mutex
	rejects []string
}

func (m *captureMetrics) RecordTrade(string)              {}
func (m *captureMetrics) RecordBar(string)                {}
func (m *captureMetrics) RecordTransition(string)         {}
func (m *captureMetrics) RecordAction(models.ActionKind)  {}
func (m *captureMetrics) RecordState(string)              {}
func (m *captureMetrics) RecordSessionPnL(float64)        {}
func (m *captureMetrics) RecordLastPrice(string, float64) {}
func (m *captureMetrics) RecordLatency(string, float64)   {}

func (m *captureMetrics) RecordReject(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejects = append(m.rejects, reason)
}

type captureProc struct {
	trades []*models.Trade
}

func (p *captureProc) Process(_ context.Context, t *models.Trade) error {
	p.trades = append(p.trades, t)
	return nil
}

func validTrade() *models.Trade {
	return &models.Trade{
		Symbol:    "NQ",
		Timestamp: time.Now().UTC(),
		Price:     21500.25,
		Size:      2,
		Side:      models.Buy,
	}
}

func TestGateForwardsValidTrade(t *testing.T) {
	m := &captureMetrics{}
	proc := &captureProc{}
	g := NewTradeGate(proc, m, WithSymbol("NQ"))

	require.NoError(t, g.Process(context.Background(), validTrade()))
	require.Len(t, proc.trades, 1)
	assert.Empty(t, m.rejects)
}

func TestGateRejectsBySymbol(t *testing.T) {
	m := &captureMetrics{}
	proc := &captureProc{}
	g := NewTradeGate(proc, m, WithSymbol("NQ"))

	tr := validTrade()
	tr.Symbol = "ES"
	err := g.Process(context.Background(), tr)
	require.ErrorIs(t, err, ErrTradeRejected)
	assert.Empty(t, proc.trades)
	assert.Equal(t, []string{"symbol_mismatch"}, m.rejects)
}

func TestGateRejectsMalformedFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Trade)
		reason string
	}{
		{"empty symbol", func(tr *models.Trade) { tr.Symbol = "" }, "symbol_empty"},
		{"zero timestamp", func(tr *models.Trade) { tr.Timestamp = time.Time{} }, "timestamp_zero"},
		{"zero price", func(tr *models.Trade) { tr.Price = 0 }, "price_invalid"},
		{"negative size", func(tr *models.Trade) { tr.Size = -1 }, "size_invalid"},
		{"unknown side", func(tr *models.Trade) { tr.Side = "x" }, "side_invalid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &captureMetrics{}
			proc := &captureProc{}
			g := NewTradeGate(proc, m)

			tr := validTrade()
			tc.mutate(tr)
			err := g.Process(context.Background(), tr)
			require.ErrorIs(t, err, ErrTradeRejected)
			assert.Empty(t, proc.trades)
			assert.Equal(t, []string{tc.reason}, m.rejects)
		})
	}
}

func TestGateRejectsStaleTrades(t *testing.T) {
	m := &captureMetrics{}
	proc := &captureProc{}
	g := NewTradeGate(proc, m, WithMaxStaleness(time.Minute))

	tr := validTrade()
	tr.Timestamp = time.Now().Add(-2 * time.Minute)
	err := g.Process(context.Background(), tr)
	require.ErrorIs(t, err, ErrTradeRejected)
	assert.Equal(t, []string{"stale"}, m.rejects)
}

func TestGateZeroStalenessDisablesCheck(t *testing.T) {
	m := &captureMetrics{}
	proc := &captureProc{}
	g := NewTradeGate(proc, m)

	tr := validTrade()
	tr.Timestamp = time.Now().Add(-24 * time.Hour)
	require.NoError(t, g.Process(context.Background(), tr))
	require.Len(t, proc.trades, 1)
}
