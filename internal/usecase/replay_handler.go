package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"NodeFlow/internal/domain/models"
	drepo "NodeFlow/internal/domain/repository"
	mid "NodeFlow/internal/middleware"
	pkgkafka "NodeFlow/pkg/kafka"
)

// TradeReplayHandler consumes trades from the replay topic and feeds
// them through the gate. Clean rejects are dropped, not retried.
type TradeReplayHandler struct {
	topic   string
	gate    *mid.TradeGate
	metrics drepo.Metrics
}

func NewTradeReplayHandler(topic string, gate *mid.TradeGate, metrics drepo.Metrics) *TradeReplayHandler {
	return &TradeReplayHandler{topic: topic, gate: gate, metrics: metrics}
}

func (h *TradeReplayHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t (epoch ms), p, q, side}
func (h *TradeReplayHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		P      float64 `json:"p"`
		Q      int64   `json:"q"`
		Side   string  `json:"side"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordReject("replay_unmarshal")
		return nil
	}

	t := &models.Trade{
		Symbol:    m.Symbol,
		Timestamp: time.UnixMilli(m.T).UTC(),
		Price:     m.P,
		Size:      m.Q,
		Side:      models.Side(m.Side),
	}
	if err := h.gate.Process(ctx, t); err != nil {
		if errors.Is(err, mid.ErrTradeRejected) {
			return nil
		}
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*TradeReplayHandler)(nil)
