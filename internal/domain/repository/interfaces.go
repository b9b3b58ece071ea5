package repository

import (
	"context"
	"time"

	"NodeFlow/internal/domain/models"
)

// MarketStream is an inbound trade feed (live websocket or replay).
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// ActionPublisher delivers engine actions to the execution collaborator.
// The action record is the full extent of the engine's outbound contract.
type ActionPublisher interface {
	Publish(ctx context.Context, symbol string, a models.Action) error
	Close() error
}

// BarStore persists finished bars and serves historical session windows
// for daily level computation.
type BarStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, b *models.Bar) error
	StoreBatch(ctx context.Context, bars []*models.Bar) error
	Query(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	Health(ctx context.Context) error
	Close() error
}

// LevelStore is the per-date DailyLevels snapshot lookup.
// Lookup returns (nil, nil) when no snapshot exists for the date.
type LevelStore interface {
	Lookup(ctx context.Context, date string) (*models.DailyLevels, error)
	Save(ctx context.Context, levels *models.DailyLevels) error
}

// ActionJournal records every emitted action for later analysis.
// Journal failures must never block the engine.
type ActionJournal interface {
	Record(ctx context.Context, symbol string, a models.Action, at time.Time) error
}

// Metrics is the engine's telemetry sink.
type Metrics interface {
	RecordTrade(symbol string)
	RecordReject(kind string)
	RecordBar(symbol string)
	RecordTransition(kind string)
	RecordAction(kind models.ActionKind)
	RecordState(state string)
	RecordSessionPnL(points float64)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
