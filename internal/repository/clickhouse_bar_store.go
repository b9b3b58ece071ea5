package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NodeFlow/internal/domain/models"
	"NodeFlow/internal/domain/repository"
	pkgch "NodeFlow/pkg/clickhouse"
)

// ClickHouseBarStore persists finished bars and serves the historical
// session windows the daily level calculator reads.
type ClickHouseBarStore struct {
	client *pkgch.Client
	table  string
}

// NewClickHouseBarStore creates a bar store on an existing client.
func NewClickHouseBarStore(client *pkgch.Client, table string) repository.BarStore {
	if table == "" {
		table = "bars"
	}
	return &ClickHouseBarStore{client: client, table: table}
}

func (s *ClickHouseBarStore) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime64(3),
		symbol LowCardinality(String),
		open Float64,
		high Float64,
		low Float64,
		close Float64,
		volume Int64,
		buy_volume Int64,
		sell_volume Int64,
		trade_count Int64
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(ts)
	ORDER BY (symbol, ts)`, s.table)
	return s.client.InitSchema(ctx, []string{stmt})
}

func (s *ClickHouseBarStore) Store(ctx context.Context, b *models.Bar) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, open, high, low, close, volume, buy_volume, sell_volume, trade_count) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.client.DB().ExecContext(ctx, q,
		b.Timestamp, b.Symbol, b.Open, b.High, b.Low, b.Close,
		b.Volume, b.BuyVolume, b.SellVolume, b.TradeCount,
	)
	if err != nil {
		return fmt.Errorf("store bar: %w", err)
	}
	return nil
}

func (s *ClickHouseBarStore) StoreBatch(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, b := range bars[start:end] {
			if b == nil || b.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				b.Timestamp, b.Symbol, b.Open, b.High, b.Low, b.Close,
				b.Volume, b.BuyVolume, b.SellVolume, b.TradeCount,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, open, high, low, close, volume, buy_volume, sell_volume, trade_count) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.client.DB().ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store bar batch: %w", err)
		}
	}
	return nil
}

// Query returns bars for a symbol in [from, to], ascending by time.
func (s *ClickHouseBarStore) Query(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	q := fmt.Sprintf("SELECT ts, symbol, open, high, low, close, volume, buy_volume, sell_volume, trade_count FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC", s.table)
	rows, err := s.client.DB().QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close,
			&b.Volume, &b.BuyVolume, &b.SellVolume, &b.TradeCount); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseBarStore) Close() error {
	return nil // client lifecycle is managed by the app
}
