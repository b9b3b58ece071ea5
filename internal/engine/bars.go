package engine

import (
	"time"

	"NodeFlow/internal/domain/models"
)

// BarAggregator folds a trade stream into fixed-interval OHLCV bars
// with the buy/sell volume split. A trade from a later interval
// finalizes the open bar; a trade from an earlier interval is rejected
// so finalized bars stay immutable.
type BarAggregator struct {
	interval time.Duration
	current  *models.Bar
}

// NewBarAggregator creates an aggregator for the given interval.
func NewBarAggregator(interval time.Duration) *BarAggregator {
	return &BarAggregator{interval: interval}
}

// Add folds one trade in. It returns the finalized previous bar when
// the trade opens a new interval, or nil otherwise. ErrStaleTrade is
// returned for a trade whose interval precedes the open bar.
func (a *BarAggregator) Add(t *models.Trade) (*models.Bar, error) {
	bucket := t.Timestamp.Truncate(a.interval)

	if a.current == nil {
		a.current = newBar(bucket, t)
		return nil, nil
	}

	switch {
	case bucket.Equal(a.current.Timestamp):
		applyTrade(a.current, t)
		return nil, nil
	case bucket.After(a.current.Timestamp):
		done := a.current
		a.current = newBar(bucket, t)
		return done, nil
	default:
		return nil, ErrStaleTrade
	}
}

// Flush finalizes and returns the open bar without a triggering trade,
// or nil when no bar is open.
func (a *BarAggregator) Flush() *models.Bar {
	done := a.current
	a.current = nil
	return done
}

// Current returns the open partial bar, nil when none.
func (a *BarAggregator) Current() *models.Bar { return a.current }

func newBar(bucket time.Time, t *models.Trade) *models.Bar {
	b := &models.Bar{
		Timestamp:  bucket,
		Open:       t.Price,
		High:       t.Price,
		Low:        t.Price,
		Close:      t.Price,
		Volume:     t.Size,
		TradeCount: 1,
		Symbol:     t.Symbol,
	}
	if t.Side == models.Buy {
		b.BuyVolume = t.Size
	} else {
		b.SellVolume = t.Size
	}
	return b
}

func applyTrade(b *models.Bar, t *models.Trade) {
	if t.Price > b.High {
		b.High = t.Price
	}
	if t.Price < b.Low {
		b.Low = t.Price
	}
	b.Close = t.Price
	b.Volume += t.Size
	if t.Side == models.Buy {
		b.BuyVolume += t.Size
	} else {
		b.SellVolume += t.Size
	}
	b.TradeCount++
}
