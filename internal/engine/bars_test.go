package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
)

func TestBarAggregatorBuildsBarFromInterval(t *testing.T) {
	agg := NewBarAggregator(time.Second)

	done, err := agg.Add(mkTrade(0, 100.00, 5, models.Buy))
	require.NoError(t, err)
	require.Nil(t, done)

	done, err = agg.Add(&models.Trade{
		Timestamp: sessionStart.Add(500 * time.Millisecond),
		Price:     100.25, Size: 3, Side: models.Sell, Symbol: "NQ",
	})
	require.NoError(t, err)
	require.Nil(t, done)

	done, err = agg.Add(mkTrade(1, 100.10, 1, models.Buy))
	require.NoError(t, err)
	require.NotNil(t, done)

	require.Equal(t, 100.00, done.Open)
	require.Equal(t, 100.25, done.Close)
	require.Equal(t, int64(8), done.Volume)
	require.Equal(t, int64(2), done.Delta())
	require.Equal(t, int64(2), done.TradeCount)
	require.Equal(t, sessionStart, done.Timestamp)
}

func TestBarAggregatorInvariants(t *testing.T) {
	agg := NewBarAggregator(time.Second)

	prices := []float64{100.5, 99.75, 101.25, 100.0}
	for i, p := range prices {
		side := models.Buy
		if i%2 == 1 {
			side = models.Sell
		}
		_, err := agg.Add(&models.Trade{
			Timestamp: sessionStart.Add(time.Duration(i*100) * time.Millisecond),
			Price:     p, Size: 2, Side: side, Symbol: "NQ",
		})
		require.NoError(t, err)
	}

	b := agg.Flush()
	require.NotNil(t, b)
	require.GreaterOrEqual(t, b.High, b.Open)
	require.GreaterOrEqual(t, b.High, b.Close)
	require.LessOrEqual(t, b.Low, b.Open)
	require.LessOrEqual(t, b.Low, b.Close)
	require.Equal(t, b.BuyVolume-b.SellVolume, b.Delta())
	require.Nil(t, agg.Flush())
}

func TestBarAggregatorRejectsEarlierInterval(t *testing.T) {
	agg := NewBarAggregator(time.Second)

	_, err := agg.Add(mkTrade(5, 100, 1, models.Buy))
	require.NoError(t, err)

	_, err = agg.Add(mkTrade(3, 99, 1, models.Sell))
	require.ErrorIs(t, err, ErrStaleTrade)

	// the open bar is untouched
	cur := agg.Current()
	require.Equal(t, int64(1), cur.TradeCount)
	require.Equal(t, 100.0, cur.Close)
}

func TestBarAggregatorFlushWithoutBar(t *testing.T) {
	agg := NewBarAggregator(time.Second)
	require.Nil(t, agg.Flush())
}
