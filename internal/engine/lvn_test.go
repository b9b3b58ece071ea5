package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
)

func TestExtractNodesFindsThinBuckets(t *testing.T) {
	start := sessionStart
	end := sessionStart.Add(10 * time.Second)

	var trades []models.Trade
	for i, price := range []float64{21500, 21500.5, 21501, 21501.5, 21502} {
		trades = append(trades, *mkTrade(i, price, 300, models.Buy))
	}
	// one thin bucket in the middle of the profile
	trades = append(trades, *mkTrade(5, 21503, 1, models.Buy))
	trades = append(trades, *mkTrade(6, 21503.5, 300, models.Buy))

	nodes := ExtractNodes(trades, 7, models.ImpulseUp, start, end, 0.5, 0.15)
	require.Len(t, nodes, 1)

	n := nodes[0]
	require.Equal(t, int64(7), n.ImpulseID)
	require.Equal(t, 21503.0, n.Price)
	require.Equal(t, int64(1), n.Volume)
	require.Less(t, n.Ratio, 0.15)
	require.Equal(t, models.ImpulseUp, n.Direction)
	require.Equal(t, start, n.Start)
	require.Equal(t, end, n.End)
}

func TestExtractNodesSortedByPrice(t *testing.T) {
	end := sessionStart.Add(10 * time.Second)

	var trades []models.Trade
	for i := 0; i < 8; i++ {
		trades = append(trades, *mkTrade(i, 21500+float64(i), 500, models.Buy))
	}
	trades = append(trades, *mkTrade(8, 21509, 1, models.Sell))
	trades = append(trades, *mkTrade(9, 21495, 1, models.Sell))

	nodes := ExtractNodes(trades, 1, models.ImpulseDown, sessionStart, end, 0.5, 0.15)
	require.Len(t, nodes, 2)
	require.Equal(t, 21495.0, nodes[0].Price)
	require.Equal(t, 21509.0, nodes[1].Price)
}

func TestExtractNodesHonorsTimeWindow(t *testing.T) {
	trades := []models.Trade{
		*mkTrade(0, 21500, 100, models.Buy),
		*mkTrade(50, 21510, 1, models.Buy), // outside the window
	}
	nodes := ExtractNodes(trades, 1, models.ImpulseUp, sessionStart, sessionStart.Add(5*time.Second), 0.5, 0.15)
	require.Empty(t, nodes)
}

func TestExtractNodesEmptyInput(t *testing.T) {
	require.Empty(t, ExtractNodes(nil, 1, models.ImpulseUp, sessionStart, sessionStart, 0.5, 0.15))
}
