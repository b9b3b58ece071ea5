package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
)

func TestMarketStateBalancedUntilWindowFull(t *testing.T) {
	c := NewMarketStateClassifier(5, 2.0, 200)
	for i := 0; i < 4; i++ {
		c.Observe(mkBar(i, 21500, 500)) // heavy delta, still filling
		require.Equal(t, models.Balanced, c.State())
	}
}

func TestMarketStateImbalancedOnDelta(t *testing.T) {
	c := NewMarketStateClassifier(3, 1000, 200)
	for i := 0; i < 3; i++ {
		c.Observe(mkBar(i, 21500, 100))
	}
	require.Equal(t, models.Imbalanced, c.State()) // window delta 300 > 200

	// sell pressure counts the same by magnitude
	c = NewMarketStateClassifier(3, 1000, 200)
	for i := 0; i < 3; i++ {
		c.Observe(mkBar(i, 21500, -100))
	}
	require.Equal(t, models.Imbalanced, c.State())
}

func TestMarketStateImbalancedOnRangeExpansion(t *testing.T) {
	c := NewMarketStateClassifier(4, 2.0, 1_000_000)
	c.Observe(mkBarOHLC(0, 21500, 21501, 21499, 21500, 10))
	c.Observe(mkBarOHLC(1, 21500, 21501, 21499, 21500, 10))
	c.Observe(mkBarOHLC(2, 21500, 21501, 21499, 21500, 10))
	// one bar stretches the window range far past the average true range
	c.Observe(mkBarOHLC(3, 21500, 21520, 21499, 21519, 10))
	require.Equal(t, models.Imbalanced, c.State())
}

func TestMarketStateBalancedQuietWindow(t *testing.T) {
	c := NewMarketStateClassifier(3, 2.0, 200)
	for i := 0; i < 3; i++ {
		delta := int64(50)
		if i%2 == 1 {
			delta = -50
		}
		c.Observe(mkBarOHLC(i, 21500, 21501, 21499, 21500, delta))
	}
	require.Equal(t, models.Balanced, c.State())
}

func TestMarketStateWindowSlides(t *testing.T) {
	c := NewMarketStateClassifier(2, 1000, 200)
	c.Observe(mkBar(0, 21500, 300))
	c.Observe(mkBar(1, 21500, 300))
	require.Equal(t, models.Imbalanced, c.State())

	// heavy bars roll out of the window
	c.Observe(mkBar(2, 21500, 0))
	c.Observe(mkBar(3, 21500, 0))
	require.Equal(t, models.Balanced, c.State())
}
