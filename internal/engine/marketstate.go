package engine

import (
	"math"

	"NodeFlow/internal/domain/models"
)

// MarketStateClassifier keeps a fixed-length rolling bar window and
// classifies it Balanced or Imbalanced. Until the window fills it
// reports Balanced unconditionally.
type MarketStateClassifier struct {
	window     []models.Bar
	size       int
	rangeMult  float64
	deltaLimit int64
}

// NewMarketStateClassifier creates a classifier over a window of size
// bars. rangeMult scales the average true range for the expansion
// check; deltaLimit bounds the absolute window delta.
func NewMarketStateClassifier(size int, rangeMult float64, deltaLimit int64) *MarketStateClassifier {
	return &MarketStateClassifier{
		window:     make([]models.Bar, 0, size),
		size:       size,
		rangeMult:  rangeMult,
		deltaLimit: deltaLimit,
	}
}

// Observe appends a bar, evicting the oldest once the window is full.
func (c *MarketStateClassifier) Observe(b *models.Bar) {
	if len(c.window) == c.size {
		copy(c.window, c.window[1:])
		c.window[c.size-1] = *b
	} else {
		c.window = append(c.window, *b)
	}
}

// State classifies the current window.
func (c *MarketStateClassifier) State() models.MarketState {
	if len(c.window) < c.size {
		return models.Balanced
	}

	hi, lo := math.Inf(-1), math.Inf(1)
	var delta int64
	for i := range c.window {
		if c.window[i].High > hi {
			hi = c.window[i].High
		}
		if c.window[i].Low < lo {
			lo = c.window[i].Low
		}
		delta += c.window[i].Delta()
	}

	atr := c.averageTrueRange()
	if atr > 0 && (hi-lo) > c.rangeMult*atr {
		return models.Imbalanced
	}
	if delta < 0 {
		delta = -delta
	}
	if delta > c.deltaLimit {
		return models.Imbalanced
	}
	return models.Balanced
}

// Reset drops the window, e.g. at a session rollover.
func (c *MarketStateClassifier) Reset() {
	c.window = c.window[:0]
}

func (c *MarketStateClassifier) averageTrueRange() float64 {
	if len(c.window) < 2 {
		if len(c.window) == 1 {
			return c.window[0].High - c.window[0].Low
		}
		return 0
	}
	var sum float64
	prevClose := c.window[0].Close
	for i := 1; i < len(c.window); i++ {
		b := &c.window[i]
		tr := b.High - b.Low
		if d := math.Abs(b.High - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(b.Low - prevClose); d > tr {
			tr = d
		}
		sum += tr
		prevClose = b.Close
	}
	return sum / float64(len(c.window)-1)
}
