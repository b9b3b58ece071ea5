package engine

import (
	"time"

	"NodeFlow/internal/domain/models"
)

// ImpulseProfiler tracks one candidate impulse leg bar by bar: the
// directional extreme, the retrace extreme (widens only against the
// impulse, resets to the close of the bar that sets a new extreme),
// cumulative volume/delta, and the bar list used for scoring.
type ImpulseProfiler struct {
	direction models.ImpulseDirection
	startTime time.Time
	start     float64

	extreme        float64
	retraceExtreme float64

	// Swing extremes from before the impulse started.
	swingHigh float64
	swingLow  float64

	cumVolume int64
	cumDelta  int64
	bars      []models.Bar

	minSize  float64
	fastBars int
}

// NewImpulseProfiler seeds a profiler from the breakout bar. swingHigh
// and swingLow are the pre-impulse extremes used by the broke-swing
// score criterion.
func NewImpulseProfiler(first *models.Bar, dir models.ImpulseDirection, swingHigh, swingLow, minSize float64, fastBars int) *ImpulseProfiler {
	p := &ImpulseProfiler{
		direction: dir,
		startTime: first.Timestamp,
		start:     first.Open,
		swingHigh: swingHigh,
		swingLow:  swingLow,
		minSize:   minSize,
		fastBars:  fastBars,
	}
	if dir == models.ImpulseUp {
		p.extreme = first.High
	} else {
		p.extreme = first.Low
	}
	p.retraceExtreme = first.Close
	p.accumulate(first)
	return p
}

// AddBar folds one bar into the impulse.
func (p *ImpulseProfiler) AddBar(b *models.Bar) {
	if p.direction == models.ImpulseUp {
		if b.High > p.extreme {
			p.extreme = b.High
			p.retraceExtreme = b.Close
		} else if b.Low < p.retraceExtreme {
			p.retraceExtreme = b.Low
		}
	} else {
		if b.Low < p.extreme {
			p.extreme = b.Low
			p.retraceExtreme = b.Close
		} else if b.High > p.retraceExtreme {
			p.retraceExtreme = b.High
		}
	}
	p.accumulate(b)
}

func (p *ImpulseProfiler) accumulate(b *models.Bar) {
	p.cumVolume += b.Volume
	p.cumDelta += b.Delta()
	p.bars = append(p.bars, *b)
}

// Size is the distance from the start price to the directional extreme.
func (p *ImpulseProfiler) Size() float64 {
	if p.direction == models.ImpulseUp {
		return p.extreme - p.start
	}
	return p.start - p.extreme
}

// RetraceRatio is the retrace distance over the impulse size, clamped
// to [0, 1]. Zero while the impulse has no size.
func (p *ImpulseProfiler) RetraceRatio() float64 {
	size := p.Size()
	if size <= 0 {
		return 0
	}
	var retrace float64
	if p.direction == models.ImpulseUp {
		retrace = p.extreme - p.retraceExtreme
	} else {
		retrace = p.retraceExtreme - p.extreme
	}
	ratio := retrace / size
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Score rates the impulse 0..5: broke the pre-impulse swing, stayed
// within the fast bar count, delta sign matches direction, second-half
// volume holds up (pass under four bars), and size clears the floor.
func (p *ImpulseProfiler) Score() int {
	score := 0
	if p.brokeSwing() {
		score++
	}
	if len(p.bars) <= p.fastBars {
		score++
	}
	if p.deltaMatches() {
		score++
	}
	if p.volumeHeld() {
		score++
	}
	if p.Size() >= p.minSize {
		score++
	}
	return score
}

func (p *ImpulseProfiler) brokeSwing() bool {
	if p.direction == models.ImpulseUp {
		return p.extreme > p.swingHigh
	}
	return p.extreme < p.swingLow
}

func (p *ImpulseProfiler) deltaMatches() bool {
	if p.direction == models.ImpulseUp {
		return p.cumDelta > 0
	}
	return p.cumDelta < 0
}

// volumeHeld checks the second half of the impulse carried at least as
// much volume as the first. Short impulses pass outright.
func (p *ImpulseProfiler) volumeHeld() bool {
	if len(p.bars) < 4 {
		return true
	}
	mid := len(p.bars) / 2
	var first, second int64
	for i := range p.bars {
		if i < mid {
			first += p.bars[i].Volume
		} else {
			second += p.bars[i].Volume
		}
	}
	return second >= first
}

// Direction returns the impulse direction.
func (p *ImpulseProfiler) Direction() models.ImpulseDirection { return p.direction }

// Extreme returns the current directional extreme price.
func (p *ImpulseProfiler) Extreme() float64 { return p.extreme }

// StartTime returns the timestamp of the breakout bar.
func (p *ImpulseProfiler) StartTime() time.Time { return p.startTime }

// BarCount returns the number of accumulated bars.
func (p *ImpulseProfiler) BarCount() int { return len(p.bars) }
