package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
)

func upProfiler(first *models.Bar) *ImpulseProfiler {
	return NewImpulseProfiler(first, models.ImpulseUp, math.Inf(-1), math.Inf(1), 25, 5)
}

func TestImpulseSizeTracksExtreme(t *testing.T) {
	p := upProfiler(mkBarOHLC(0, 21500, 21505, 21500, 21505, 100))
	require.Equal(t, 5.0, p.Size())

	p.AddBar(mkBarOHLC(1, 21505, 21530, 21505, 21528, 100))
	require.Equal(t, 30.0, p.Size())
	require.Equal(t, 21530.0, p.Extreme())

	// a lower bar never shrinks the extreme
	p.AddBar(mkBarOHLC(2, 21528, 21529, 21520, 21521, 100))
	require.Equal(t, 30.0, p.Size())
}

func TestImpulseRetraceRatioWidensAndResets(t *testing.T) {
	p := upProfiler(mkBarOHLC(0, 21500, 21520, 21500, 21520, 100))

	// pull back 10 of 20 points
	p.AddBar(mkBarOHLC(1, 21520, 21520, 21510, 21512, 100))
	require.InDelta(t, 0.5, p.RetraceRatio(), 1e-9)

	// a shallower bar does not narrow the retrace
	p.AddBar(mkBarOHLC(2, 21512, 21515, 21512, 21514, 100))
	require.InDelta(t, 0.5, p.RetraceRatio(), 1e-9)

	// a new extreme resets the retrace to that bar's close
	p.AddBar(mkBarOHLC(3, 21514, 21530, 21526, 21530, 100))
	require.InDelta(t, 0.0, p.RetraceRatio(), 1e-9)

	// widening resumes from the reset point
	p.AddBar(mkBarOHLC(4, 21530, 21530, 21524, 21525, 100))
	require.InDelta(t, 6.0/30.0, p.RetraceRatio(), 1e-9)
}

func TestImpulseRetraceRatioBounds(t *testing.T) {
	p := upProfiler(mkBarOHLC(0, 21500, 21510, 21500, 21510, 100))
	// retrace below the start price clamps to 1
	p.AddBar(mkBarOHLC(1, 21510, 21510, 21480, 21482, 100))
	require.Equal(t, 1.0, p.RetraceRatio())
}

func TestImpulseScoreRange(t *testing.T) {
	p := upProfiler(mkBarOHLC(0, 21500, 21530, 21500, 21530, 200))
	score := p.Score()
	require.GreaterOrEqual(t, score, 0)
	require.LessOrEqual(t, score, 5)
	// broke swing (none recorded), fast, positive delta, short impulse
	// volume pass, size 30 over the 25 floor
	require.Equal(t, 5, score)
}

func TestImpulseScoreCriteria(t *testing.T) {
	// swing high above the extreme: broke-swing point is lost
	p := NewImpulseProfiler(mkBarOHLC(0, 21500, 21530, 21500, 21530, 200), models.ImpulseUp, 21600, 21400, 25, 5)
	require.Equal(t, 4, p.Score())

	// negative cumulative delta on an up impulse loses the delta point
	p = upProfiler(mkBarOHLC(0, 21500, 21530, 21500, 21530, -200))
	require.Equal(t, 4, p.Score())

	// slow impulse loses the fast point
	p = upProfiler(mkBarOHLC(0, 21500, 21530, 21500, 21530, 200))
	for i := 1; i <= 6; i++ {
		p.AddBar(mkBarOHLC(i, 21530, 21530, 21529, 21530, 200))
	}
	require.Equal(t, 4, p.Score())
}

func TestImpulseSecondHalfVolumeCriterion(t *testing.T) {
	p := upProfiler(mkBarOHLC(0, 21500, 21530, 21500, 21530, 500))
	p.AddBar(mkBarOHLC(1, 21530, 21531, 21530, 21531, 500))
	// second half much lighter than first
	p.AddBar(mkBarOHLC(2, 21531, 21532, 21531, 21532, 10))
	p.AddBar(mkBarOHLC(3, 21532, 21533, 21532, 21533, 10))
	require.Equal(t, 4, p.Score())

	require.Equal(t, 4, p.BarCount())
	require.Equal(t, models.ImpulseUp, p.Direction())
}

func TestImpulseDownDirection(t *testing.T) {
	p := NewImpulseProfiler(mkBarOHLC(0, 21500, 21500, 21470, 21472, -300), models.ImpulseDown, math.Inf(-1), math.Inf(1), 25, 5)
	require.Equal(t, 30.0, p.Size())

	p.AddBar(mkBarOHLC(1, 21472, 21480, 21472, 21479, -100))
	require.InDelta(t, 10.0/30.0, p.RetraceRatio(), 1e-9)
}
