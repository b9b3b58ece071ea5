package engine

import (
	"math"
	"sort"

	"NodeFlow/internal/domain/models"
)

// Width of a volume-profile bucket for daily level computation.
const profileBucketSize = 1.0

// Fraction of session volume the value area must contain.
const valueAreaFraction = 0.70

// ComputeDailyLevels derives the session reference levels from two bar
// sequences: the prior regular session and the overnight session.
// Overnight high/low fall back to the prior-day values when the
// overnight sequence is empty. Returns ErrEmptySession when the regular
// session is empty.
func ComputeDailyLevels(date string, session, overnight []models.Bar) (*models.DailyLevels, error) {
	if len(session) == 0 {
		return nil, ErrEmptySession
	}

	pdh, pdl := highLow(session)

	onh, onl := pdh, pdl
	if len(overnight) > 0 {
		onh, onl = highLow(overnight)
	}

	poc, vah, val := volumeProfile(session)

	return &models.DailyLevels{
		Date:           date,
		PriorDayHigh:   pdh,
		PriorDayLow:    pdl,
		OvernightHigh:  onh,
		OvernightLow:   onl,
		PointOfControl: poc,
		ValueAreaHigh:  vah,
		ValueAreaLow:   val,
	}, nil
}

func highLow(bars []models.Bar) (hi, lo float64) {
	hi, lo = math.Inf(-1), math.Inf(1)
	for i := range bars {
		if bars[i].High > hi {
			hi = bars[i].High
		}
		if bars[i].Low < lo {
			lo = bars[i].Low
		}
	}
	return hi, lo
}

// volumeProfile buckets each bar's volume by its close price, locates
// the point of control, and expands the value area one bucket at a time
// toward whichever neighbor carries more volume until 70% of the total
// is covered. Equal neighbors expand downward.
func volumeProfile(bars []models.Bar) (poc, vah, val float64) {
	volAt := make(map[int64]int64)
	for i := range bars {
		b := int64(math.Round(bars[i].Close / profileBucketSize))
		volAt[b] += bars[i].Volume
	}

	buckets := make([]int64, 0, len(volAt))
	for b := range volAt {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	pocIdx := 0
	for i, b := range buckets {
		if volAt[b] > volAt[buckets[pocIdx]] {
			pocIdx = i
		}
	}

	var total int64
	for _, v := range volAt {
		total += v
	}
	target := int64(float64(total) * valueAreaFraction)

	lo, hi := pocIdx, pocIdx
	acc := volAt[buckets[pocIdx]]
	for acc < target {
		canLower := lo > 0
		canHigher := hi < len(buckets)-1
		if !canLower && !canHigher {
			break
		}

		var lowerVol, upperVol int64
		if canLower {
			lowerVol = volAt[buckets[lo-1]]
		}
		if canHigher {
			upperVol = volAt[buckets[hi+1]]
		}

		if canLower && lowerVol >= upperVol {
			lo--
			acc += lowerVol
		} else if canHigher {
			hi++
			acc += upperVol
		} else {
			lo--
			acc += lowerVol
		}
	}

	poc = float64(buckets[pocIdx]) * profileBucketSize
	vah = float64(buckets[hi]) * profileBucketSize
	val = float64(buckets[lo]) * profileBucketSize
	return poc, vah, val
}
