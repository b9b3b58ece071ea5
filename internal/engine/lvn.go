package engine

import (
	"math"
	"sort"
	"time"

	"NodeFlow/internal/domain/models"
)

// ExtractNodes builds a volume profile from the trades accumulated
// during an impulse and returns the low-volume buckets: a bucket
// qualifies when its volume over the average bucket volume falls below
// thresholdRatio. Nodes come back sorted by price and tagged with the
// impulse id.
func ExtractNodes(trades []models.Trade, impulseID int64, dir models.ImpulseDirection, start, end time.Time, bucketSize, thresholdRatio float64) []models.LvnLevel {
	volAt := make(map[int64]int64)
	for i := range trades {
		t := &trades[i]
		if t.Timestamp.Before(start) || t.Timestamp.After(end) {
			continue
		}
		volAt[priceBucket(t.Price, bucketSize)] += t.Size
	}
	if len(volAt) == 0 {
		return nil
	}

	var total int64
	for _, v := range volAt {
		total += v
	}
	avg := float64(total) / float64(len(volAt))

	var nodes []models.LvnLevel
	for bucket, vol := range volAt {
		ratio := float64(vol) / avg
		if ratio >= thresholdRatio {
			continue
		}
		nodes = append(nodes, models.LvnLevel{
			ImpulseID: impulseID,
			Price:     bucketPrice(bucket, bucketSize),
			Volume:    vol,
			AvgVolume: avg,
			Ratio:     ratio,
			Direction: dir,
			Start:     start,
			End:       end,
		})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Price < nodes[j].Price })
	return nodes
}

func priceBucket(price, size float64) int64 {
	return int64(math.Round(price / size))
}

func bucketPrice(bucket int64, size float64) float64 {
	return float64(bucket) * size
}
