// Package histogram computes windowed deltas of cumulative Prometheus
// histograms and summarizes them at bucket resolution.
package histogram

import (
	"sort"

	"github.com/kloudmate/inferbench/internal/models"
)

// Delta subtracts a baseline snapshot from a current one, clamping
// every field at zero. Clamping absorbs counter resets and scrape
// ordering skew instead of producing negative counts; resets are not
// detected or reported. A nil base returns now unchanged except that
// buckets come back sorted ascending. The union of bucket bounds from
// both sides is kept, missing bounds counting as zero.
func Delta(now models.HistogramSnapshot, base *models.HistogramSnapshot) models.HistogramDelta {
	if base == nil {
		return models.HistogramDelta{
			Sum:     now.Sum,
			Count:   now.Count,
			Buckets: sortedBuckets(now.Buckets),
		}
	}

	d := models.HistogramDelta{
		Sum:   clampZero(now.Sum - base.Sum),
		Count: clampZero(now.Count - base.Count),
	}

	bounds := make(map[float64]struct{}, len(now.Buckets))
	for le := range now.Buckets {
		bounds[le] = struct{}{}
	}
	for le := range base.Buckets {
		bounds[le] = struct{}{}
	}

	deltas := make(map[float64]float64, len(bounds))
	for le := range bounds {
		deltas[le] = clampZero(now.Buckets[le] - base.Buckets[le])
	}
	d.Buckets = sortedBuckets(deltas)

	return d
}

func sortedBuckets(m map[float64]float64) []models.Bucket {
	buckets := make([]models.Bucket, 0, len(m))
	for le, cum := range m {
		buckets = append(buckets, models.Bucket{
			UpperBound:      le,
			CumulativeCount: cum,
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].UpperBound < buckets[j].UpperBound
	})
	return buckets
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
