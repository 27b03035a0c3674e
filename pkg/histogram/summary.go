package histogram

import (
	"github.com/kloudmate/inferbench/internal/models"
)

// Summarize derives avg/min/median/max from a windowed delta. Returns
// nil when the delta holds no observations (count <= 0).
//
// Min, median and max are bucket upper bounds: Prometheus histograms
// only expose cumulative crossing points, so each statistic is the
// tightest exposed bound. The scan stops at the first bucket covering
// the full count. If no bucket reaches it (count and buckets torn
// between two instants of the same scrape), Max stays nil.
func Summarize(d models.HistogramDelta) *models.Summary {
	if d.Count <= 0 {
		return nil
	}

	s := &models.Summary{
		Avg: d.Sum / d.Count,
	}

	for _, b := range d.Buckets {
		le := b.UpperBound
		if s.Min == nil && b.CumulativeCount > 0 {
			s.Min = &le
		}
		if s.Median == nil && b.CumulativeCount >= 0.5*d.Count {
			s.Median = &le
		}
		if b.CumulativeCount >= d.Count {
			s.Max = &le
			break
		}
	}

	return s
}
