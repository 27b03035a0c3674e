// Package parse extracts counter totals and histogram components from
// Prometheus text exposition lines. It deliberately avoids a full
// exposition parser: a strict parser aborts on the first malformed
// line, while scraping a live inference server must tolerate partial
// or torn output. Matching is by metric name prefix, the le bound is
// found by substring, and the value is the last whitespace token.
package parse

import (
	"strconv"
	"strings"

	"github.com/kloudmate/inferbench/internal/models"
)

// CounterTotal sums the values of every line starting with namePrefix.
// Prometheus exposes the same counter once per label set, so the
// family total is the sum across matching lines. Lines whose value
// does not parse are skipped. Returns 0 when nothing matches.
func CounterTotal(lines []string, namePrefix string) float64 {
	var total float64
	for _, line := range lines {
		if !strings.HasPrefix(line, namePrefix) {
			continue
		}
		v, ok := lastValue(line)
		if !ok {
			continue
		}
		total += v
	}
	return total
}

// HistogramComponents collects the _bucket, _count and _sum series of
// one histogram family. Bucket counts accumulate per finite upper
// bound across label sets; the +Inf bucket is dropped since it is
// redundant with _count. Malformed lines are skipped without aborting
// the scan. An absent family yields a zero-valued snapshot.
func HistogramComponents(lines []string, prefix string) models.HistogramSnapshot {
	snap := models.HistogramSnapshot{
		Buckets: make(map[float64]float64),
	}

	bucketPrefix := prefix + "_bucket"
	countPrefix := prefix + "_count"
	sumPrefix := prefix + "_sum"

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, bucketPrefix):
			v, ok := lastValue(line)
			if !ok {
				continue
			}
			bound, ok := leBound(line)
			if !ok {
				continue
			}
			snap.Buckets[bound] += v

		case strings.HasPrefix(line, countPrefix):
			if v, ok := lastValue(line); ok {
				snap.Count += v
			}

		case strings.HasPrefix(line, sumPrefix):
			if v, ok := lastValue(line); ok {
				snap.Sum += v
			}
		}
	}

	return snap
}

// lastValue parses the last whitespace-delimited token of a line.
func lastValue(line string) (float64, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// leBound extracts the finite upper bound from a le="<bound>" label.
// Returns false for +Inf and for anything that does not parse.
func leBound(line string) (float64, bool) {
	idx := strings.Index(line, `le="`)
	if idx == -1 {
		return 0, false
	}
	rest := line[idx+len(`le="`):]
	end := strings.IndexByte(rest, '"')
	if end == -1 {
		return 0, false
	}
	leStr := rest[:end]
	if leStr == "+Inf" {
		return 0, false
	}
	v, err := strconv.ParseFloat(leStr, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
