package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kloudmate/inferbench/internal/models"
)

func TestSummaryColumns(t *testing.T) {
	assert.Equal(t, []interface{}{nil, nil, nil, nil}, summaryColumns(nil))

	minV := 0.1
	s := &models.Summary{Avg: 0.2, Min: &minV}
	cols := summaryColumns(s)
	assert.Equal(t, 0.2, cols[0])
	assert.Equal(t, &minV, cols[1])
	assert.Nil(t, cols[2])
	assert.Nil(t, cols[3])
}

func TestRunIDDistinctPerTimestamp(t *testing.T) {
	w := &Writer{run: "nightly"}

	ts := time.Now()
	first := w.runID(ts)
	second := w.runID(ts.Add(time.Nanosecond))

	assert.NotEqual(t, first, second)
	assert.Equal(t, first, w.runID(ts))
}
