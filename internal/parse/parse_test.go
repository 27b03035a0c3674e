package parse

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterTotal(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		prefix   string
		expected float64
	}{
		{
			name:     "single series",
			lines:    []string{"vllm:prompt_tokens_total 100"},
			prefix:   "vllm:prompt_tokens_total",
			expected: 100,
		},
		{
			name: "sums across label sets",
			lines: []string{
				`vllm:prompt_tokens_total{model="a"} 100`,
				`vllm:prompt_tokens_total{model="b"} 50.5`,
			},
			prefix:   "vllm:prompt_tokens_total",
			expected: 150.5,
		},
		{
			name: "malformed value skipped",
			lines: []string{
				"vllm:prompt_tokens_total 100",
				"vllm:prompt_tokens_total not-a-number",
				"vllm:prompt_tokens_total 1",
			},
			prefix:   "vllm:prompt_tokens_total",
			expected: 101,
		},
		{
			name:     "no matching lines",
			lines:    []string{"something_else_total 5"},
			prefix:   "vllm:prompt_tokens_total",
			expected: 0,
		},
		{
			name:     "empty input",
			lines:    nil,
			prefix:   "vllm:prompt_tokens_total",
			expected: 0,
		},
		{
			name: "comment lines never match",
			lines: []string{
				"# HELP vllm:prompt_tokens_total Number of prefill tokens processed.",
				"# TYPE vllm:prompt_tokens_total counter",
				"vllm:prompt_tokens_total 7",
			},
			prefix:   "vllm:prompt_tokens_total",
			expected: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CounterTotal(tt.lines, tt.prefix))
		})
	}
}

func TestHistogramComponents(t *testing.T) {
	lines := []string{
		`vllm:time_to_first_token_seconds_bucket{le="0.1"} 2`,
		`vllm:time_to_first_token_seconds_bucket{le="0.5"} 5`,
		`vllm:time_to_first_token_seconds_bucket{le="+Inf"} 5`,
		`vllm:time_to_first_token_seconds_count 5`,
		`vllm:time_to_first_token_seconds_sum 1.0`,
	}

	snap := HistogramComponents(lines, "vllm:time_to_first_token_seconds")

	assert.Equal(t, 1.0, snap.Sum)
	assert.Equal(t, 5.0, snap.Count)
	assert.Equal(t, map[float64]float64{0.1: 2, 0.5: 5}, snap.Buckets)
}

func TestHistogramComponentsMultipleLabelSets(t *testing.T) {
	lines := []string{
		`vllm:e2e_request_latency_seconds_bucket{model="a",le="1"} 3`,
		`vllm:e2e_request_latency_seconds_bucket{model="b",le="1"} 4`,
		`vllm:e2e_request_latency_seconds_bucket{model="a",le="+Inf"} 3`,
		`vllm:e2e_request_latency_seconds_bucket{model="b",le="+Inf"} 4`,
		`vllm:e2e_request_latency_seconds_count{model="a"} 3`,
		`vllm:e2e_request_latency_seconds_count{model="b"} 4`,
		`vllm:e2e_request_latency_seconds_sum{model="a"} 1.5`,
		`vllm:e2e_request_latency_seconds_sum{model="b"} 2.5`,
	}

	snap := HistogramComponents(lines, "vllm:e2e_request_latency_seconds")

	assert.Equal(t, 4.0, snap.Sum)
	assert.Equal(t, 7.0, snap.Count)
	assert.Equal(t, map[float64]float64{1: 7}, snap.Buckets)
}

func TestHistogramComponentsMalformedLines(t *testing.T) {
	lines := []string{
		`vllm:request_decode_time_seconds_bucket{le="0.1"} garbage`,
		`vllm:request_decode_time_seconds_bucket{no_le_label="x"} 3`,
		`vllm:request_decode_time_seconds_bucket{le="not-a-bound"} 3`,
		`vllm:request_decode_time_seconds_bucket{le="0.5"} 2`,
		`vllm:request_decode_time_seconds_count nope`,
		`vllm:request_decode_time_seconds_count 2`,
		`vllm:request_decode_time_seconds_sum 0.4`,
	}

	snap := HistogramComponents(lines, "vllm:request_decode_time_seconds")

	assert.Equal(t, 0.4, snap.Sum)
	assert.Equal(t, 2.0, snap.Count)
	assert.Equal(t, map[float64]float64{0.5: 2}, snap.Buckets)
}

func TestHistogramComponentsAbsentFamily(t *testing.T) {
	snap := HistogramComponents([]string{"other_metric 1"}, "vllm:request_prefill_time_seconds")

	assert.Zero(t, snap.Sum)
	assert.Zero(t, snap.Count)
	assert.Empty(t, snap.Buckets)
}

// TestParseRealExposition runs the parser against text produced by the
// Prometheus client itself, so the line layout is exactly what a live
// endpoint serves.
func TestParseRealExposition(t *testing.T) {
	reg := prometheus.NewRegistry()

	hist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vllm:time_to_first_token_seconds",
		Help:    "Time to first token.",
		Buckets: []float64{0.1, 0.5, 1},
	})
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vllm:prompt_tokens_total",
		Help: "Prefill tokens processed.",
	})
	reg.MustRegister(hist, counter)

	hist.Observe(0.05)
	hist.Observe(0.05)
	hist.Observe(0.3)
	counter.Add(42)

	families, err := reg.Gather()
	require.NoError(t, err)

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, family := range families {
		require.NoError(t, enc.Encode(family))
	}
	lines := strings.Split(buf.String(), "\n")

	assert.Equal(t, 42.0, CounterTotal(lines, "vllm:prompt_tokens_total"))

	snap := HistogramComponents(lines, "vllm:time_to_first_token_seconds")
	assert.Equal(t, 3.0, snap.Count)
	assert.InDelta(t, 0.4, snap.Sum, 1e-9)
	assert.Equal(t, map[float64]float64{0.1: 2, 0.5: 3, 1: 3}, snap.Buckets)
}
