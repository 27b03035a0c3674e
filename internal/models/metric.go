package models

// HistogramSnapshot holds the cumulative components of one Prometheus
// histogram family as read from a single scrape. Buckets maps each
// finite upper bound to its cumulative count; +Inf is never stored.
type HistogramSnapshot struct {
	Sum     float64
	Count   float64
	Buckets map[float64]float64
}

// Bucket is one histogram bucket with its cumulative count.
type Bucket struct {
	UpperBound      float64
	CumulativeCount float64
}

// HistogramDelta is the difference between two snapshots of the same
// family, clamped at zero. Buckets are sorted ascending by upper bound
// and keep cumulative semantics.
type HistogramDelta struct {
	Sum     float64
	Count   float64
	Buckets []Bucket
}

// Summary describes the observations inside one measurement window.
// Min, Median and Max are bucket upper bounds, so they are exact only
// to bucket resolution. Nil means the bound could not be determined
// from the available buckets.
type Summary struct {
	Avg    float64  `json:"avg"`
	Min    *float64 `json:"min"`
	Median *float64 `json:"median"`
	Max    *float64 `json:"max"`
}

type TokenCounts struct {
	Prompt     float64 `json:"prompt"`
	Generation float64 `json:"generation"`
}

type Throughput struct {
	Decode  *float64 `json:"decode"`
	Overall *float64 `json:"overall"`
}

// Report is the result of one benchmark window. Nil summary or ratio
// fields mean no observations in the window, never an error.
type Report struct {
	Tokens     TokenCounts `json:"tokens"`
	TTFT       *Summary    `json:"ttft"`
	E2E        *Summary    `json:"e2e"`
	Prefill    *Summary    `json:"prefill"`
	Decode     *Summary    `json:"decode"`
	HTTPAvg    *float64    `json:"http_avg"`
	Throughput Throughput  `json:"throughput"`
}

// Baseline captures the counter and histogram state at the start of a
// measurement window. It is immutable once taken; summarization reads
// it, never mutates it.
type Baseline struct {
	PromptTokens     float64
	GenerationTokens float64
	Histograms       map[string]HistogramSnapshot
	HTTPCount        float64
	HTTPSum          float64
	DecodeSum        float64
	E2ESum           float64
}
