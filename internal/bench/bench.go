// Package bench turns two scrapes of an inference server's metrics
// endpoint into a delta report for the window between them.
package bench

import (
	"github.com/kloudmate/inferbench/internal/models"
	"github.com/kloudmate/inferbench/internal/parse"
	"github.com/kloudmate/inferbench/pkg/histogram"
)

// Metric families recognized on the scraped endpoint. vLLM names are
// preferred; sglang exposes equivalently shaped ttft and e2e families
// that serve as fallbacks.
const (
	FamilyPromptTokens     = "vllm:prompt_tokens_total"
	FamilyGenerationTokens = "vllm:generation_tokens_total"
	FamilyTTFT             = "vllm:time_to_first_token_seconds"
	FamilyTPOT             = "vllm:time_per_output_token_seconds"
	FamilyE2E              = "vllm:e2e_request_latency_seconds"
	FamilyPrefill          = "vllm:request_prefill_time_seconds"
	FamilyDecode           = "vllm:request_decode_time_seconds"
	FamilyTTFTSGLang       = "sglang:time_to_first_token_seconds"
	FamilyE2ESGLang        = "sglang:e2e_request_latency_seconds"

	FamilyHTTPDuration = "http_request_duration_highr_seconds"
)

// baselineFamilies lists every histogram family captured at baseline
// time. TPOT is captured but not yet reported.
// TODO: report a tpot summary once vLLM's time_per_output_token family
// stabilizes across versions.
var baselineFamilies = []string{
	FamilyTTFT,
	FamilyTPOT,
	FamilyE2E,
	FamilyPrefill,
	FamilyDecode,
	FamilyTTFTSGLang,
	FamilyE2ESGLang,
}

// TakeBaseline captures counter totals and histogram components from
// one scrape. The result anchors every later SummarizeSince call for
// the same measurement window.
func TakeBaseline(lines []string) *models.Baseline {
	b := &models.Baseline{
		PromptTokens:     parse.CounterTotal(lines, FamilyPromptTokens),
		GenerationTokens: parse.CounterTotal(lines, FamilyGenerationTokens),
		Histograms:       make(map[string]models.HistogramSnapshot, len(baselineFamilies)),
		HTTPCount:        parse.CounterTotal(lines, FamilyHTTPDuration+"_count"),
		HTTPSum:          parse.CounterTotal(lines, FamilyHTTPDuration+"_sum"),
		DecodeSum:        parse.CounterTotal(lines, FamilyDecode+"_sum"),
		E2ESum:           parse.CounterTotal(lines, FamilyE2E+"_sum"),
	}
	for _, family := range baselineFamilies {
		b.Histograms[family] = parse.HistogramComponents(lines, family)
	}
	return b
}

// SummarizeSince computes the delta report between a baseline and the
// current scrape. A nil baseline reports raw cumulative values, which
// is what a window starting at server boot means. Metrics whose delta
// holds no observations come back nil rather than failing the report.
func SummarizeSince(lines []string, base *models.Baseline) *models.Report {
	prompt := parse.CounterTotal(lines, FamilyPromptTokens)
	gen := parse.CounterTotal(lines, FamilyGenerationTokens)
	if base != nil {
		prompt = clampZero(prompt - base.PromptTokens)
		gen = clampZero(gen - base.GenerationTokens)
	}

	hist := func(family string) *models.Summary {
		now := parse.HistogramComponents(lines, family)
		var baseSnap *models.HistogramSnapshot
		if base != nil {
			if snap, ok := base.Histograms[family]; ok {
				baseSnap = &snap
			}
		}
		return histogram.Summarize(histogram.Delta(now, baseSnap))
	}

	ttft := hist(FamilyTTFT)
	if ttft == nil {
		ttft = hist(FamilyTTFTSGLang)
	}
	e2e := hist(FamilyE2E)
	if e2e == nil {
		e2e = hist(FamilyE2ESGLang)
	}

	report := &models.Report{
		Tokens:  models.TokenCounts{Prompt: prompt, Generation: gen},
		TTFT:    ttft,
		E2E:     e2e,
		Prefill: hist(FamilyPrefill),
		Decode:  hist(FamilyDecode),
		HTTPAvg: httpDeltaAvg(lines, base),
	}

	decodeSum := parse.CounterTotal(lines, FamilyDecode+"_sum")
	e2eSum := parse.CounterTotal(lines, FamilyE2E+"_sum")
	if base != nil {
		decodeSum = clampZero(decodeSum - base.DecodeSum)
		e2eSum = clampZero(e2eSum - base.E2ESum)
	}
	report.Throughput = models.Throughput{
		Decode:  ratio(gen, decodeSum),
		Overall: ratio(gen+prompt, e2eSum),
	}

	return report
}

// httpDeltaAvg derives the average request duration in the window from
// the HTTP-layer counter pair. Nil when no requests completed.
func httpDeltaAvg(lines []string, base *models.Baseline) *float64 {
	count := parse.CounterTotal(lines, FamilyHTTPDuration+"_count")
	sum := parse.CounterTotal(lines, FamilyHTTPDuration+"_sum")
	if base != nil {
		count = clampZero(count - base.HTTPCount)
		sum = clampZero(sum - base.HTTPSum)
	}
	return ratio(sum, count)
}

// ratio returns num/denom, or nil when denom is non-positive. A zero
// or negative time sum means no completed-request time was observed in
// the window, not an error.
func ratio(num, denom float64) *float64 {
	if denom <= 0 {
		return nil
	}
	v := num / denom
	return &v
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
