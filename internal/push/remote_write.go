// Package push publishes a benchmark report to a Prometheus remote
// write endpoint (Prometheus, VictoriaMetrics) so run results land
// next to the metrics they were derived from.
package push

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
	"go.uber.org/zap"

	"github.com/kloudmate/inferbench/internal/models"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	// URL is the base URL of the remote write endpoint.
	URL string
	// Job and Instance become labels on every pushed series.
	Job      string
	Instance string
	Timeout  time.Duration
}

type Publisher struct {
	url        string
	httpClient *http.Client
	job        string
	instance   string
	logger     *zap.Logger
}

func NewPublisher(cfg *Config, logger *zap.Logger) *Publisher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Publisher{
		url:        cfg.URL + "/api/v1/write",
		httpClient: &http.Client{Timeout: timeout},
		job:        cfg.Job,
		instance:   cfg.Instance,
		logger:     logger,
	}
}

// Publish sends the report's scalar values as one write request. Nil
// report fields are simply not pushed.
func (p *Publisher) Publish(ctx context.Context, report *models.Report) error {
	series := p.reportToTimeSeries(report)
	if len(series) == 0 {
		return nil
	}

	req := &prompb.WriteRequest{Timeseries: series}

	data, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	p.logger.Info("published benchmark report",
		zap.Int("series", len(series)))

	return nil
}

func (p *Publisher) reportToTimeSeries(report *models.Report) []prompb.TimeSeries {
	ts := time.Now().UnixMilli()

	var series []prompb.TimeSeries
	add := func(name string, value *float64) {
		if value == nil {
			return
		}
		series = append(series, prompb.TimeSeries{
			Labels:  p.labels(name),
			Samples: []prompb.Sample{{Value: *value, Timestamp: ts}},
		})
	}
	addSummary := func(prefix string, s *models.Summary) {
		if s == nil {
			return
		}
		avg := s.Avg
		add(prefix+"_avg_seconds", &avg)
		add(prefix+"_min_seconds", s.Min)
		add(prefix+"_median_seconds", s.Median)
		add(prefix+"_max_seconds", s.Max)
	}

	prompt := report.Tokens.Prompt
	gen := report.Tokens.Generation
	add("inferbench_prompt_tokens", &prompt)
	add("inferbench_generation_tokens", &gen)

	addSummary("inferbench_ttft", report.TTFT)
	addSummary("inferbench_e2e", report.E2E)
	addSummary("inferbench_prefill", report.Prefill)
	addSummary("inferbench_decode", report.Decode)

	add("inferbench_http_avg_seconds", report.HTTPAvg)
	add("inferbench_decode_throughput_tokens_per_second", report.Throughput.Decode)
	add("inferbench_overall_throughput_tokens_per_second", report.Throughput.Overall)

	return series
}

func (p *Publisher) labels(name string) []prompb.Label {
	labels := []prompb.Label{
		{Name: "__name__", Value: name},
	}
	if p.job != "" {
		labels = append(labels, prompb.Label{Name: "job", Value: p.job})
	}
	if p.instance != "" {
		labels = append(labels, prompb.Label{Name: "instance", Value: p.instance})
	}
	return labels
}
