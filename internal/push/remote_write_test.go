package push

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kloudmate/inferbench/internal/models"
)

func TestPublish(t *testing.T) {
	var received prompb.WriteRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/write", r.URL.Path)
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))

		compressed, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		data, err := snappy.Decode(nil, compressed)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(data, &received))

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	publisher := NewPublisher(&Config{
		URL: server.URL,
		Job: "bench",
	}, zaptest.NewLogger(t))

	avg := 0.2
	httpAvg := 0.5
	report := &models.Report{
		Tokens:  models.TokenCounts{Prompt: 100, Generation: 300},
		TTFT:    &models.Summary{Avg: avg},
		HTTPAvg: &httpAvg,
	}

	require.NoError(t, publisher.Publish(context.Background(), report))

	names := make(map[string]float64)
	for _, series := range received.Timeseries {
		var name string
		job := ""
		for _, label := range series.Labels {
			switch label.Name {
			case "__name__":
				name = label.Value
			case "job":
				job = label.Value
			}
		}
		assert.Equal(t, "bench", job)
		require.Len(t, series.Samples, 1)
		names[name] = series.Samples[0].Value
	}

	assert.Equal(t, 100.0, names["inferbench_prompt_tokens"])
	assert.Equal(t, 300.0, names["inferbench_generation_tokens"])
	assert.Equal(t, 0.2, names["inferbench_ttft_avg_seconds"])
	assert.Equal(t, 0.5, names["inferbench_http_avg_seconds"])

	// Nil report fields must not be pushed.
	_, pushed := names["inferbench_e2e_avg_seconds"]
	assert.False(t, pushed)
	_, pushed = names["inferbench_ttft_min_seconds"]
	assert.False(t, pushed)
}

func TestPublishServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer server.Close()

	publisher := NewPublisher(&Config{URL: server.URL}, zaptest.NewLogger(t))

	err := publisher.Publish(context.Background(), &models.Report{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}
