// Package sink stores completed benchmark reports in ClickHouse. Only
// the final per-run report is written; snapshots and deltas never
// leave memory.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/kloudmate/inferbench/internal/models"
)

type Writer struct {
	conn   driver.Conn
	logger *zap.Logger
	run    string
}

type Config struct {
	Addresses []string
	Database  string
	Username  string
	Password  string
	// RunLabel identifies the benchmark run; hashed into run_id.
	RunLabel string
}

func NewWriter(cfg *Config, logger *zap.Logger) (*Writer, error) {
	options := &clickhouse.Options{
		Addr: cfg.Addresses,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     time.Second * 10,
		ConnMaxLifetime: time.Hour,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return &Writer{
		conn:   conn,
		logger: logger,
		run:    cfg.RunLabel,
	}, nil
}

// Write stores one flattened report row.
func (w *Writer) Write(ctx context.Context, report *models.Report) error {
	now := time.Now()
	runID := w.runID(now)

	batch, err := w.conn.PrepareBatch(ctx, `INSERT INTO benchmark_reports (
		run_id,
		run_label,
		timestamp,
		prompt_tokens,
		generation_tokens,
		ttft_avg, ttft_min, ttft_median, ttft_max,
		e2e_avg, e2e_min, e2e_median, e2e_max,
		prefill_avg, prefill_min, prefill_median, prefill_max,
		decode_avg, decode_min, decode_median, decode_max,
		http_avg,
		decode_throughput,
		overall_throughput
	)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	row := []interface{}{
		runID,
		w.run,
		now,
		report.Tokens.Prompt,
		report.Tokens.Generation,
	}
	row = append(row, summaryColumns(report.TTFT)...)
	row = append(row, summaryColumns(report.E2E)...)
	row = append(row, summaryColumns(report.Prefill)...)
	row = append(row, summaryColumns(report.Decode)...)
	row = append(row,
		report.HTTPAvg,
		report.Throughput.Decode,
		report.Throughput.Overall,
	)

	if err := batch.Append(row...); err != nil {
		return fmt.Errorf("failed to append report to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	w.logger.Info("stored benchmark report",
		zap.Uint64("run_id", runID),
		zap.String("run_label", w.run))

	return nil
}

func (w *Writer) runID(ts time.Time) uint64 {
	h := xxhash.New()
	h.WriteString(w.run)
	h.WriteString(ts.UTC().Format(time.RFC3339Nano))
	return h.Sum64()
}

// summaryColumns flattens a summary into nullable avg/min/median/max
// columns. A nil summary maps to four NULLs.
func summaryColumns(s *models.Summary) []interface{} {
	if s == nil {
		return []interface{}{nil, nil, nil, nil}
	}
	return []interface{}{s.Avg, s.Min, s.Median, s.Max}
}

func (w *Writer) Close() error {
	return w.conn.Close()
}
