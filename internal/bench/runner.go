package bench

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kloudmate/inferbench/internal/models"
)

// Scraper fetches one snapshot of exposition lines.
type Scraper interface {
	Scrape(ctx context.Context) ([]string, error)
}

// Runner drives one measurement window: baseline scrape, wait, final
// scrape, report. The core stays pure; all timing and I/O lives here.
type Runner struct {
	scraper Scraper
	logger  *zap.Logger
	config  *RunnerConfig
}

type RunnerConfig struct {
	// Duration is the length of the measurement window. Zero means
	// run until the context is cancelled.
	Duration time.Duration
	// Interval, when positive, logs an interim report every tick.
	Interval time.Duration
}

func NewRunner(cfg *RunnerConfig, scraper Scraper, logger *zap.Logger) *Runner {
	return &Runner{
		scraper: scraper,
		logger:  logger,
		config:  cfg,
	}
}

// Run executes the window. Cancelling ctx ends the window early but
// still produces a report: the final scrape runs on its own deadline
// so an interrupted benchmark reports what it saw.
func (r *Runner) Run(ctx context.Context) (*models.Report, error) {
	lines, err := r.scraper.Scrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("baseline scrape: %w", err)
	}
	base := TakeBaseline(lines)

	r.logger.Info("baseline captured",
		zap.Float64("prompt_tokens", base.PromptTokens),
		zap.Float64("generation_tokens", base.GenerationTokens))

	r.wait(ctx, base)

	scrapeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lines, err = r.scraper.Scrape(scrapeCtx)
	if err != nil {
		return nil, fmt.Errorf("final scrape: %w", err)
	}

	return SummarizeSince(lines, base), nil
}

// wait blocks for the window duration, the context, and between ticks
// logs interim token counts against the baseline.
func (r *Runner) wait(ctx context.Context, base *models.Baseline) {
	var windowDone <-chan time.Time
	if r.config.Duration > 0 {
		timer := time.NewTimer(r.config.Duration)
		defer timer.Stop()
		windowDone = timer.C
	}

	var tick <-chan time.Time
	if r.config.Interval > 0 {
		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("measurement window interrupted")
			return
		case <-windowDone:
			return
		case <-tick:
			r.logInterim(ctx, base)
		}
	}
}

func (r *Runner) logInterim(ctx context.Context, base *models.Baseline) {
	lines, err := r.scraper.Scrape(ctx)
	if err != nil {
		r.logger.Warn("interim scrape failed", zap.Error(err))
		return
	}
	report := SummarizeSince(lines, base)
	r.logger.Info("window progress",
		zap.Float64("prompt_tokens", report.Tokens.Prompt),
		zap.Float64("generation_tokens", report.Tokens.Generation))
}
