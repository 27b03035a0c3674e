package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/kloudmate/inferbench/internal/bench"
	"github.com/kloudmate/inferbench/internal/push"
	"github.com/kloudmate/inferbench/internal/scrape"
	"github.com/kloudmate/inferbench/internal/sink"
)

type Config struct {
	Metrics struct {
		URL           string        `yaml:"url"`
		ScrapeTimeout time.Duration `yaml:"scrape_timeout"`
	} `yaml:"metrics"`

	Benchmark struct {
		Duration time.Duration `yaml:"duration"`
		Interval time.Duration `yaml:"interval"`
		RunLabel string        `yaml:"run_label"`
	} `yaml:"benchmark"`

	ClickHouse struct {
		Enabled   bool     `yaml:"enabled"`
		Addresses []string `yaml:"addresses"`
		Database  string   `yaml:"database"`
		Username  string   `yaml:"username"`
		Password  string   `yaml:"password"`
	} `yaml:"clickhouse"`

	RemoteWrite struct {
		Enabled  bool   `yaml:"enabled"`
		URL      string `yaml:"url"`
		Job      string `yaml:"job"`
		Instance string `yaml:"instance"`
	} `yaml:"remote_write"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	metricsURL := flag.String("url", "", "Metrics endpoint URL (overrides config)")
	duration := flag.Duration("duration", 0, "Measurement window length (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *metricsURL != "" {
		cfg.Metrics.URL = *metricsURL
	}
	if *duration != 0 {
		cfg.Benchmark.Duration = *duration
	}

	logger, err := initLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("interrupt received, closing measurement window")
		cancel()
	}()

	scraper := scrape.NewClient(&scrape.Config{
		URL:     cfg.Metrics.URL,
		Timeout: cfg.Metrics.ScrapeTimeout,
	}, logger)

	runner := bench.NewRunner(&bench.RunnerConfig{
		Duration: cfg.Benchmark.Duration,
		Interval: cfg.Benchmark.Interval,
	}, scraper, logger)

	logger.Info("starting benchmark window",
		zap.String("url", cfg.Metrics.URL),
		zap.Duration("duration", cfg.Benchmark.Duration))

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("benchmark failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode report", zap.Error(err))
	}
	fmt.Println(string(out))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if cfg.ClickHouse.Enabled {
		writer, err := sink.NewWriter(&sink.Config{
			Addresses: cfg.ClickHouse.Addresses,
			Database:  cfg.ClickHouse.Database,
			Username:  cfg.ClickHouse.Username,
			Password:  cfg.ClickHouse.Password,
			RunLabel:  cfg.Benchmark.RunLabel,
		}, logger)
		if err != nil {
			logger.Fatal("failed to create clickhouse writer", zap.Error(err))
		}
		defer writer.Close()

		if err := writer.Write(shutdownCtx, report); err != nil {
			logger.Error("failed to store report", zap.Error(err))
		}
	}

	if cfg.RemoteWrite.Enabled {
		publisher := push.NewPublisher(&push.Config{
			URL:      cfg.RemoteWrite.URL,
			Job:      cfg.RemoteWrite.Job,
			Instance: cfg.RemoteWrite.Instance,
		}, logger)

		if err := publisher.Publish(shutdownCtx, report); err != nil {
			logger.Error("failed to publish report", zap.Error(err))
		}
	}
}

func loadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	setDefaults(&cfg)

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Metrics.URL == "" {
		cfg.Metrics.URL = "http://127.0.0.1:23333/metrics"
	}

	if cfg.Metrics.ScrapeTimeout == 0 {
		cfg.Metrics.ScrapeTimeout = 10 * time.Second
	}

	if cfg.Benchmark.Duration == 0 {
		cfg.Benchmark.Duration = 60 * time.Second
	}

	if cfg.Benchmark.RunLabel == "" {
		cfg.Benchmark.RunLabel = "inferbench"
	}

	if cfg.RemoteWrite.Job == "" {
		cfg.RemoteWrite.Job = "inferbench"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zapLevel
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}
