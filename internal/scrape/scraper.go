// Package scrape fetches Prometheus text exposition from an inference
// server's metrics endpoint.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Scrape fetches the metrics endpoint once and returns its body split
// into lines. Non-2xx responses are errors; interpreting the lines is
// left entirely to the caller.
func (c *Client) Scrape(ctx context.Context) ([]string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating scrape request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraping %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("scraping %s: unexpected status %d", c.url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading scrape body: %w", err)
	}

	lines := strings.Split(string(body), "\n")

	c.logger.Debug("scraped metrics endpoint",
		zap.String("url", c.url),
		zap.Int("lines", len(lines)),
		zap.Duration("elapsed", time.Since(start)))

	return lines, nil
}
