package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds crawler configuration.
type Config struct {
	BaseURL             string
	UserAgent           string
	Timeout             time.Duration
	MaxRetries          int
	RetryBackoff        time.Duration
	RetryBackoffMax     time.Duration
	MaxPagesPerCategory int
	DetailWorkers       int
	RequestsPerSecond   float64
	Burst               int
	DetailMode          bool
	DedupeMaxSize       int
	PipelineBufferSize  int
	BatchSize           int
	OutputFile          string
	OutputFormat        string // csv, json, or dual
	MetricsAddr         string
	Verbose             bool
	RespectRobotsTxt    bool
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:             "https://books.toscrape.com/",
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		Timeout:             10 * time.Second,
		MaxRetries:          2,
		RetryBackoff:        200 * time.Millisecond,
		RetryBackoffMax:     2 * time.Second,
		MaxPagesPerCategory: 100,
		DetailWorkers:       4,
		RequestsPerSecond:   8,
		Burst:               4,
		DetailMode:          true,
		DedupeMaxSize:       4096,
		PipelineBufferSize:  512,
		BatchSize:           64,
		OutputFile:          "output/books.csv",
		OutputFormat:        "csv",
		MetricsAddr:         "",
		Verbose:             false,
		RespectRobotsTxt:    false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.MaxPagesPerCategory <= 0 {
		return fmt.Errorf("max pages per category must be positive")
	}
	if c.DetailWorkers <= 0 {
		return fmt.Errorf("detail workers must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst cannot be negative")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}
