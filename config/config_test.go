package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: "base URL",
		},
		{
			name:    "base url without host",
			mutate:  func(c *Config) { c.BaseURL = "/relative/path" },
			wantErr: "host",
		},
		{
			name:    "empty user agent",
			mutate:  func(c *Config) { c.UserAgent = "" },
			wantErr: "user agent",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: "timeout",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: "max retries",
		},
		{
			name: "backoff above cap",
			mutate: func(c *Config) {
				c.RetryBackoff = 3 * time.Second
				c.RetryBackoffMax = time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name:    "zero page ceiling",
			mutate:  func(c *Config) { c.MaxPagesPerCategory = 0 },
			wantErr: "max pages",
		},
		{
			name:    "zero detail workers",
			mutate:  func(c *Config) { c.DetailWorkers = 0 },
			wantErr: "detail workers",
		},
		{
			name:    "negative rps",
			mutate:  func(c *Config) { c.RequestsPerSecond = -1 },
			wantErr: "requests per second",
		},
		{
			name:    "zero dedupe size",
			mutate:  func(c *Config) { c.DedupeMaxSize = 0 },
			wantErr: "dedupe",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.BatchSize = 0 },
			wantErr: "batch size",
		},
		{
			name:    "empty output file",
			mutate:  func(c *Config) { c.OutputFile = "" },
			wantErr: "output file",
		},
		{
			name:    "unknown output format",
			mutate:  func(c *Config) { c.OutputFormat = "xml" },
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAllowsZeroRPS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero rps should disable pacing, got %v", err)
	}
}
