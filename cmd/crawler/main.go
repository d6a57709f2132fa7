package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-crawl-books/config"
	"github.com/aluiziolira/go-crawl-books/models"
	"github.com/aluiziolira/go-crawl-books/pipeline"
	"github.com/aluiziolira/go-crawl-books/scraper"
)

func main() {
	defaultCfg := config.DefaultConfig()

	pagesDefault := defaultCfg.MaxPagesPerCategory
	if value, ok, err := config.EnvInt("CRAWLER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid CRAWLER_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	workersDefault := defaultCfg.DetailWorkers
	if value, ok, err := config.EnvInt("CRAWLER_PARALLEL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid CRAWLER_PARALLEL: %v\n", err)
		os.Exit(1)
	} else if ok {
		workersDefault = value
	}
	simpleDefault := false
	if value, ok, err := config.EnvBool("CRAWLER_SIMPLE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid CRAWLER_SIMPLE: %v\n", err)
		os.Exit(1)
	} else if ok {
		simpleDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("CRAWLER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("CRAWLER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Site root URL to crawl")
	simple := flag.Bool("simple", simpleDefault, "Extract listing fields only, skipping detail pages (faster)")
	maxPages := flag.Int("pages", pagesDefault, "Maximum listing pages to walk per category")
	detailWorkers := flag.Int("detail-workers", workersDefault, "Concurrent detail fetches per listing page")
	rps := flag.Float64("rps", defaultCfg.RequestsPerSecond, "Politeness budget: requests per second per host (0 disables)")
	burst := flag.Int("burst", defaultCfg.Burst, "Politeness budget: token bucket burst")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum retry attempts per URL")
	retryBackoffMs := flag.Int("retry-backoff", 200, "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", 2000, "Maximum retry backoff (milliseconds)")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.DetailMode = !*simple
	cfg.MaxPagesPerCategory = *maxPages
	cfg.DetailWorkers = *detailWorkers
	cfg.RequestsPerSecond = *rps
	cfg.Burst = *burst
	cfg.MaxRetries = *maxRetries
	cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
	cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
	cfg.RespectRobotsTxt = *respectRobots
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.DetailMode {
		slog.Info("detailed mode: visiting every book's detail page (slower)")
	} else {
		slog.Info("simple mode: listing fields only")
	}
	slog.Info("starting crawl",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("max_pages_per_category", cfg.MaxPagesPerCategory),
		slog.Int("detail_workers", cfg.DetailWorkers),
		slog.Float64("rps", cfg.RequestsPerSecond),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(1)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, err := s.CrawlAll(ctx, p)
	if err != nil {
		slog.Error("crawl failed", slog.Any("error", err))
		// Flush whatever was collected before the failure.
		if cerr := p.Close(); cerr != nil {
			slog.Error("pipeline shutdown failed", slog.Any("error", cerr))
		}
		if cerr := writer.Close(); cerr != nil {
			slog.Error("writing output failed", slog.Any("error", cerr))
		}
		os.Exit(1)
	}

	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The output artifact is the whole point of the crawl: failing to
	// finish writing it is the one unrecoverable error.
	if err := writer.Close(); err != nil {
		slog.Error("writing output failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	metrics := p.GetMetrics()
	duration := time.Since(startTime)
	printSummary(result, duration, cfg.OutputFile, metrics)
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.CrawlResult, duration time.Duration, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")

	totalItems := int64(0)
	if processed, ok := metrics["processed_books"].(int64); ok {
		totalItems = processed
	}
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(totalItems) / duration.Seconds()
	}
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}

	fmt.Printf("  Categories:    %d\n", result.CategoryCount)
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Total items:   %d\n", totalItems)
	fmt.Printf("  Success rate:  %.2f%%\n", successRate)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
