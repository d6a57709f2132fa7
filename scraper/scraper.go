// Package scraper crawls the catalog: category discovery, paginated listing
// walks, per-item detail enrichment.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/aluiziolira/go-crawl-books/config"
	"github.com/aluiziolira/go-crawl-books/models"
	"github.com/aluiziolira/go-crawl-books/pipeline"
	"github.com/aluiziolira/go-crawl-books/ratelimit"
)

// Scraper ties the fetcher, extractors and pacing together for one crawl.
type Scraper struct {
	cfg         *config.Config
	fetcher     *Fetcher
	detailCache *lru.Cache[string, *models.Book]
	detailGroup singleflight.Group
	Metrics     *Metrics

	pageCount int64
	itemCount int64
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()

	var retry RetryPolicy = NoRetry
	if cfg.MaxRetries > 0 {
		retry = ExponentialRetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Base:       cfg.RetryBackoff,
			Max:        cfg.RetryBackoffMax,
		}
	}

	limiter := ratelimit.New(cfg.RequestsPerSecond, cfg.Burst)

	fetcher, err := NewFetcher(cfg, limiter, retry, metrics)
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}

	detailCache, err := lru.New[string, *models.Book](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("build detail cache: %w", err)
	}

	return &Scraper{
		cfg:         cfg,
		fetcher:     fetcher,
		detailCache: detailCache,
		Metrics:     metrics,
	}, nil
}

// WithTransport replaces the fetcher's HTTP transport. Tests use this to
// plug in a mock transport.
func (s *Scraper) WithTransport(t http.RoundTripper) {
	s.fetcher.WithTransport(t)
}

// CrawlAll runs the full crawl: discover categories once, walk each in
// discovery order, and stream every record into the pipeline. Page and item
// level failures degrade individual records; the crawl itself only fails on
// pipeline submission breaking down.
func (s *Scraper) CrawlAll(ctx context.Context, p *pipeline.Pipeline) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	categories := s.DiscoverCategories(ctx)

	for i, category := range categories {
		if ctx.Err() != nil {
			slog.Warn("crawl canceled",
				slog.Int("categories_done", i),
				slog.Int("categories_total", len(categories)),
			)
			break
		}

		slog.Info("processing category",
			slog.Int("index", i+1),
			slog.Int("total", len(categories)),
			slog.String("category", category.Name),
		)
		s.Metrics.IncCategories()

		books := s.WalkCategory(ctx, category)
		for range books {
			s.Metrics.IncItems()
		}
		atomic.AddInt64(&s.itemCount, int64(len(books)))

		if err := p.Process(books...); err != nil {
			if errors.Is(err, pipeline.ErrPipelineClosed) {
				return nil, fmt.Errorf("pipeline closed mid-crawl: %w", err)
			}
			return nil, fmt.Errorf("submit category %q: %w", category.Name, err)
		}
	}

	result := &models.CrawlResult{
		StartTime:     start,
		EndTime:       time.Now(),
		CategoryCount: len(categories),
		PageCount:     int(atomic.LoadInt64(&s.pageCount)),
		TotalCount:    int(atomic.LoadInt64(&s.itemCount)),
		RequestCount:  s.fetcher.RequestCount(),
		ErrorCount:    s.fetcher.ErrorCount(),
		RetryCount:    s.fetcher.RetryCount(),
		FailedURLs:    s.fetcher.FailedURLs(),
		ErrorsByType:  s.fetcher.ErrorsByType(),
	}

	slog.Info("crawl finished",
		slog.Int("categories", result.CategoryCount),
		slog.Int("pages", result.PageCount),
		slog.Int("books", result.TotalCount),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime)),
	)
	return result, nil
}
