package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-crawl-books/config"
	"github.com/aluiziolira/go-crawl-books/ratelimit"
)

// Fetcher issues single GET requests through a shared colly collector and
// returns the response as a queryable document. One collector (and therefore
// one transport and client identity) is reused across the whole crawl; each
// Fetch clones it so response callbacks stay scoped to one request.
type Fetcher struct {
	cfg     *config.Config
	base    *colly.Collector
	limiter *ratelimit.Limiter
	retry   RetryPolicy
	metrics *Metrics

	requestCount int64
	errorCount   int64
	retryCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, limiter *ratelimit.Limiter, retry RetryPolicy, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if retry == nil {
		retry = NoRetry
	}

	return &Fetcher{
		cfg:          cfg,
		base:         collector,
		limiter:      limiter,
		retry:        retry,
		metrics:      metrics,
		errorsByType: make(map[string]int),
	}, nil
}

// WithTransport replaces the HTTP transport. Tests use this to plug in a
// mock transport.
func (f *Fetcher) WithTransport(t http.RoundTripper) {
	f.base.WithTransport(t)
}

// Fetch retrieves rawURL and parses the body into a document. The URL must
// be absolute. Failures come back as a *FetchError carrying the URL and
// cause; retries follow the injected policy.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("url must be absolute")}
	}

	attempt := 0
	for {
		attempt++

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, rawURL); err != nil {
				return nil, &FetchError{URL: rawURL, Err: err}
			}
		}

		body, status, fetchErr := f.do(ctx, rawURL)
		if fetchErr == nil {
			doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(body))
			if parseErr != nil {
				// net/html is lenient; this only fires on reader failure.
				fetchErr = fmt.Errorf("parse document: %w", parseErr)
			} else {
				return doc, nil
			}
		}

		classified := classifyError(fetchErr, status)
		fe := &FetchError{URL: rawURL, StatusCode: status, Err: classified}
		f.recordError(fe)

		if !f.retry.ShouldRetry(fe, attempt) {
			f.recordFailedURL(rawURL)
			return nil, fe
		}

		atomic.AddInt64(&f.retryCount, 1)
		f.metrics.IncRetries()
		slog.Debug("retrying fetch",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt),
			slog.Any("error", classified),
		)
		if err := sleepContext(ctx, f.retry.Backoff(attempt)); err != nil {
			return nil, fe
		}
	}
}

// do runs one HTTP GET through a collector clone and captures the outcome.
func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, int, error) {
	collector := f.base.Clone()

	var (
		body     []byte
		status   int
		fetchErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&f.requestCount, 1)
		f.metrics.IncRequest("started")
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case err := <-done:
		if fetchErr != nil {
			return nil, status, fetchErr
		}
		if err != nil {
			return nil, status, err
		}
		return body, status, nil
	}
}

func (f *Fetcher) recordError(fe *FetchError) {
	atomic.AddInt64(&f.errorCount, 1)
	category := errorTypeLabel(fe.Err)
	f.metrics.IncError(category)

	f.mu.Lock()
	f.errorsByType[category]++
	f.mu.Unlock()

	slog.Error("request error",
		slog.String("url", fe.URL),
		slog.Int("status", fe.StatusCode),
		slog.String("category", category),
		slog.Any("error", fe.Err),
	)
}

func (f *Fetcher) recordFailedURL(rawURL string) {
	f.mu.Lock()
	f.failedURLs = append(f.failedURLs, rawURL)
	f.mu.Unlock()
}

// RequestCount returns the number of HTTP requests issued so far.
func (f *Fetcher) RequestCount() int {
	return int(atomic.LoadInt64(&f.requestCount))
}

// ErrorCount returns the number of failed attempts so far.
func (f *Fetcher) ErrorCount() int {
	return int(atomic.LoadInt64(&f.errorCount))
}

// RetryCount returns the number of retries scheduled so far.
func (f *Fetcher) RetryCount() int {
	return int(atomic.LoadInt64(&f.retryCount))
}

// FailedURLs returns a copy of the URLs that exhausted their retry budget.
func (f *Fetcher) FailedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.failedURLs))
	copy(out, f.failedURLs)
	return out
}

// ErrorsByType returns a copy of the error counts keyed by classification.
func (f *Fetcher) ErrorsByType() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.errorsByType))
	for k, v := range f.errorsByType {
		out[k] = v
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
