package scraper

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/aluiziolira/go-crawl-books/models"
)

// WalkCategory follows a category's listing pages until no next link
// remains, accumulating every item found. The page fetched for item
// extraction is the same document the next link is read from, so each
// listing page costs exactly one request. An empty or unreachable page is
// treated the same as "no more pages"; the safety ceiling guards against a
// next-link chain that never ends.
func (s *Scraper) WalkCategory(ctx context.Context, category models.Category) []*models.Book {
	slog.Info("walking category",
		slog.String("category", category.Name),
		slog.String("url", category.URL),
	)

	var books []*models.Book
	pageURL := category.URL

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			slog.Warn("category walk canceled",
				slog.String("category", category.Name),
				slog.Int("page", page),
			)
			break
		}
		if page > s.cfg.MaxPagesPerCategory {
			slog.Warn("page ceiling reached",
				slog.String("category", category.Name),
				slog.Int("page", page),
				slog.Int("limit", s.cfg.MaxPagesPerCategory),
			)
			break
		}

		slog.Debug("processing listing page",
			slog.String("category", category.Name),
			slog.Int("page", page),
			slog.String("url", pageURL),
		)

		doc, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			slog.Warn("listing page unavailable",
				slog.String("category", category.Name),
				slog.Int("page", page),
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			break
		}

		atomic.AddInt64(&s.pageCount, 1)
		s.Metrics.IncPages()

		pageBooks := s.extractListing(ctx, doc, pageURL, category.Name)
		if len(pageBooks) == 0 {
			slog.Warn("no books found on listing page",
				slog.String("category", category.Name),
				slog.Int("page", page),
				slog.String("url", pageURL),
			)
			break
		}
		books = append(books, pageBooks...)

		next := doc.Find("li.next > a").First()
		href, ok := next.Attr("href")
		if next.Length() == 0 || !ok {
			slog.Info("last page reached",
				slog.String("category", category.Name),
				slog.Int("pages", page),
			)
			break
		}
		pageURL = absURL(pageURL, href)
	}

	slog.Info("category walked",
		slog.String("category", category.Name),
		slog.Int("books", len(books)),
	)
	return books
}
