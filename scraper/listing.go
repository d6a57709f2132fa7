package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-crawl-books/models"
	"github.com/aluiziolira/go-crawl-books/parser"
)

// NoTitle is the title recorded when a listing entry has no anchor.
const NoTitle = "Sem título"

// ExtractPage fetches one listing page and returns its item records, with
// detail enrichment when detail mode is on. An unreachable page yields an
// empty slice.
func (s *Scraper) ExtractPage(ctx context.Context, listingURL, categoryName string) []*models.Book {
	doc, err := s.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		slog.Warn("listing page unavailable",
			slog.String("url", listingURL),
			slog.String("category", categoryName),
			slog.Any("error", err),
		)
		return nil
	}
	return s.extractListing(ctx, doc, listingURL, categoryName)
}

// extractListing pulls the item records out of an already fetched listing
// document. Next-link discovery operates on the same document, in the
// walker.
func (s *Scraper) extractListing(ctx context.Context, doc *goquery.Document, listingURL, categoryName string) []*models.Book {
	var books []*models.Book

	doc.Find("article.product_pod").Each(func(_ int, item *goquery.Selection) {
		books = append(books, extractListingItem(item, listingURL, categoryName))
	})

	if s.cfg.DetailMode {
		s.enrichFromDetails(ctx, books)
	}
	return books
}

// extractListingItem reads the basic fields available on a listing entry.
// A missing anchor degrades to the fallback title with no book URL; the
// item is still reported rather than dropped.
func extractListingItem(item *goquery.Selection, listingURL, categoryName string) *models.Book {
	book := &models.Book{
		Title:    NoTitle,
		Category: categoryName,
	}

	anchor := item.Find("h3 > a").First()
	if anchor.Length() > 0 {
		if title := strings.TrimSpace(anchor.AttrOr("title", "")); title != "" {
			book.Title = title
		}
		if href, ok := anchor.Attr("href"); ok {
			book.URL = absURL(listingURL, href)
		}
	}

	// Display price is kept verbatim, currency symbol included.
	book.Price = strings.TrimSpace(item.Find("div.product_price p.price_color").First().Text())

	star := item.Find("p.star-rating").First()
	if star.Length() > 0 {
		class, _ := star.Attr("class")
		rating := parser.RatingFromClass(class)
		book.Rating = &rating
	}

	return book
}

// enrichFromDetails visits each item's detail page and merges the result
// over the listing fields, detail values winning. Fetches for one page run
// under a bounded group; each goroutine owns its slice slot, so the page
// order is preserved without locking.
func (s *Scraper) enrichFromDetails(ctx context.Context, books []*models.Book) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DetailWorkers)

	for _, book := range books {
		if book.URL == "" {
			continue
		}
		g.Go(func() error {
			book.Merge(s.ExtractDetails(gctx, book.URL))
			return nil
		})
	}

	// Workers never return errors; enrichment failures degrade the record.
	_ = g.Wait()
}
