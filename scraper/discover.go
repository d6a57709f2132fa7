package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-crawl-books/models"
)

const categoryMenuSelector = "div.side_categories > ul.nav > li > ul li"

// DiscoverCategories fetches the root page and extracts the category menu in
// markup order. An unreachable root or a missing menu container yields an
// empty slice with a logged error rather than a failure: a crawl over zero
// categories still finishes cleanly.
func (s *Scraper) DiscoverCategories(ctx context.Context) []models.Category {
	slog.Info("discovering categories", slog.String("url", s.cfg.BaseURL))

	doc, err := s.fetcher.Fetch(ctx, s.cfg.BaseURL)
	if err != nil {
		slog.Error("root page unavailable", slog.String("url", s.cfg.BaseURL), slog.Any("error", err))
		return nil
	}

	entries := doc.Find(categoryMenuSelector)
	if entries.Length() == 0 {
		slog.Error("category menu not found", slog.String("url", s.cfg.BaseURL))
		return nil
	}

	categories := make([]models.Category, 0, entries.Length())
	entries.Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a").First()
		if link.Length() == 0 {
			return
		}
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		categories = append(categories, models.Category{
			Name: strings.TrimSpace(link.Text()),
			URL:  absURL(s.cfg.BaseURL, href),
		})
	})

	slog.Info("categories discovered", slog.Int("count", len(categories)))
	return categories
}
