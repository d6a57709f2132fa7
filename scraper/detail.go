package scraper

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-crawl-books/models"
	"github.com/aluiziolira/go-crawl-books/parser"
)

// infoLabels maps the detail page's product-information table headers to
// record field names. Rows with unknown headers are ignored.
var infoLabels = map[string]string{
	"UPC":               "upc",
	"Product Type":      "product_type",
	"Price (excl. tax)": "price_excl_tax",
	"Price (incl. tax)": "price_incl_tax",
	"Tax":               "tax",
	"Availability":      "availability",
	"Number of reviews": "number_of_reviews",
}

// NoDescription is the description recorded when a detail page has none.
const NoDescription = "Sem descrição"

// ExtractDetails fetches an item's detail page and returns the fields found
// there as a partial record. A fetch failure degrades to an empty record:
// detail enrichment is best-effort relative to listing data and must never
// abort the surrounding category walk. Pages are cached by URL so an item
// listed twice is fetched once; concurrent workers hitting the same URL
// share a single in-flight fetch.
func (s *Scraper) ExtractDetails(ctx context.Context, detailURL string) *models.Book {
	if cached, ok := s.detailCache.Get(detailURL); ok {
		return cached
	}

	value, _, _ := s.detailGroup.Do(detailURL, func() (interface{}, error) {
		if cached, ok := s.detailCache.Get(detailURL); ok {
			return cached, nil
		}

		doc, err := s.fetcher.Fetch(ctx, detailURL)
		if err != nil {
			slog.Warn("detail page unavailable",
				slog.String("url", detailURL),
				slog.Any("error", err),
			)
			return &models.Book{}, nil
		}

		detail := extractDetailFields(doc, detailURL, s.cfg.BaseURL)
		s.detailCache.Add(detailURL, detail)
		return detail, nil
	})
	return value.(*models.Book)
}

func extractDetailFields(doc *goquery.Document, detailURL, baseURL string) *models.Book {
	detail := &models.Book{}

	detail.Title = strings.TrimSpace(doc.Find("div.product_main h1").First().Text())

	description := doc.Find("#product_description ~ p").First()
	if description.Length() > 0 {
		detail.Description = strings.TrimSpace(description.Text())
	} else {
		detail.Description = NoDescription
	}

	doc.Find("table.table-striped tr").Each(func(_ int, row *goquery.Selection) {
		header := strings.TrimSpace(row.Find("th").First().Text())
		value := strings.TrimSpace(row.Find("td").First().Text())
		field, ok := infoLabels[header]
		if !ok {
			return
		}
		switch field {
		case "upc":
			detail.UPC = value
		case "product_type":
			detail.ProductType = value
		case "availability":
			detail.Availability = parser.NormalizeAvailability(value)
		case "price_excl_tax", "price_incl_tax", "tax":
			amount, err := parser.ParseMoney(value)
			if err != nil {
				// A malformed money cell loses that one field only.
				slog.Warn("unparseable money field",
					slog.String("url", detailURL),
					slog.String("field", field),
					slog.String("value", value),
				)
				return
			}
			switch field {
			case "price_excl_tax":
				detail.PriceExclTax = &amount
			case "price_incl_tax":
				detail.PriceInclTax = &amount
			case "tax":
				detail.Tax = &amount
			}
		case "number_of_reviews":
			count, err := strconv.Atoi(value)
			if err != nil {
				slog.Warn("unparseable review count",
					slog.String("url", detailURL),
					slog.String("value", value),
				)
				return
			}
			detail.NumberOfReviews = &count
		}
	})

	if src, ok := doc.Find("#product_gallery img").First().Attr("src"); ok {
		detail.ImageURL = absURL(baseURL, src)
	}

	rating := 0
	star := doc.Find("p.star-rating").First()
	if star.Length() > 0 {
		class, _ := star.Attr("class")
		rating = parser.RatingFromClass(class)
	} else {
		slog.Warn("rating not found on detail page", slog.String("url", detailURL))
	}
	detail.Rating = &rating

	return detail
}
