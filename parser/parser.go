// Package parser normalizes the raw text fields scraped from the catalog.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-crawl-books/models"
)

var availabilityCountRe = regexp.MustCompile(`(\d+)\s+available`)

var ratingTokens = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// ValidateBook ensures the crawler captured the required fields.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("book missing category for %s", b.Title)
	}
	return nil
}

// RatingFromClass decodes a star rating out of an element's class attribute.
// The rating token is the class following the star-rating marker; anything
// absent or unrecognized decodes to 0. Decoding is total and never fails,
// since many entries carry no usable rating marker.
func RatingFromClass(classAttr string) int {
	parts := strings.Fields(classAttr)
	for i, part := range parts {
		if part == "star-rating" && i+1 < len(parts) {
			return RatingToNumeric(parts[i+1])
		}
	}
	return 0
}

// RatingToNumeric converts a textual rating token to the 0..5 scale.
func RatingToNumeric(rating string) int {
	return ratingTokens[strings.TrimSpace(rating)]
}

// NormalizePrice removes the currency symbol and surrounding whitespace.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	price = strings.ReplaceAll(price, "Â£", "")
	price = strings.ReplaceAll(price, "£", "")
	return strings.TrimSpace(price)
}

// ParseMoney strips the currency symbol and parses the remainder as a float.
func ParseMoney(text string) (float64, error) {
	cleaned := NormalizePrice(text)
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", text, err)
	}
	return value, nil
}

// NormalizeAvailability trims spacing from the availability text.
func NormalizeAvailability(text string) string {
	return strings.TrimSpace(text)
}

// PriceValue derives the numeric price a downstream consumer loads as
// price_numeric. The crawler itself never writes this column.
func PriceValue(display string) (float64, error) {
	return ParseMoney(display)
}

// AvailabilityCount derives the stock count a downstream consumer loads as
// availability_numeric, e.g. "In stock (17 available)" yields 17. Text
// without a parseable count defaults to 0.
func AvailabilityCount(text string) int {
	match := availabilityCountRe.FindStringSubmatch(text)
	if len(match) != 2 {
		return 0
	}
	count, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return count
}
