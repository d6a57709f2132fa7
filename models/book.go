// Package models defines data structures for the crawler.
package models

import "time"

// Category is one entry of the site's category menu.
type Category struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Book represents one catalog item. Title and Category are always set;
// everything else is filled on a best-effort basis. Pointer fields
// distinguish "absent from the page" from a legitimate zero value, which
// drives the CSV column inference in the pipeline.
type Book struct {
	Title           string   `json:"title"`
	Category        string   `json:"category"`
	Price           string   `json:"price,omitempty"`
	PriceExclTax    *float64 `json:"price_excl_tax,omitempty"`
	PriceInclTax    *float64 `json:"price_incl_tax,omitempty"`
	Tax             *float64 `json:"tax,omitempty"`
	Rating          *int     `json:"rating,omitempty"`
	UPC             string   `json:"upc,omitempty"`
	ProductType     string   `json:"product_type,omitempty"`
	Availability    string   `json:"availability,omitempty"`
	NumberOfReviews *int     `json:"number_of_reviews,omitempty"`
	Description     string   `json:"description,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	URL             string   `json:"book_url,omitempty"`
}

// Merge layers detail-page fields on top of b. Detail values win whenever
// they are present, matching the listing-then-detail precedence of the
// extraction flow.
func (b *Book) Merge(detail *Book) {
	if detail == nil {
		return
	}
	if detail.Title != "" {
		b.Title = detail.Title
	}
	if detail.Price != "" {
		b.Price = detail.Price
	}
	if detail.PriceExclTax != nil {
		b.PriceExclTax = detail.PriceExclTax
	}
	if detail.PriceInclTax != nil {
		b.PriceInclTax = detail.PriceInclTax
	}
	if detail.Tax != nil {
		b.Tax = detail.Tax
	}
	if detail.Rating != nil {
		b.Rating = detail.Rating
	}
	if detail.UPC != "" {
		b.UPC = detail.UPC
	}
	if detail.ProductType != "" {
		b.ProductType = detail.ProductType
	}
	if detail.Availability != "" {
		b.Availability = detail.Availability
	}
	if detail.NumberOfReviews != nil {
		b.NumberOfReviews = detail.NumberOfReviews
	}
	if detail.Description != "" {
		b.Description = detail.Description
	}
	if detail.ImageURL != "" {
		b.ImageURL = detail.ImageURL
	}
}

// IsEmpty reports whether no field was extracted at all. An empty partial
// record is what a failed detail fetch degrades to.
func (b *Book) IsEmpty() bool {
	return b == nil || (b.Title == "" && b.Price == "" && b.PriceExclTax == nil &&
		b.PriceInclTax == nil && b.Tax == nil && b.Rating == nil && b.UPC == "" &&
		b.ProductType == "" && b.Availability == "" && b.NumberOfReviews == nil &&
		b.Description == "" && b.ImageURL == "" && b.URL == "")
}

// CrawlResult holds bookkeeping for one full crawl.
type CrawlResult struct {
	StartTime     time.Time
	EndTime       time.Time
	CategoryCount int
	PageCount     int
	RequestCount  int
	TotalCount    int
	ErrorCount    int
	RetryCount    int
	FailedURLs    []string
	ErrorsByType  map[string]int
}
