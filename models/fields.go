package models

import "strconv"

// Fields returns the record as column-name/value pairs, including only the
// fields that were actually extracted. The pipeline's CSV writer infers the
// output schema from the union of these maps across all records.
func (b *Book) Fields() map[string]string {
	fields := map[string]string{
		"title":    b.Title,
		"category": b.Category,
	}
	if b.Price != "" {
		fields["price"] = b.Price
	}
	if b.PriceExclTax != nil {
		fields["price_excl_tax"] = formatFloat(*b.PriceExclTax)
	}
	if b.PriceInclTax != nil {
		fields["price_incl_tax"] = formatFloat(*b.PriceInclTax)
	}
	if b.Tax != nil {
		fields["tax"] = formatFloat(*b.Tax)
	}
	if b.Rating != nil {
		fields["rating"] = strconv.Itoa(*b.Rating)
	}
	if b.UPC != "" {
		fields["upc"] = b.UPC
	}
	if b.ProductType != "" {
		fields["product_type"] = b.ProductType
	}
	if b.Availability != "" {
		fields["availability"] = b.Availability
	}
	if b.NumberOfReviews != nil {
		fields["number_of_reviews"] = strconv.Itoa(*b.NumberOfReviews)
	}
	if b.Description != "" {
		fields["description"] = b.Description
	}
	if b.ImageURL != "" {
		fields["image_url"] = b.ImageURL
	}
	if b.URL != "" {
		fields["book_url"] = b.URL
	}
	return fields
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
