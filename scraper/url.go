package scraper

import "net/url"

// absURL resolves href against base. Unparseable input yields an empty
// string, which callers treat as a missing link.
func absURL(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}
