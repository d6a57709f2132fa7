package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-crawl-books/config"
	"github.com/aluiziolira/go-crawl-books/models"
	"github.com/aluiziolira/go-crawl-books/pipeline"
)

const testBase = "http://books.example.test/"

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = testBase
	cfg.RequestsPerSecond = 0
	cfg.MaxRetries = 0
	cfg.DetailWorkers = 2
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config) (*Scraper, *httpmock.MockTransport) {
	t.Helper()

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	transport := httpmock.NewMockTransport()
	s.WithTransport(transport)
	return s, transport
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func buildRootPage(categories [][2]string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"side_categories\"><ul class=\"nav\"><li>")
	b.WriteString("<a href=\"catalogue/category/books_1/index.html\">Books</a><ul>")
	for _, cat := range categories {
		fmt.Fprintf(&b, "<li><a href=%q> %s </a></li>", cat[1], cat[0])
	}
	b.WriteString("</ul></li></ul></div></body></html>")
	return b.String()
}

type listingOptions struct {
	start    int
	count    int
	nextHref string
	noAnchor bool
}

func buildListingPage(opts listingOptions) string {
	var b strings.Builder
	b.WriteString("<html><body><section>")
	for i := 0; i < opts.count; i++ {
		id := opts.start + i
		b.WriteString("<article class=\"product_pod\">")
		if !opts.noAnchor {
			fmt.Fprintf(&b, "<h3><a href=\"book-%d.html\" title=\"Book %d\">Book %d</a></h3>", id, id, id)
		} else {
			b.WriteString("<h3></h3>")
		}
		fmt.Fprintf(&b, "<div class=\"product_price\"><p class=\"price_color\">£%d.00</p></div>", id)
		b.WriteString("<p class=\"star-rating Two\"></p>")
		b.WriteString("</article>")
	}
	if opts.nextHref != "" {
		fmt.Fprintf(&b, "<ul class=\"pager\"><li class=\"next\"><a href=%q>next</a></li></ul>", opts.nextHref)
	}
	b.WriteString("</section></body></html>")
	return b.String()
}

type detailOptions struct {
	title         string
	ratingToken   string // empty omits the star-rating node
	description   string // empty omits the description paragraph
	taxCell       string
	omitInfoTable bool
}

func buildDetailPage(opts detailOptions) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"product_main\">")
	fmt.Fprintf(&b, "<h1>%s</h1>", opts.title)
	if opts.ratingToken != "" {
		fmt.Fprintf(&b, "<p class=\"star-rating %s\"></p>", opts.ratingToken)
	}
	b.WriteString("</div>")
	b.WriteString("<div id=\"product_gallery\"><img src=\"../../media/cache/cover.jpg\"/></div>")
	b.WriteString("<div id=\"product_description\"><h2>Product Description</h2></div>")
	if opts.description != "" {
		fmt.Fprintf(&b, "<p>%s</p>", opts.description)
	}
	if !opts.omitInfoTable {
		tax := opts.taxCell
		if tax == "" {
			tax = "£0.00"
		}
		b.WriteString("<table class=\"table-striped\">")
		b.WriteString("<tr><th>UPC</th><td>a897fe39b1053632</td></tr>")
		b.WriteString("<tr><th>Product Type</th><td>Books</td></tr>")
		b.WriteString("<tr><th>Price (excl. tax)</th><td>£51.77</td></tr>")
		b.WriteString("<tr><th>Price (incl. tax)</th><td>£51.77</td></tr>")
		fmt.Fprintf(&b, "<tr><th>Tax</th><td>%s</td></tr>", tax)
		b.WriteString("<tr><th>Availability</th><td>In stock (22 available)</td></tr>")
		b.WriteString("<tr><th>Number of reviews</th><td>0</td></tr>")
		b.WriteString("</table>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func registerRoot(transport *httpmock.MockTransport, body string) {
	responder := htmlResponder(body)
	transport.RegisterResponder("GET", testBase, responder)
	transport.RegisterResponder("GET", strings.TrimSuffix(testBase, "/"), responder)
}

func TestDiscoverCategories(t *testing.T) {
	s, transport := newTestScraper(t, testConfig())
	registerRoot(transport, buildRootPage([][2]string{
		{"Travel", "cat/travel/index.html"},
		{"Fiction", "cat/fiction/index.html"},
	}))

	categories := s.DiscoverCategories(context.Background())

	if len(categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(categories))
	}
	if categories[0].Name != "Travel" || categories[1].Name != "Fiction" {
		t.Fatalf("category order = %v, want markup order", categories)
	}
	want := testBase + "cat/travel/index.html"
	if categories[0].URL != want {
		t.Fatalf("category url = %q, want %q", categories[0].URL, want)
	}
}

func TestDiscoverCategoriesRootUnreachable(t *testing.T) {
	s, _ := newTestScraper(t, testConfig())

	categories := s.DiscoverCategories(context.Background())
	if len(categories) != 0 {
		t.Fatalf("categories = %d, want 0 for unreachable root", len(categories))
	}
}

func TestDiscoverCategoriesMenuMissing(t *testing.T) {
	s, transport := newTestScraper(t, testConfig())
	registerRoot(transport, "<html><body><p>nothing here</p></body></html>")

	categories := s.DiscoverCategories(context.Background())
	if len(categories) != 0 {
		t.Fatalf("categories = %d, want 0 when menu container is absent", len(categories))
	}
}

func TestExtractPageItemCount(t *testing.T) {
	cfg := testConfig()
	cfg.DetailMode = false
	s, transport := newTestScraper(t, cfg)

	listingURL := testBase + "cat/fiction/index.html"
	transport.RegisterResponder("GET", listingURL, htmlResponder(buildListingPage(listingOptions{start: 1, count: 20})))

	books := s.ExtractPage(context.Background(), listingURL, "Fiction")

	if len(books) != 20 {
		t.Fatalf("books = %d, want 20", len(books))
	}
	for i, book := range books {
		if book.Title != fmt.Sprintf("Book %d", i+1) {
			t.Fatalf("book %d title = %q", i, book.Title)
		}
		if book.Category != "Fiction" {
			t.Fatalf("book %d category = %q, want Fiction", i, book.Category)
		}
		if !strings.HasPrefix(book.Price, "£") {
			t.Fatalf("book %d price = %q, want verbatim display price", i, book.Price)
		}
		if book.Rating == nil || *book.Rating != 2 {
			t.Fatalf("book %d rating = %v, want 2", i, book.Rating)
		}
		if book.URL != fmt.Sprintf("%scat/fiction/book-%d.html", testBase, i+1) {
			t.Fatalf("book %d url = %q", i, book.URL)
		}
	}
}

func TestExtractPageMissingAnchor(t *testing.T) {
	cfg := testConfig()
	cfg.DetailMode = false
	s, transport := newTestScraper(t, cfg)

	listingURL := testBase + "cat/fiction/index.html"
	transport.RegisterResponder("GET", listingURL, htmlResponder(buildListingPage(listingOptions{start: 1, count: 3, noAnchor: true})))

	books := s.ExtractPage(context.Background(), listingURL, "Fiction")

	if len(books) != 3 {
		t.Fatalf("books = %d, want 3 (items without anchors are kept)", len(books))
	}
	for _, book := range books {
		if book.Title != NoTitle {
			t.Fatalf("title = %q, want fallback %q", book.Title, NoTitle)
		}
		if book.URL != "" {
			t.Fatalf("url = %q, want empty for missing anchor", book.URL)
		}
	}
}

func TestExtractPageUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.DetailMode = false
	s, _ := newTestScraper(t, cfg)

	books := s.ExtractPage(context.Background(), testBase+"cat/fiction/index.html", "Fiction")
	if len(books) != 0 {
		t.Fatalf("books = %d, want 0 for unreachable page", len(books))
	}
}

func TestWalkCategoryTerminates(t *testing.T) {
	cfg := testConfig()
	cfg.DetailMode = false
	s, transport := newTestScraper(t, cfg)

	base := testBase + "cat/fiction/"
	transport.RegisterResponder("GET", base+"index.html",
		htmlResponder(buildListingPage(listingOptions{start: 1, count: 20, nextHref: "page-2.html"})))
	transport.RegisterResponder("GET", base+"page-2.html",
		htmlResponder(buildListingPage(listingOptions{start: 21, count: 20, nextHref: "page-3.html"})))
	transport.RegisterResponder("GET", base+"page-3.html",
		htmlResponder(buildListingPage(listingOptions{start: 41, count: 5})))

	books := s.WalkCategory(context.Background(), models.Category{Name: "Fiction", URL: base + "index.html"})

	if len(books) != 45 {
		t.Fatalf("books = %d, want 45 across three pages", len(books))
	}
	// One fetch per listing page: next-link discovery reuses the same document.
	if got := s.fetcher.RequestCount(); got != 3 {
		t.Fatalf("requests = %d, want 3", got)
	}
}

func TestWalkCategoryPageCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.DetailMode = false
	cfg.MaxPagesPerCategory = 2
	s, transport := newTestScraper(t, cfg)

	base := testBase + "cat/fiction/"
	// Every page points at the next one; only the ceiling stops the walk.
	for page := 1; page <= 5; page++ {
		url := fmt.Sprintf("%spage-%d.html", base, page)
		next := fmt.Sprintf("page-%d.html", page+1)
		transport.RegisterResponder("GET", url,
			htmlResponder(buildListingPage(listingOptions{start: page * 100, count: 20, nextHref: next})))
	}

	books := s.WalkCategory(context.Background(), models.Category{Name: "Fiction", URL: base + "page-1.html"})

	if len(books) != 40 {
		t.Fatalf("books = %d, want 40 (two pages before the ceiling)", len(books))
	}
}

func TestWalkCategoryEmptyPageTerminates(t *testing.T) {
	cfg := testConfig()
	cfg.DetailMode = false
	s, transport := newTestScraper(t, cfg)

	base := testBase + "cat/fiction/"
	transport.RegisterResponder("GET", base+"index.html",
		htmlResponder("<html><body><section></section></body></html>"))

	books := s.WalkCategory(context.Background(), models.Category{Name: "Fiction", URL: base + "index.html"})
	if len(books) != 0 {
		t.Fatalf("books = %d, want 0 for empty page", len(books))
	}
}

func TestWalkCategoryUnreachableFirstPage(t *testing.T) {
	cfg := testConfig()
	cfg.DetailMode = false
	s, _ := newTestScraper(t, cfg)

	books := s.WalkCategory(context.Background(), models.Category{Name: "Fiction", URL: testBase + "cat/fiction/index.html"})
	if len(books) != 0 {
		t.Fatalf("books = %d, want 0 for unreachable category", len(books))
	}
}

type collectingWriter struct {
	mu    sync.Mutex
	books []*models.Book
}

func (cw *collectingWriter) Write(books []*models.Book) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.books = append(cw.books, books...)
	return nil
}

func (cw *collectingWriter) Close() error { return nil }

func (cw *collectingWriter) Validate() error { return nil }

func (cw *collectingWriter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return len(cw.books)
}

func (cw *collectingWriter) All() []*models.Book {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]*models.Book, len(cw.books))
	copy(out, cw.books)
	return out
}

func TestCrawlAllEndToEnd(t *testing.T) {
	cfg := testConfig()
	s, transport := newTestScraper(t, cfg)

	registerRoot(transport, buildRootPage([][2]string{
		{"Fiction", "cat/fiction/index.html"},
	}))
	listingURL := testBase + "cat/fiction/index.html"
	transport.RegisterResponder("GET", listingURL,
		htmlResponder(buildListingPage(listingOptions{start: 1, count: 20})))
	for i := 1; i <= 20; i++ {
		transport.RegisterResponder("GET", fmt.Sprintf("%scat/fiction/book-%d.html", testBase, i),
			htmlResponder(buildDetailPage(detailOptions{
				title:       fmt.Sprintf("Book %d", i),
				ratingToken: "Three",
				description: "A fine book",
			})))
	}

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(1)

	result, err := s.CrawlAll(context.Background(), p)
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if got := writer.Count(); got != 20 {
		t.Fatalf("records = %d, want 20", got)
	}
	if result.CategoryCount != 1 || result.PageCount != 1 || result.TotalCount != 20 {
		t.Fatalf("result = %+v, want 1 category, 1 page, 20 items", result)
	}

	for _, book := range writer.All() {
		if book.Category != "Fiction" {
			t.Fatalf("category = %q, want Fiction", book.Category)
		}
		if book.Rating == nil || *book.Rating != 3 {
			t.Fatalf("rating = %v, want detail value 3", book.Rating)
		}
		if book.UPC == "" {
			t.Fatalf("upc missing after detail enrichment: %+v", book)
		}
		if book.Description != "A fine book" {
			t.Fatalf("description = %q", book.Description)
		}
	}
}

func TestCrawlAllInterruptKeepsPartialOutput(t *testing.T) {
	cfg := testConfig()
	cfg.DetailMode = false
	s, transport := newTestScraper(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerRoot(transport, buildRootPage([][2]string{
		{"Fiction", "cat/fiction/index.html"},
	}))
	base := testBase + "cat/fiction/"
	transport.RegisterResponder("GET", base+"index.html",
		htmlResponder(buildListingPage(listingOptions{start: 1, count: 20, nextHref: "page-2.html"})))
	// The shutdown signal lands while page 2 is in flight.
	transport.RegisterResponder("GET", base+"page-2.html", func(req *http.Request) (*http.Response, error) {
		cancel()
		return httpmock.NewStringResponse(500, "shutting down"), nil
	})

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(1)

	result, err := s.CrawlAll(ctx, p)
	if err != nil {
		t.Fatalf("interrupted crawl should finish with partial results, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if got := writer.Count(); got != 20 {
		t.Fatalf("records = %d, want the first page preserved", got)
	}
	if result.TotalCount != 20 {
		t.Fatalf("result total = %d, want 20", result.TotalCount)
	}
}

func TestCrawlAllRootUnreachable(t *testing.T) {
	cfg := testConfig()
	s, _ := newTestScraper(t, cfg)

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(1)

	result, err := s.CrawlAll(context.Background(), p)
	if err != nil {
		t.Fatalf("crawl should not fail on unreachable root: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if writer.Count() != 0 {
		t.Fatalf("records = %d, want 0", writer.Count())
	}
	if result.CategoryCount != 0 || result.TotalCount != 0 {
		t.Fatalf("result = %+v, want empty crawl", result)
	}
}
