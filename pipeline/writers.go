package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aluiziolira/go-crawl-books/models"
)

// priorityColumns come first in the CSV header, in exactly this order,
// whenever the crawl produced them. Remaining columns follow alphabetically.
var priorityColumns = []string{
	"title", "category", "price", "price_excl_tax", "price_incl_tax",
	"rating", "upc", "availability", "availability_detail", "stock_quantity",
	"description", "image_url", "book_url",
}

// CSVWriter serializes records to CSV. Because detail extraction is partial,
// records carry heterogeneous field sets; the column layout is inferred from
// the union of all fields, so rows are buffered and the file is emitted once
// on Close.
type CSVWriter struct {
	mu      sync.Mutex
	file    *os.File
	records []*models.Book
	rows    int
	closed  bool
}

// NewCSVWriter creates the output file. Failing to create it is fatal for
// the caller: the crawl's entire value is this artifact.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	return &CSVWriter{file: f}, nil
}

// Write buffers books until Close infers the final column set.
func (cw *CSVWriter) Write(books []*models.Book) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return fmt.Errorf("csv writer is closed")
	}
	cw.records = append(cw.records, books...)
	return nil
}

// Close writes the header and all buffered rows, then closes the file. An
// empty record set produces an empty file with a logged warning.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return nil
	}
	cw.closed = true

	if len(cw.records) == 0 {
		slog.Warn("no records to write", slog.String("file", cw.file.Name()))
		return cw.file.Close()
	}

	columns := columnOrder(cw.records)
	writer := csv.NewWriter(cw.file)

	if err := writer.Write(columns); err != nil {
		cw.file.Close()
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(columns))
	for _, book := range cw.records {
		fields := book.Fields()
		for i, column := range columns {
			row[i] = fields[column]
		}
		if err := writer.Write(row); err != nil {
			cw.file.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
		cw.rows++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv records: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures rows were actually flushed for a non-empty record set.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.closed {
		return fmt.Errorf("csv writer not closed")
	}
	if len(cw.records) > 0 && cw.rows != len(cw.records) {
		return fmt.Errorf("csv rows written (%d) do not match records collected (%d)", cw.rows, len(cw.records))
	}
	return nil
}

// columnOrder computes the output header: the union of all record fields,
// alphabetical, with the priority subset moved to the front in its fixed
// sequence. Deterministic for a given record set regardless of input order.
func columnOrder(records []*models.Book) []string {
	present := make(map[string]bool)
	for _, book := range records {
		for field := range book.Fields() {
			present[field] = true
		}
	}

	prioritized := make(map[string]bool, len(priorityColumns))
	columns := make([]string, 0, len(present))
	for _, column := range priorityColumns {
		if present[column] {
			columns = append(columns, column)
			prioritized[column] = true
		}
	}

	rest := make([]string, 0, len(present))
	for field := range present {
		if !prioritized[field] {
			rest = append(rest, field)
		}
	}
	sort.Strings(rest)

	return append(columns, rest...)
}

// JSONWriter writes newline-delimited JSON records as they arrive.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
	rows    int
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends books in JSONL format.
func (jw *JSONWriter) Write(books []*models.Book) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, book := range books {
		if err := jw.encoder.Encode(book); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.rows++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.rows == 0 {
		slog.Warn("no records to write", slog.String("file", jw.file.Name()))
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data when records were written.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.rows == 0 {
		return nil
	}
	info, err := os.Stat(jw.file.Name())
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
