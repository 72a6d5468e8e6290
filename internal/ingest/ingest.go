// Package ingest normalizes uploaded trend export files.
//
// A file is either a JSON document or delimited text with a header line. Parse
// turns one file into a domain.ParsedExport and classifies its kind from the
// filename, falling back to the header names. ParseBatch parses several files
// for the same subject in parallel; one malformed file never affects the others.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vietddude/trendcore/internal/core/domain"
	"github.com/vietddude/trendcore/internal/metrics"
)

// DefaultMaxConcurrent is the default number of files parsed at once in a batch.
const DefaultMaxConcurrent = 4

// Config holds ingestion settings.
type Config struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Ingestor parses export files.
type Ingestor struct {
	maxConcurrent int
	log           *slog.Logger
}

// New creates an Ingestor.
func New(cfg Config, logger *slog.Logger) *Ingestor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{maxConcurrent: cfg.MaxConcurrent, log: logger}
}

// Parse converts one uploaded file into a ParsedExport.
// Failures are always *ParseError.
func (in *Ingestor) Parse(filename, raw string) (*domain.ParsedExport, error) {
	export, err := parse(filename, raw)
	if err != nil {
		metrics.ExportsParsed.WithLabelValues("unknown", "error").Inc()
		return nil, err
	}
	metrics.ExportsParsed.WithLabelValues(string(export.Kind), "ok").Inc()
	return export, nil
}

func parse(filename, raw string) (*domain.ParsedExport, error) {
	if doc, ok := parseJSON(raw); ok {
		return &domain.ParsedExport{
			Filename: filename,
			Kind:     domain.ExportJSON,
			Headers:  []string{},
			Rows:     []domain.Row{{"data": doc}},
		}, nil
	}
	return parseTabular(filename, raw)
}

func parseJSON(raw string) (any, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

func parseTabular(filename, raw string) (*domain.ParsedExport, error) {
	records, err := readRecords(raw)
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}
	if len(records) < 2 {
		return nil, &ParseError{Filename: filename, Err: fmt.Errorf("%w: got %d", ErrTooFewLines, len(records))}
	}

	// Columns with an empty header are dropped; cols keeps their source positions.
	var (
		headers []string
		cols    []int
	)
	for i, h := range records[0] {
		if h = cleanHeader(h); h != "" {
			headers = append(headers, h)
			cols = append(cols, i)
		}
	}
	if len(headers) == 0 {
		return nil, &ParseError{Filename: filename, Err: ErrNoHeaders}
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(domain.Row, len(headers))
		for j, h := range headers {
			value := ""
			if i := cols[j]; i < len(rec) {
				value = strings.TrimSpace(rec[i])
			}
			row[h] = value
		}
		rows = append(rows, row)
	}

	flags := scanHeaders(headers)
	kind, ok := classifyFilename(filename)
	if !ok {
		kind = classifyHeaders(flags)
	}

	return &domain.ParsedExport{
		Filename: filename,
		Kind:     kind,
		Headers:  headers,
		Rows:     rows,
		Summary: domain.ExportSummary{
			TotalRows:   len(rows),
			Columns:     append([]string(nil), headers...),
			HasInterest: flags.interest,
			HasRegion:   flags.region,
			HasTopic:    flags.topic,
			HasQuery:    flags.query,
		},
	}, nil
}

// readRecords splits raw into records, dropping lines with no content.
func readRecords(raw string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// cleanHeader trims whitespace and surrounding quote characters.
func cleanHeader(h string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(h), `"'`))
}
