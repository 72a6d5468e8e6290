package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vietddude/trendcore/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// File is one uploaded file.
type File struct {
	Name    string
	Content string
}

// Outcome is the result of parsing one file of a batch.
type Outcome struct {
	File   string
	Export *domain.ParsedExport
	Err    error
}

// Batch is the merged result of parsing several files for one subject.
type Batch struct {
	ID       uuid.UUID
	Subject  string
	Outcomes []Outcome // in input order
	Exports  map[domain.ExportKind]*domain.ParsedExport
	Failures []*ParseError
}

// ParseBatch parses files concurrently and merges the successful ones by kind.
//
// Merging starts only after every parse has finished. When two files have the
// same kind, the later one in files wins. A cancelled ctx marks unparsed files
// as failed and is also returned.
func (in *Ingestor) ParseBatch(ctx context.Context, subject string, files []File) (*Batch, error) {
	outcomes := make([]Outcome, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(in.maxConcurrent)

	for i, f := range files {
		g.Go(func() error {
			outcomes[i] = in.parseOne(gCtx, f)
			// Never fail the group: a bad file must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	batch := &Batch{
		ID:       uuid.New(),
		Subject:  subject,
		Outcomes: outcomes,
		Exports:  make(map[domain.ExportKind]*domain.ParsedExport),
	}
	for _, o := range outcomes {
		if o.Err != nil {
			var pe *ParseError
			if errors.As(o.Err, &pe) {
				batch.Failures = append(batch.Failures, pe)
			}
			continue
		}
		batch.Exports[o.Export.Kind] = o.Export
	}

	in.log.Info("Parsed export batch",
		"batch_id", batch.ID,
		"subject", subject,
		"files", len(files),
		"exports", len(batch.Exports),
		"failures", len(batch.Failures),
	)

	if err := ctx.Err(); err != nil {
		return batch, fmt.Errorf("batch %s interrupted: %w", batch.ID, err)
	}
	return batch, nil
}

func (in *Ingestor) parseOne(ctx context.Context, f File) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{File: f.Name, Err: &ParseError{Filename: f.Name, Err: err}}
	}

	export, err := in.Parse(f.Name, f.Content)
	if err != nil {
		in.log.Warn("Failed to parse export", "file", f.Name, "error", err)
		return Outcome{File: f.Name, Err: err}
	}
	return Outcome{File: f.Name, Export: export}
}

// Library keeps the latest export of each kind per subject for the life of the process.
type Library struct {
	mu       sync.RWMutex
	subjects map[string]map[domain.ExportKind]*domain.ParsedExport
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{subjects: make(map[string]map[domain.ExportKind]*domain.ParsedExport)}
}

// Merge adds a batch's exports to its subject. Exports replace earlier ones of the same kind.
func (l *Library) Merge(b *Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exports, ok := l.subjects[b.Subject]
	if !ok {
		exports = make(map[domain.ExportKind]*domain.ParsedExport)
		l.subjects[b.Subject] = exports
	}
	for kind, e := range b.Exports {
		exports[kind] = e
	}
}

// Exports returns a copy of the subject's exports by kind.
func (l *Library) Exports(subject string) map[domain.ExportKind]*domain.ParsedExport {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[domain.ExportKind]*domain.ParsedExport, len(l.subjects[subject]))
	for kind, e := range l.subjects[subject] {
		out[kind] = e
	}
	return out
}
