package core

// export.go runs a batch of records through the Builder and writes the
// result, either one file per contact or a single combined file.
//
// Records are processed one at a time in input order. A record that fails
// the name check or whose file cannot be written is counted as failed and
// the batch carries on; only an unusable destination or a cancelled context
// stops it early.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ExportMode selects how cards are written.
type ExportMode string

const (
	ModePerContact ExportMode = "per-contact"
	ModeCombined   ExportMode = "combined"
)

// CombinedFileName is the output file of ModeCombined.
const CombinedFileName = "contacts.vcf"

// lockFileName guards a destination directory while an export writes to it.
const lockFileName = ".contactcard.lock"

// ParseExportMode accepts "per-contact" / "single" and "combined" / "bulk".
func ParseExportMode(s string) (ExportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "per-contact", "single", "":
		return ModePerContact, nil
	case "combined", "bulk":
		return ModeCombined, nil
	default:
		return "", fmt.Errorf("invalid export mode %q (use per-contact or combined)", s)
	}
}

// Card is one successfully built vCard.
type Card struct {
	Index    int    // 1-based position of the record in the batch
	FullName string // "<First> <Last>"
	FileName string // Sanitized per-contact file name, with .vcf
	Text     string
}

// ExportResult is the outcome of a batch.
type ExportResult struct {
	Succeeded int
	Failed    int
	Files     []string // Paths written, in order
	Errors    []error  // Per-file write errors, already counted in Failed
}

// Exporter converts and writes record batches.
type Exporter struct {
	builder  *Builder
	mode     ExportMode
	fileMode os.FileMode
	logger   *slog.Logger
	observe  func(outcome string)
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithFileMode sets the permission bits of written files (default 0644).
func WithFileMode(m os.FileMode) ExporterOption {
	return func(e *Exporter) { e.fileMode = m }
}

// WithExportLogger sets the exporter's logger.
func WithExportLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = l }
}

// WithRecordObserver registers a callback invoked once per record with
// "succeeded", "skipped" or "write_failed".
func WithRecordObserver(fn func(outcome string)) ExporterOption {
	return func(e *Exporter) { e.observe = fn }
}

// NewExporter creates an exporter.
func NewExporter(builder *Builder, mode ExportMode, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		builder:  builder,
		mode:     mode,
		fileMode: 0o644,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render builds every record in memory. failed counts records rejected by
// the builder. A cancelled context stops the batch and returns ctx.Err()
// along with the cards built so far.
func (e *Exporter) Render(ctx context.Context, records []Record) (cards []Card, failed int, err error) {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return cards, failed, err
		}

		card, ok := e.buildCard(ctx, i, rec)
		if !ok {
			failed++
			continue
		}
		cards = append(cards, card)
	}
	return cards, failed, nil
}

// buildCard renders the record at batch position i (0-based).
func (e *Exporter) buildCard(ctx context.Context, i int, rec Record) (Card, bool) {
	text, ok := e.builder.Build(ctx, rec)
	if !ok {
		e.record("skipped")
		e.logger.Debug("record skipped, missing first or last name", "index", i+1, "line", rec.Line())
		return Card{}, false
	}

	first, last := e.builder.Name(rec)
	full := strings.TrimSpace(first + " " + last)
	return Card{
		Index:    i + 1,
		FullName: full,
		FileName: SanitizeFilename(full, i+1) + ".vcf",
		Text:     text,
	}, true
}

// Combined joins card texts the way ModeCombined writes them.
func Combined(cards []Card) string {
	texts := make([]string, len(cards))
	for i, c := range cards {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n")
}

// Export converts records and writes them into dir.
//
// dir must be an existing, writable directory; otherwise the returned error
// wraps ErrDestination and nothing is written.
func (e *Exporter) Export(ctx context.Context, records []Record, dir string) (ExportResult, error) {
	var res ExportResult

	info, err := os.Stat(dir)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrDestination, err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("%w: %s is not a directory", ErrDestination, dir)
	}

	unlock, err := lockDir(dir)
	if err != nil {
		return res, err
	}
	defer unlock()

	switch e.mode {
	case ModeCombined:
		err = e.exportCombined(ctx, records, dir, &res)
	default:
		err = e.exportPerContact(ctx, records, dir, &res)
	}
	return res, err
}

func (e *Exporter) exportPerContact(ctx context.Context, records []Record, dir string, res *ExportResult) error {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		card, ok := e.buildCard(ctx, i, rec)
		if !ok {
			res.Failed++
			continue
		}

		path := filepath.Join(dir, card.FileName)
		if err := os.WriteFile(path, []byte(card.Text), e.fileMode); err != nil {
			werr := &WriteError{Path: path, Err: err}
			res.Failed++
			res.Errors = append(res.Errors, werr)
			e.record("write_failed")
			e.logger.Error("failed to export contact", "name", card.FullName, "error", werr)
			continue
		}

		res.Succeeded++
		res.Files = append(res.Files, path)
		e.record("succeeded")
	}
	return nil
}

func (e *Exporter) exportCombined(ctx context.Context, records []Record, dir string, res *ExportResult) error {
	cards, failed, err := e.Render(ctx, records)
	res.Failed += failed
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return nil
	}

	path := filepath.Join(dir, CombinedFileName)
	if err := os.WriteFile(path, []byte(Combined(cards)), e.fileMode); err != nil {
		werr := &WriteError{Path: path, Err: err}
		res.Failed += len(cards)
		res.Errors = append(res.Errors, werr)
		for range cards {
			e.record("write_failed")
		}
		e.logger.Error("failed to export combined vcard", "contacts", len(cards), "error", werr)
		return nil
	}

	res.Succeeded = len(cards)
	res.Files = append(res.Files, path)
	for range cards {
		e.record("succeeded")
	}
	return nil
}

func (e *Exporter) record(outcome string) {
	if e.observe != nil {
		e.observe(outcome)
	}
}

// lockDir takes an advisory lock on dir for the duration of an export.
// A second export into the same directory fails instead of waiting.
func lockDir(dir string) (func(), error) {
	path := filepath.Join(dir, lockFileName)
	lock := flock.New(path)

	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDestination, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another export is writing to %s", ErrDestination, dir)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("failed to release export lock", "path", path, "error", err)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove export lock", "path", path, "error", err)
		}
	}, nil
}
