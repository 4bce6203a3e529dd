package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/contactcard/internal/config"
	"github.com/JonMunkholm/contactcard/internal/logging"
	"github.com/JonMunkholm/contactcard/internal/metrics"
	"github.com/google/uuid"
)

// Service is the entry point used by the CLI and the HTTP API. It ties the
// loader, mapping, builder and exporter together and applies configuration.
type Service struct {
	cfg     *config.Config
	photos  PhotoFetcher
	metrics *metrics.Metrics
	limiter *ConvertLimiter
}

// NewService creates a service. photos may be nil to disable PHOTO lines;
// m may be nil to disable metrics.
func NewService(cfg *config.Config, photos PhotoFetcher, m *metrics.Metrics) *Service {
	return &Service{
		cfg:     cfg,
		photos:  photos,
		metrics: m,
		limiter: NewConvertLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime),
	}
}

// Load parses a CSV stream.
func (s *Service) Load(ctx context.Context, r io.Reader) (*RecordSet, error) {
	set, err := ParseRecords(r)
	if err != nil {
		logging.FromContext(ctx).Warn("csv load failed", "error", err)
		return nil, err
	}
	logging.FromContext(ctx).Info("csv loaded", "columns", len(set.Columns), "contacts", set.Len())
	return set, nil
}

// Mapping builds and validates the column mapping for set. Unmapped
// required fields are logged as a warning only.
func (s *Service) Mapping(ctx context.Context, set *RecordSet, assignment map[string]FieldTag) (*ColumnMapping, error) {
	mapping, err := NewColumnMapping(set.Columns, assignment)
	if err != nil {
		return nil, err
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	if missing := mapping.MissingRequired(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, tag := range missing {
			names[i] = tag.String()
		}
		logging.FromContext(ctx).Warn("required fields not mapped, every contact will be skipped",
			"missing", strings.Join(names, ", "))
	}
	return mapping, nil
}

// NewExporter builds an exporter for mapping wired to the service's photo
// fetcher, escaping setting and metrics.
func (s *Service) NewExporter(ctx context.Context, mapping *ColumnMapping, mode ExportMode) *Exporter {
	logger := logging.FromContext(ctx)

	opts := []BuilderOption{
		WithEscaping(s.cfg.Export.EscapeValues),
		WithLogger(logger),
	}
	if s.photos != nil {
		opts = append(opts, WithPhotoFetcher(s.photos))
	}

	return NewExporter(NewBuilder(mapping, opts...), mode,
		WithExportLogger(logger),
		WithRecordObserver(s.metrics.IncrementRecord),
	)
}

// Export converts set into dir. It fails before writing anything when set is
// empty, the mapping is invalid or dir is unusable.
func (s *Service) Export(ctx context.Context, set *RecordSet, assignment map[string]FieldTag, mode ExportMode, dir string) (ExportResult, error) {
	ctx = logging.ContextWithExportID(ctx, uuid.NewString())
	logger := logging.FromContext(ctx)

	if set.Len() == 0 {
		return ExportResult{}, ErrNoRecords
	}
	mapping, err := s.Mapping(ctx, set, assignment)
	if err != nil {
		s.metrics.IncrementBatch(string(mode), "error")
		return ExportResult{}, err
	}

	start := time.Now()
	logger.Info("export started", "mode", mode, "dir", dir, "contacts", set.Len())

	res, err := s.NewExporter(ctx, mapping, mode).Export(ctx, set.Records, dir)
	if err != nil {
		s.metrics.IncrementBatch(string(mode), "error")
		logger.Error("export aborted", "error", err, "succeeded", res.Succeeded, "failed", res.Failed)
		return res, err
	}

	s.metrics.IncrementBatch(string(mode), "ok")
	logger.Info("export finished",
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Rendered is an in-memory conversion result.
type Rendered struct {
	ExportID string
	Cards    []Card
	Failed   int
}

// Succeeded returns the number of cards built.
func (r *Rendered) Succeeded() int {
	return len(r.Cards)
}

// Render converts set without touching disk.
func (s *Service) Render(ctx context.Context, set *RecordSet, assignment map[string]FieldTag) (*Rendered, error) {
	id := uuid.NewString()
	ctx = logging.ContextWithExportID(ctx, id)

	if set.Len() == 0 {
		return nil, ErrNoRecords
	}
	mapping, err := s.Mapping(ctx, set, assignment)
	if err != nil {
		return nil, err
	}

	cards, failed, err := s.NewExporter(ctx, mapping, ModeCombined).Render(ctx, set.Records)
	if err != nil {
		return nil, err
	}
	for range cards {
		s.metrics.IncrementRecord("succeeded")
	}

	logging.FromContext(ctx).Info("render finished", "succeeded", len(cards), "failed", failed)
	return &Rendered{ExportID: id, Cards: cards, Failed: failed}, nil
}

// AcquireSlot waits for a conversion slot. The caller must call
// ReleaseSlot when done.
func (s *Service) AcquireSlot(ctx context.Context) error {
	if s.limiter.TryAcquire() {
		return nil
	}
	status := s.limiter.Status()
	logging.FromContext(ctx).Info("waiting for conversion slot",
		"active", status.Active, "max", status.MaxConcurrent)
	return s.limiter.Acquire(ctx)
}

// ReleaseSlot returns a slot taken with AcquireSlot.
func (s *Service) ReleaseSlot() {
	s.limiter.Release()
}

// LimiterStatus returns the current conversion limiter state.
func (s *Service) LimiterStatus() ConvertLimiterStatus {
	return s.limiter.Status()
}

// WaitForConversions blocks until running conversions finish or ctx ends.
func (s *Service) WaitForConversions(ctx context.Context) error {
	err := s.limiter.WaitForDrain(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("conversions did not finish before shutdown deadline")
	}
	return err
}
