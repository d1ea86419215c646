package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"scansave/internal/extraction"
)

// Insighter produces the short commentary attached to a record. It is
// best-effort enrichment; a failure never blocks the pipeline.
type Insighter interface {
	Insight(ctx context.Context, rec Record, lang string) (string, error)
}

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ErrBusy is returned when an upload pipeline run is already in flight.
// Concurrent uploads are rejected, not queued.
var ErrBusy = errors.New("an upload is already being processed")

// Service orchestrates the receipt pipeline: encode, extract, enrich,
// insert. At most one run is in flight at a time.
type Service struct {
	ledger    *Ledger
	extractor extraction.Extractor
	images    ImageStore
	insighter Insighter
	idGen     IDGenerator
	clock     TimeSource
	inflight  *semaphore.Weighted
}

// NewService creates a Service with the default ID generator and clock.
func NewService(ledger *Ledger, extractor extraction.Extractor, images ImageStore, insighter Insighter) *Service {
	return NewServiceWithDeps(ledger, extractor, images, insighter, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(ledger *Ledger, extractor extraction.Extractor, images ImageStore, insighter Insighter, idGen IDGenerator, clock TimeSource) *Service {
	return &Service{
		ledger:    ledger,
		extractor: extractor,
		images:    images,
		insighter: insighter,
		idGen:     idGen,
		clock:     clock,
		inflight:  semaphore.NewWeighted(1),
	}
}

// sanitizeFilename cleans up phone-generated filenames before they land in
// the image store.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`).ReplaceAllString(base, "")
	base = regexp.MustCompile(`\s+`).ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ProcessUpload runs the pipeline for one captured image: store the
// capture, extract the record, attach the insight, insert into the ledger.
// A second upload while one is in flight returns ErrBusy. Extraction
// failure aborts the run; insight failure does not.
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte, contentType, lang string) (Record, error) {
	if !s.inflight.TryAcquire(1) {
		return Record{}, ErrBusy
	}
	defer s.inflight.Release(1)

	id := s.idGen.Generate()

	savedPath, err := s.images.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return Record{}, fmt.Errorf("saving capture: %w", err)
	}

	extracted, err := s.extractor.ExtractReceipt(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to extract receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.images.Delete(savedPath)
		return Record{}, fmt.Errorf("extracting receipt: %w", err)
	}

	rec := fromExtraction(extracted)
	rec.ImageFile = savedPath
	rec.ImageType = contentType
	rec.CreatedAt = s.clock.Now()

	// Best-effort enrichment: the record is inserted without an insight
	// when generation fails.
	insight, err := s.insighter.Insight(ctx, rec, lang)
	if err != nil {
		slog.Warn("Failed to generate insight", "store", rec.StoreName, "error", err)
	} else {
		rec.Insight = strings.TrimSpace(insight)
	}

	inserted, err := s.ledger.Insert(rec, id)
	if err != nil {
		s.images.Delete(savedPath)
		return Record{}, fmt.Errorf("inserting record: %w", err)
	}
	return inserted, nil
}

// DeleteReceipt removes a record and its retained capture. Deleting an
// unknown id is a no-op.
func (s *Service) DeleteReceipt(id string) error {
	rec, ok, err := s.ledger.Delete(id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if ok && rec.ImageFile != "" {
		if err := s.images.Delete(rec.ImageFile); err != nil {
			slog.Warn("Failed to delete capture", "file", rec.ImageFile, "error", err)
		}
	}
	return nil
}

// ReceiptImage returns the retained capture for a record.
func (s *Service) ReceiptImage(id string) ([]byte, string, error) {
	rec, ok := s.ledger.Find(id)
	if !ok {
		return nil, "", fmt.Errorf("record not found: %s", id)
	}
	if rec.ImageFile == "" {
		return nil, "", fmt.Errorf("record has no retained capture: %s", id)
	}
	data, err := s.images.Get(rec.ImageFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting capture: %w", err)
	}
	return data, rec.ImageType, nil
}
