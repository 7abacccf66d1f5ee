package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/tax-filer/internal/scanning"
)

// processedAtLayout is the timestamp format of the processed_at column
const processedAtLayout = "2006-01-02 15:04:05"

// IDGenerator generates unique IDs for archived receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Service handles receipt processing and ledger operations
type Service struct {
	ledger  Ledger
	archive Archive
	storage Storage
	scanner scanning.Scanner
	ids     IDGenerator
	clock   TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(ledger Ledger, archive Archive, storage Storage, scanner scanning.Scanner) *Service {
	return NewServiceWithDeps(ledger, archive, storage, scanner, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(ledger Ledger, archive Archive, storage Storage, scanner scanning.Scanner, ids IDGenerator, clock TimeSource) *Service {
	return &Service{
		ledger:  ledger,
		archive: archive,
		storage: storage,
		scanner: scanner,
		ids:     ids,
		clock:   clock,
	}
}

// ProcessedReceipt pairs the appended ledger row with its archived image entry
type ProcessedReceipt struct {
	Record  *Record `json:"record"`
	Receipt *Entry  `json:"receipt"`
}

var (
	specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length. Phone-generated filenames can be long and messy.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = specialChars.ReplaceAllString(base, "")
	base = spaceRuns.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ProcessReceipt archives a receipt image, scans it, and appends the
// extracted record to the ledger. On any failure nothing is persisted: the
// stored image and archive entry are cleaned up and no ledger row is written.
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*ProcessedReceipt, error) {
	id := s.ids.Generate()
	now := s.clock.Now()

	cleanFilename := sanitizeFilename(filename)
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	receiptData, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	record := &Record{
		Amount:         receiptData.Amount,
		Category:       receiptData.Category,
		Merchant:       receiptData.Merchant,
		Date:           receiptData.Date,
		Description:    receiptData.Description,
		AuditReasoning: receiptData.AuditReasoning,
		ProcessedAt:    now.Format(processedAtLayout),
	}

	entry := &Entry{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		Merchant:    receiptData.Merchant,
		Amount:      receiptData.Amount,
		CreatedAt:   now,
	}
	if err := s.archive.SaveEntry(entry); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving archive entry: %w", err)
	}

	if err := s.ledger.Append(record); err != nil {
		s.archive.DeleteEntry(id)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("appending record: %w", err)
	}

	return &ProcessedReceipt{Record: record, Receipt: entry}, nil
}

// ProcessReceiptFile processes a receipt image referenced by path, with the
// media type inferred from the file extension.
func (s *Service) ProcessReceiptFile(path string) (*ProcessedReceipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("receipt file not found: %s", path)
		}
		return nil, fmt.Errorf("reading receipt file: %w", err)
	}
	return s.ProcessReceipt(filepath.Base(path), data, scanning.MediaTypeForPath(path))
}

// Records returns all ledger rows
func (s *Service) Records() ([]*Record, error) {
	records, err := s.ledger.Records()
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return records, nil
}

// CategoryTotals returns spend aggregated per category
func (s *Service) CategoryTotals() ([]CategoryTotal, error) {
	records, err := s.ledger.Records()
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return TotalsByCategory(records), nil
}

// ExportCSV returns the raw ledger file for download
func (s *Service) ExportCSV() ([]byte, error) {
	data, err := s.ledger.Export()
	if err != nil {
		return nil, fmt.Errorf("exporting ledger: %w", err)
	}
	return data, nil
}

// ListReceipts returns all archived receipt entries
func (s *Service) ListReceipts() ([]*Entry, error) {
	entries, err := s.archive.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return entries, nil
}

// GetReceiptFile retrieves the original image for an archived receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	entry, err := s.archive.GetEntry(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(entry.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, entry.ContentType, nil
}
