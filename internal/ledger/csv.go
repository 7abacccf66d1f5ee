package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Ledger defines the interface for the append-only record store
type Ledger interface {
	// Append writes one record as a new row
	Append(record *Record) error

	// Records loads all persisted records
	Records() ([]*Record, error)

	// Export returns the raw store contents for download
	Export() ([]byte, error)
}

var csvHeader = []string{"amount", "category", "merchant", "date", "description", "audit_reasoning", "processed_at"}

// CSVLedger implements the Ledger interface on a flat CSV file with a header
// row. A single process appends with no locking discipline; the file may also
// be edited by hand, which Records tolerates.
type CSVLedger struct {
	path string
}

// NewCSVLedger creates a new CSVLedger instance. The file itself is created
// on first append.
func NewCSVLedger(path string) (*CSVLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	return &CSVLedger{path: path}, nil
}

// Append writes one record, creating the file with a header row if needed
func (l *CSVLedger) Append(record *Record) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking ledger file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	row := []string{
		strconv.FormatFloat(record.Amount, 'f', -1, 64),
		record.Category,
		record.Merchant,
		record.Date,
		record.Description,
		record.AuditReasoning,
		record.ProcessedAt,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing row: %w", err)
	}
	return nil
}

// Records loads all rows, repairing what it can: a missing file yields no
// records, ragged rows are padded or truncated to the seven known columns,
// and unparseable amounts become zero.
func (l *CSVLedger) Records() ([]*Record, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []*Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing ledger file: %w", err)
	}

	records := make([]*Record, 0, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == csvHeader[0] {
			continue // header row
		}
		row = repairRow(row)
		amount, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			amount = 0
		}
		records = append(records, &Record{
			Amount:         amount,
			Category:       row[1],
			Merchant:       row[2],
			Date:           row[3],
			Description:    row[4],
			AuditReasoning: row[5],
			ProcessedAt:    row[6],
		})
	}
	return records, nil
}

// repairRow pads or truncates a row to the expected column count, so rows
// mangled by out-of-band edits still load.
func repairRow(row []string) []string {
	if len(row) == len(csvHeader) {
		return row
	}
	fixed := make([]string, len(csvHeader))
	copy(fixed, row)
	return fixed
}

// Export returns the raw CSV bytes. A missing file yields just the header.
func (l *CSVLedger) Export() ([]byte, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		w.Write(csvHeader)
		w.Flush()
		return buf.Bytes(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}
	return data, nil
}
