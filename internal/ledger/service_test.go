package ledger_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/tax-filer/internal/ledger"
	"github.com/zombor/tax-filer/internal/scanning"
)

// mockLedger is a mock implementation of ledger.Ledger
type mockLedger struct {
	records   []*ledger.Record
	appendErr error
	loadErr   error
	exportErr error
}

func (m *mockLedger) Append(record *ledger.Record) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockLedger) Records() ([]*ledger.Record, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.records, nil
}

func (m *mockLedger) Export() ([]byte, error) {
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	return []byte("amount,category\n"), nil
}

// mockArchive is a mock implementation of ledger.Archive
type mockArchive struct {
	entries   map[string]*ledger.Entry
	saveErr   error
	getErr    error
	listErr   error
	deleteErr error
}

func newMockArchive() *mockArchive {
	return &mockArchive{entries: make(map[string]*ledger.Entry)}
}

func (m *mockArchive) SaveEntry(entry *ledger.Entry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockArchive) GetEntry(id string) (*ledger.Entry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.entries[id]
	if !ok {
		return nil, errors.New("receipt not found")
	}
	return entry, nil
}

func (m *mockArchive) ListEntries() ([]*ledger.Entry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	entries := make([]*ledger.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	return entries, nil
}

func (m *mockArchive) DeleteEntry(id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.entries, id)
	return nil
}

func (m *mockArchive) Close() error { return nil }

// mockStorage is a mock implementation of ledger.Storage
type mockStorage struct {
	files     map[string][]byte
	saveErr   error
	getErr    error
	deleteErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(filename string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.files[filename] = data
	return filename, nil
}

func (m *mockStorage) Get(path string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *mockStorage) Delete(path string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.files, path)
	return nil
}

// mockScanner is a mock implementation of scanning.Scanner
type mockScanner struct {
	data    *scanning.ReceiptData
	scanErr error
}

func (m *mockScanner) ScanReceipt(imageData []byte, contentType string) (*scanning.ReceiptData, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	return m.data, nil
}

func (m *mockScanner) Close() error { return nil }

// mockIDGenerator returns a fixed ID
type mockIDGenerator struct {
	id string
}

func (m *mockIDGenerator) Generate() string { return m.id }

// mockTimeSource returns a fixed time
type mockTimeSource struct {
	now time.Time
}

func (m *mockTimeSource) Now() time.Time { return m.now }

var _ = Describe("Service", func() {
	var (
		service *ledger.Service
		records *mockLedger
		archive *mockArchive
		storage *mockStorage
		scanner *mockScanner
	)

	BeforeEach(func() {
		records = &mockLedger{}
		archive = newMockArchive()
		storage = newMockStorage()
		scanner = &mockScanner{
			data: &scanning.ReceiptData{
				Amount:         42.75,
				Category:       "Business Meals",
				Merchant:       "Joe's Deli",
				Date:           "2024-01-15",
				Description:    "Team lunch",
				AuditReasoning: "Meal with clients.",
			},
		}

		ids := &mockIDGenerator{id: "test-id-1"}
		clock := &mockTimeSource{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
		service = ledger.NewServiceWithDeps(records, archive, storage, scanner, ids, clock)
	})

	Describe("ProcessReceipt", func() {
		var (
			processed *ledger.ProcessedReceipt
			err       error
		)

		JustBeforeEach(func() {
			processed, err = service.ProcessReceipt("lunch receipt.jpg", []byte("image-data"), "image/jpeg")
		})

		When("everything succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("appends a ledger row with the scanned fields and a timestamp", func() {
				Expect(records.records).To(HaveLen(1))
				Expect(records.records[0]).To(Equal(&ledger.Record{
					Amount:         42.75,
					Category:       "Business Meals",
					Merchant:       "Joe's Deli",
					Date:           "2024-01-15",
					Description:    "Team lunch",
					AuditReasoning: "Meal with clients.",
					ProcessedAt:    "2024-01-15 10:30:00",
				}))
			})

			It("stores the image under a sanitized name", func() {
				Expect(storage.files).To(HaveKey("test-id-1_lunch receipt.jpg"))
			})

			It("archives an entry pointing at the stored image", func() {
				entry, getErr := archive.GetEntry("test-id-1")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(entry.Filename).To(Equal("test-id-1_lunch receipt.jpg"))
				Expect(entry.ContentType).To(Equal("image/jpeg"))
				Expect(entry.Merchant).To(Equal("Joe's Deli"))
				Expect(entry.Amount).To(Equal(42.75))
			})

			It("returns the row and the entry together", func() {
				Expect(processed.Record).To(Equal(records.records[0]))
				Expect(processed.Receipt.ID).To(Equal("test-id-1"))
			})
		})

		When("the scan fails", func() {
			BeforeEach(func() {
				scanner.scanErr = errors.New("model unavailable")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("scanning receipt")))
			})

			It("removes the stored image", func() {
				Expect(storage.files).To(BeEmpty())
			})

			It("appends nothing to the ledger", func() {
				Expect(records.records).To(BeEmpty())
			})
		})

		When("the file cannot be stored", func() {
			BeforeEach(func() {
				storage.saveErr = errors.New("disk full")
			})

			It("returns the error without scanning", func() {
				Expect(err).To(MatchError(ContainSubstring("saving file")))
				Expect(records.records).To(BeEmpty())
			})
		})

		When("the archive entry cannot be saved", func() {
			BeforeEach(func() {
				archive.saveErr = errors.New("db closed")
			})

			It("returns the error and removes the stored image", func() {
				Expect(err).To(MatchError(ContainSubstring("saving archive entry")))
				Expect(storage.files).To(BeEmpty())
				Expect(records.records).To(BeEmpty())
			})
		})

		When("the ledger append fails", func() {
			BeforeEach(func() {
				records.appendErr = errors.New("read-only filesystem")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("appending record")))
			})

			It("rolls back the archive entry and the stored image", func() {
				Expect(archive.entries).To(BeEmpty())
				Expect(storage.files).To(BeEmpty())
			})
		})
	})

	Describe("ProcessReceiptFile", func() {
		It("reports a missing file by path", func() {
			_, err := service.ProcessReceiptFile("/nonexistent/receipt.jpg")
			Expect(err).To(MatchError(ContainSubstring("receipt file not found: /nonexistent/receipt.jpg")))
		})
	})

	Describe("CategoryTotals", func() {
		BeforeEach(func() {
			records.records = []*ledger.Record{
				{Amount: 10, Category: "Meals"},
				{Amount: 30, Category: "Travel"},
				{Amount: 5, Category: "Meals"},
			}
		})

		It("aggregates through the ledger", func() {
			totals, err := service.CategoryTotals()
			Expect(err).NotTo(HaveOccurred())
			Expect(totals).To(Equal([]ledger.CategoryTotal{
				{Category: "Travel", Total: 30},
				{Category: "Meals", Total: 15},
			}))
		})
	})

	Describe("GetReceiptFile", func() {
		BeforeEach(func() {
			archive.entries["r1"] = &ledger.Entry{ID: "r1", Filename: "r1_receipt.png", ContentType: "image/png"}
			storage.files["r1_receipt.png"] = []byte("png-bytes")
		})

		It("returns the stored bytes and content type", func() {
			data, contentType, err := service.GetReceiptFile("r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("png-bytes")))
			Expect(contentType).To(Equal("image/png"))
		})

		It("errors for an unknown receipt", func() {
			_, _, err := service.GetReceiptFile("unknown")
			Expect(err).To(MatchError(ContainSubstring("getting receipt")))
		})
	})
})

var _ = Describe("sanitizeFilename", func() {
	It("strips special characters and collapses spaces", func() {
		Expect(ledger.SanitizeFilename("my   receipt!!@#.jpg")).To(Equal("my receipt.jpg"))
	})

	It("falls back to a default base name", func() {
		Expect(ledger.SanitizeFilename("!!!.png")).To(Equal("receipt.png"))
	})

	It("truncates very long names", func() {
		long := ""
		for i := 0; i < 20; i++ {
			long += "abcdefghij"
		}
		cleaned := ledger.SanitizeFilename(long + ".pdf")
		Expect(cleaned).To(HaveLen(50 + len(".pdf")))
	})
})
