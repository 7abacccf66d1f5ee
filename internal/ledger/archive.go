package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const entriesBucket = "receipts"

// Entry describes one archived receipt image. The ledger row keeps the
// extracted fields; the entry keeps enough metadata to serve the original
// image behind it.
type Entry struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Merchant    string    `json:"merchant,omitempty"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// Archive defines the interface for the receipt image index
type Archive interface {
	// SaveEntry saves an archive entry
	SaveEntry(entry *Entry) error

	// GetEntry retrieves an archive entry by ID
	GetEntry(id string) (*Entry, error)

	// ListEntries returns all archive entries
	ListEntries() ([]*Entry, error)

	// DeleteEntry removes an archive entry
	DeleteEntry(id string) error

	// Close closes the archive
	Close() error
}

// BoltArchive implements the Archive interface using BoltDB
type BoltArchive struct {
	db *bbolt.DB
}

// NewBoltArchive creates a new BoltArchive instance
func NewBoltArchive(path string) (*BoltArchive, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(entriesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltArchive{db: db}, nil
}

// SaveEntry saves an archive entry
func (b *BoltArchive) SaveEntry(entry *Entry) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entriesBucket))
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling entry: %w", err)
		}
		return bucket.Put([]byte(entry.ID), data)
	})
}

// GetEntry retrieves an archive entry by ID
func (b *BoltArchive) GetEntry(id string) (*Entry, error) {
	var entry *Entry
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entriesBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("receipt not found: %s", id)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns all archive entries
func (b *BoltArchive) ListEntries() ([]*Entry, error) {
	entries := make([]*Entry, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entriesBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling entry: %w", err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteEntry removes an archive entry
func (b *BoltArchive) DeleteEntry(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entriesBucket))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the archive
func (b *BoltArchive) Close() error {
	return b.db.Close()
}
