package ledger_test

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/tax-filer/internal/ledger"
)

var _ = Describe("BoltArchive", func() {
	var archive *ledger.BoltArchive

	BeforeEach(func() {
		var err error
		archive, err = ledger.NewBoltArchive(filepath.Join(GinkgoT().TempDir(), "archive.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(archive.Close()).To(Succeed())
	})

	Describe("SaveEntry and GetEntry", func() {
		It("round-trips an entry", func() {
			entry := &ledger.Entry{
				ID:          "abc-123",
				Filename:    "abc-123_receipt.jpg",
				ContentType: "image/jpeg",
				Merchant:    "Joe's Deli",
				Amount:      25.50,
				CreatedAt:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			}
			Expect(archive.SaveEntry(entry)).To(Succeed())

			loaded, err := archive.GetEntry("abc-123")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(entry))
		})

		It("returns an error for an unknown ID", func() {
			_, err := archive.GetEntry("missing")
			Expect(err).To(MatchError(ContainSubstring("receipt not found: missing")))
		})
	})

	Describe("ListEntries", func() {
		It("returns an empty slice when nothing is archived", func() {
			entries, err := archive.ListEntries()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("returns every saved entry", func() {
			Expect(archive.SaveEntry(&ledger.Entry{ID: "one", Filename: "one.png"})).To(Succeed())
			Expect(archive.SaveEntry(&ledger.Entry{ID: "two", Filename: "two.png"})).To(Succeed())

			entries, err := archive.ListEntries()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
		})
	})

	Describe("DeleteEntry", func() {
		It("removes the entry", func() {
			Expect(archive.SaveEntry(&ledger.Entry{ID: "doomed"})).To(Succeed())
			Expect(archive.DeleteEntry("doomed")).To(Succeed())

			_, err := archive.GetEntry("doomed")
			Expect(err).To(HaveOccurred())
		})

		It("is a no-op for an unknown ID", func() {
			Expect(archive.DeleteEntry("never-existed")).To(Succeed())
		})
	})
})

var _ = Describe("LocalStorage", func() {
	var storage *ledger.LocalStorage

	BeforeEach(func() {
		var err error
		storage, err = ledger.NewLocalStorage(filepath.Join(GinkgoT().TempDir(), "receipts"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips file contents", func() {
		name, err := storage.Save("receipt.png", []byte("image-bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("receipt.png"))

		data, err := storage.Get("receipt.png")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("image-bytes")))
	})

	It("deletes stored files", func() {
		_, err := storage.Save("receipt.png", []byte("image-bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(storage.Delete("receipt.png")).To(Succeed())

		_, err = storage.Get("receipt.png")
		Expect(err).To(HaveOccurred())
	})

	It("errors when reading a missing file", func() {
		_, err := storage.Get("nope.png")
		Expect(err).To(MatchError(ContainSubstring("reading file")))
	})
})
