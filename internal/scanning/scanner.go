package scanning

// ReceiptData contains the tax-relevant fields extracted from a receipt
type ReceiptData struct {
	Amount         float64 `json:"amount"`
	Category       string  `json:"category"`
	Merchant       string  `json:"merchant,omitempty"`
	Date           string  `json:"date,omitempty"`
	Description    string  `json:"description,omitempty"`
	AuditReasoning string  `json:"audit_reasoning,omitempty"`
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts tax-relevant fields
	ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}
