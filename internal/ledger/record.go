package ledger

import "sort"

// Record is one persisted row of the tax ledger: the fields extracted from a
// receipt plus the timestamp assigned at persistence time. Rows are append
// only; nothing in the system updates or deletes them.
type Record struct {
	Amount         float64 `json:"amount"`
	Category       string  `json:"category"`
	Merchant       string  `json:"merchant,omitempty"`
	Date           string  `json:"date,omitempty"`
	Description    string  `json:"description,omitempty"`
	AuditReasoning string  `json:"audit_reasoning,omitempty"`
	ProcessedAt    string  `json:"processed_at"`
}

// CategoryTotal is the aggregated spend for one category
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// TotalsByCategory aggregates record amounts per category, largest first.
func TotalsByCategory(records []*Record) []CategoryTotal {
	byCategory := make(map[string]float64)
	for _, r := range records {
		byCategory[r.Category] += r.Amount
	}

	totals := make([]CategoryTotal, 0, len(byCategory))
	for category, total := range byCategory {
		totals = append(totals, CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}
