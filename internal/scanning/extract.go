package scanning

import (
	"regexp"
	"strconv"
	"strings"
)

// Label patterns tolerate markdown emphasis around the label and capture up to
// a newline or a spaced hyphen delimiter. Description and reasoning keep
// capturing across lines until a line beginning with a hyphen bullet.
var (
	amountPattern      = regexp.MustCompile(`\$\s*([\d,]+\.?\d*)`)
	categoryPattern    = regexp.MustCompile(`(?i)Category[:\*\s]+([^\n]+?)(?:\s+-|\n|$)`)
	merchantPattern    = regexp.MustCompile(`(?i)Merchant[:\*\s]+([^\n]+?)(?:\s+-|\n|$)`)
	datePattern        = regexp.MustCompile(`(?i)Date[:\*\s]+([^\n]+?)(?:\s+-|\n|$)`)
	descriptionPattern = regexp.MustCompile(`(?i)Description[:\*\s]+([^\n]+(?:\n(?:[^-\n][^\n]*)?)*)`)
	reasoningPattern   = regexp.MustCompile(`(?i)(?:Audit Reasoning|Reasoning|Justification|Rationale)[:\*\s]+([^\n]+(?:\n(?:[^-\n][^\n]*)?)*)`)

	newlineRuns   = regexp.MustCompile(`\n+`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// extractFromText recovers receipt fields from a free-form model response.
// This is the last-resort path for when the model answers conversationally
// instead of honoring the JSON schema: amount and category degrade to 0 and
// "Unknown" rather than guesses, and when no reasoning label matches at all
// the entire response becomes the reasoning so nothing is lost.
func extractFromText(text string) (*ReceiptData, error) {
	var amount float64
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		amount, _ = strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	}

	category := "Unknown"
	if m := categoryPattern.FindStringSubmatch(text); m != nil {
		category = stripEmphasis(m[1])
	}

	var merchant, date, description string
	if m := merchantPattern.FindStringSubmatch(text); m != nil {
		merchant = stripEmphasis(m[1])
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		date = stripEmphasis(m[1])
	}
	if m := descriptionPattern.FindStringSubmatch(text); m != nil {
		// Multi-line capture collapsed to a single line.
		description = strings.TrimSpace(newlineRuns.ReplaceAllString(stripEmphasis(m[1]), " "))
	}

	var reasoning string
	if m := reasoningPattern.FindStringSubmatch(text); m != nil {
		reasoning = stripEmphasis(m[1])
	} else {
		// No reasoning label anywhere: keep the full response. This can
		// restate fields already extracted above; that duplication is
		// accepted over losing the model's explanation entirely.
		reasoning = stripEmphasis(text)
	}
	reasoning = strings.TrimSpace(blankLineRuns.ReplaceAllString(reasoning, "\n\n"))

	data := &ReceiptData{
		Amount:         amount,
		Category:       category,
		Merchant:       merchant,
		Date:           date,
		Description:    description,
		AuditReasoning: reasoning,
	}
	if err := data.validate(); err != nil {
		return nil, &ExtractionError{
			Amount:      amount,
			Category:    category,
			Merchant:    merchant,
			Date:        date,
			Description: description,
			Raw:         text,
			Err:         err,
		}
	}
	return data, nil
}

// stripEmphasis drops surrounding markdown bold markers and whitespace.
func stripEmphasis(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*")
	return strings.TrimSpace(s)
}
