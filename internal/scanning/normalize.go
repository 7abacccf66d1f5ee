package scanning

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Normalize coerces a raw model result into a ReceiptData record. The model
// is asked to honor the record schema directly, but it may answer with a bare
// map, a JSON string, or conversational text instead; each shape is handled
// explicitly, in this precedence:
//
//  1. already a ReceiptData: returned unchanged
//  2. a map: field-wise construction with required-field validation
//  3. a string: full JSON parse first, heuristic text extraction second
//  4. anything else: UnexpectedTypeError
func Normalize(raw any) (*ReceiptData, error) {
	switch v := raw.(type) {
	case *ReceiptData:
		return v, nil
	case ReceiptData:
		return &v, nil
	case map[string]any:
		return fromMap(v)
	case string:
		var fields map[string]any
		if err := json.Unmarshal([]byte(v), &fields); err == nil {
			return fromMap(fields)
		}
		return extractFromText(v)
	default:
		return nil, &UnexpectedTypeError{Value: raw}
	}
}

// fromMap builds a record from a decoded JSON object. Required fields must be
// present and well-typed; optional fields are taken only when they are strings.
func fromMap(fields map[string]any) (*ReceiptData, error) {
	amount, err := numberField(fields, "amount")
	if err != nil {
		return nil, fmt.Errorf("building receipt record: %w", err)
	}
	category, err := stringField(fields, "category")
	if err != nil {
		return nil, fmt.Errorf("building receipt record: %w", err)
	}

	data := &ReceiptData{
		Amount:         amount,
		Category:       category,
		Merchant:       optionalString(fields, "merchant"),
		Date:           optionalString(fields, "date"),
		Description:    optionalString(fields, "description"),
		AuditReasoning: optionalString(fields, "audit_reasoning"),
	}
	if err := data.validate(); err != nil {
		return nil, fmt.Errorf("building receipt record: %w", err)
	}
	return data, nil
}

func numberField(fields map[string]any, key string) (float64, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		// Models sometimes quote numeric values.
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("field %q is not numeric: %q", key, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q has unexpected type %T", key, v)
	}
}

func stringField(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has unexpected type %T", key, v)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("field %q is empty", key)
	}
	return strings.TrimSpace(s), nil
}

func optionalString(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func (d *ReceiptData) validate() error {
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("category is empty")
	}
	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) {
		return fmt.Errorf("amount %v is not a finite number", d.Amount)
	}
	return nil
}

// UnexpectedTypeError reports a model result that is none of the shapes
// Normalize knows how to handle.
type UnexpectedTypeError struct {
	Value any
}

func (e *UnexpectedTypeError) Error() string {
	return fmt.Sprintf("unexpected result type %T (expected receipt data, map, or string): %s",
		e.Value, truncate(fmt.Sprintf("%+v", e.Value), 200))
}

// ExtractionError reports heuristic extraction whose values still do not form
// a valid record. It carries every intermediate value and a prefix of the raw
// response so a bad extraction can be debugged without re-running the model.
type ExtractionError struct {
	Amount      float64
	Category    string
	Merchant    string
	Date        string
	Description string
	Raw         string
	Err         error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf(
		"building receipt record from extracted text: amount=%v category=%q merchant=%q date=%q description=%q: %v (original response: %s)",
		e.Amount, e.Category, e.Merchant, e.Date, truncate(e.Description, 100), e.Err, truncate(e.Raw, 500))
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// stripCodeFences removes markdown code fences the model sometimes wraps
// around its JSON despite instructions. Text that does not open with a fence
// is left untouched.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
