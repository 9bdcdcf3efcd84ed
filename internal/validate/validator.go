// Package validate turns raw model output into validated transactions.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
	"github.com/rumor-ml/commons.systems/txparse/internal/transform"
)

// Kind classifies validation failures that abort the whole batch.
type Kind int

const (
	// KindNoJSONFound means no balanced JSON array exists in the output.
	KindNoJSONFound Kind = iota
	// KindMalformedJSON means the array substring failed to parse.
	KindMalformedJSON
	// KindAllElementsInvalid means a non-empty array yielded no valid
	// transactions (or the drop fraction exceeded the configured limit).
	KindAllElementsInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNoJSONFound:
		return "no_json_found"
	case KindMalformedJSON:
		return "malformed_json"
	case KindAllElementsInvalid:
		return "all_elements_invalid"
	}
	return "unknown"
}

// snippetLimit caps the offending substring carried in errors.
const snippetLimit = 200

// Error is a typed validation failure. Snippet carries a truncated view of
// the offending model output so callers can distinguish content problems
// from backend problems.
type Error struct {
	Kind    Kind
	Snippet string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("validation failed (%s)", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Report records per-element outcomes. Dropped is the caller's observable
// signal for model output drift; it must not be reduced to a log line.
type Report struct {
	Total   int
	Dropped int
	Reasons []string
}

// Validator validates model output against the transaction schema.
type Validator struct {
	// maxDropFraction is the tolerated fraction of dropped elements.
	// The default of 1.0 tolerates any partial drop; the batch then fails
	// only when a non-empty array yields zero valid transactions.
	maxDropFraction float64
}

// New creates a validator with the default drop policy.
func New() *Validator {
	return &Validator{maxDropFraction: 1.0}
}

// NewWithDropLimit creates a validator failing batches whose dropped
// fraction exceeds limit. Values outside (0, 1] fall back to the default.
func NewWithDropLimit(limit float64) *Validator {
	if limit <= 0 || limit > 1 {
		return New()
	}
	return &Validator{maxDropFraction: limit}
}

// rawTransaction mirrors one model-output element before coercion.
// Quantity and amount stay raw because the model may emit them as strings
// or numbers, with either decimal separator.
type rawTransaction struct {
	Date            string          `json:"date"`
	ISIN            string          `json:"isin"`
	ProductName     string          `json:"product_name"`
	Quantity        json.RawMessage `json:"quantity"`
	AmountEuros     json.RawMessage `json:"amount_euros"`
	TransactionType string          `json:"transaction_type"`
}

// Validate extracts the JSON array from raw model output, validates and
// coerces each element, and returns the valid transactions in their
// original order. Invalid elements are dropped and counted in the Report;
// an empty array is a successful empty result.
func (v *Validator) Validate(raw string) ([]domain.Transaction, Report, error) {
	var report Report

	arr, ok := extractArray(raw)
	if !ok {
		return nil, report, &Error{
			Kind:    KindNoJSONFound,
			Snippet: truncate(raw),
			Err:     fmt.Errorf("no balanced JSON array in model output"),
		}
	}

	var elements []rawTransaction
	if err := json.Unmarshal([]byte(arr), &elements); err != nil {
		return nil, report, &Error{
			Kind:    KindMalformedJSON,
			Snippet: truncate(arr),
			Err:     fmt.Errorf("parsing model output: %w", err),
		}
	}

	report.Total = len(elements)
	transactions := make([]domain.Transaction, 0, len(elements))
	for i, el := range elements {
		txn, err := coerce(el)
		if err != nil {
			report.Dropped++
			report.Reasons = append(report.Reasons, fmt.Sprintf("element %d: %v", i, err))
			continue
		}
		transactions = append(transactions, txn)
	}

	if report.Total > 0 {
		if len(transactions) == 0 {
			return nil, report, &Error{
				Kind:    KindAllElementsInvalid,
				Snippet: truncate(arr),
				Err:     fmt.Errorf("all %d elements invalid: %v", report.Total, report.Reasons),
			}
		}
		if frac := float64(report.Dropped) / float64(report.Total); frac > v.maxDropFraction {
			return nil, report, &Error{
				Kind:    KindAllElementsInvalid,
				Snippet: truncate(arr),
				Err:     fmt.Errorf("dropped fraction %.2f exceeds limit %.2f: %v", frac, v.maxDropFraction, report.Reasons),
			}
		}
	}

	return transactions, report, nil
}

// coerce validates one element and converts it to a domain transaction.
func coerce(el rawTransaction) (domain.Transaction, error) {
	txnType, err := domain.ParseTransactionType(el.TransactionType)
	if err != nil {
		return domain.Transaction{}, err
	}

	quantity, err := parseDecimal(el.Quantity)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("quantity: %w", err)
	}
	amount, err := parseDecimal(el.AmountEuros)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("amount_euros: %w", err)
	}

	return domain.NewTransaction(el.Date, el.ISIN,
		transform.NormalizeProductName(el.ProductName), quantity, amount, txnType)
}

// parseDecimal accepts both JSON numbers and strings, with either "," or
// "." as the decimal separator, normalized to ".".
func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Decimal{}, fmt.Errorf("missing value")
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid string value: %w", err)
		}
	}

	d, err := decimal.NewFromString(transform.NormalizeDecimalSeparator(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("non-numeric value %q", s)
	}
	return d, nil
}

// extractArray returns the first balanced [...] substring of s, tolerating
// leading or trailing commentary around the array. String literals and
// escapes inside the array are respected.
func extractArray(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if start == -1 {
			if c == '[' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func truncate(s string) string {
	if len(s) <= snippetLimit {
		return s
	}
	return s[:snippetLimit] + "..."
}
