// Package domain defines the transaction types produced by the parsing pipeline.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed enumeration of supported transaction kinds.
// Use ParseTransactionType to normalize and validate raw values.
type TransactionType string

const (
	TypeBuy      TransactionType = "BUY"
	TypeSell     TransactionType = "SELL"
	TypeDividend TransactionType = "DIVIDEND"
)

var validTypes = map[TransactionType]struct{}{
	TypeBuy: {}, TypeSell: {}, TypeDividend: {},
}

// ParseTransactionType normalizes case and validates against the enum.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := validTypes[t]; !ok {
		return "", fmt.Errorf("invalid transaction type: %q (must be BUY, SELL, or DIVIDEND)", s)
	}
	return t, nil
}

// BitcoinISIN is the placeholder code the statement provider uses for
// Bitcoin positions. It is not a standards-conforming ISIN but is accepted
// as a documented exception.
const BitcoinISIN = "XF000BTC0017"

// isinPattern: two-letter prefix, nine alphanumerics, one check digit.
var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// ValidISIN reports whether s is a well-formed 12-character ISIN or the
// documented Bitcoin placeholder.
func ValidISIN(s string) bool {
	if s == BitcoinISIN {
		return true
	}
	return isinPattern.MatchString(s)
}

// Date layouts accepted for transaction dates. DateLayout matches the
// statement format ("02 Sep 2025"); ISO is accepted as a fallback.
const (
	DateLayout    = "02 Jan 2006"
	DateLayoutISO = "2006-01-02"
)

// ValidDate reports whether s parses as a calendar date in an accepted layout.
func ValidDate(s string) bool {
	if _, err := time.Parse(DateLayout, s); err == nil {
		return true
	}
	_, err := time.Parse(DateLayoutISO, s)
	return err == nil
}

// Transaction is a single validated financial transaction extracted from a
// statement. Treat as immutable once constructed.
type Transaction struct {
	Date            string          `json:"date"`
	ISIN            string          `json:"isin"`
	ProductName     string          `json:"product_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	AmountEuros     decimal.Decimal `json:"amount_euros"`
	TransactionType TransactionType `json:"transaction_type"`
}

// NewTransaction creates a validated transaction.
func NewTransaction(date, isin, productName string, quantity, amountEuros decimal.Decimal, txnType TransactionType) (Transaction, error) {
	t := Transaction{
		Date:            date,
		ISIN:            isin,
		ProductName:     productName,
		Quantity:        quantity,
		AmountEuros:     amountEuros,
		TransactionType: txnType,
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Validate checks all field-level invariants.
func (t Transaction) Validate() error {
	if !ValidDate(t.Date) {
		return fmt.Errorf("invalid date %q (expected %q or %q)", t.Date, DateLayout, DateLayoutISO)
	}
	if !ValidISIN(t.ISIN) {
		return fmt.Errorf("invalid ISIN: %q", t.ISIN)
	}
	if strings.TrimSpace(t.ProductName) == "" {
		return fmt.Errorf("product name cannot be empty")
	}
	if t.Quantity.IsNegative() {
		return fmt.Errorf("quantity cannot be negative: %s", t.Quantity)
	}
	if _, ok := validTypes[t.TransactionType]; !ok {
		return fmt.Errorf("invalid transaction type: %q", t.TransactionType)
	}
	return nil
}

// AggregatedTransaction summarizes all transactions sharing an
// (ISIN, transaction type) key. Sums are exact decimal sums of the
// contributing transactions.
type AggregatedTransaction struct {
	ISIN             string          `json:"isin"`
	ProductName      string          `json:"product_name"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	TotalAmountEuros decimal.Decimal `json:"total_amount_euros"`
	TransactionType  TransactionType `json:"transaction_type"`
	TransactionCount int             `json:"transaction_count"`
}

// ParseResult is the caller-facing output of a full pipeline run.
// Transactions preserve the order the model emitted them; Aggregated (when
// requested) is in first-occurrence key order. DroppedCount reports how many
// elements the validator rejected, the caller's signal for output-quality
// degradation.
type ParseResult struct {
	Transactions     []Transaction           `json:"transactions"`
	Aggregated       []AggregatedTransaction `json:"aggregated,omitempty"`
	SourceFilename   string                  `json:"pdf_filename"`
	ParsedAt         time.Time               `json:"parsed_at"`
	TransactionCount int                     `json:"total_transactions"`
	DroppedCount     int                     `json:"dropped_count"`
}

// CacheEntry is a persisted parse result keyed by the content digest of the
// source PDF. Entries are never mutated after creation.
type CacheEntry struct {
	Digest    string      `json:"digest"`
	Result    ParseResult `json:"result"`
	CreatedAt time.Time   `json:"created_at"`
}
