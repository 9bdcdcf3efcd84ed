package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
)

func testResult(t *testing.T) *domain.ParseResult {
	t.Helper()

	txn, err := domain.NewTransaction("03 Feb 2025", "IE00B4L5Y983", "iShares Core MSCI World",
		decimal.RequireFromString("0.085178"), decimal.RequireFromString("52.00"), domain.TypeBuy)
	if err != nil {
		t.Fatalf("NewTransaction() error: %v", err)
	}

	return &domain.ParseResult{
		Transactions:     []domain.Transaction{txn},
		SourceFilename:   "feb.pdf",
		ParsedAt:         time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC),
		TransactionCount: 1,
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("json"); err != nil {
		t.Errorf("ParseFormat(json) error: %v", err)
	}
	if _, err := ParseFormat("csv"); err != nil {
		t.Errorf("ParseFormat(csv) error: %v", err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) succeeded, want error")
	}
}

func TestWriteResultsJSONSingle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	err := WriteResults([]*domain.ParseResult{testResult(t)}, WriteOptions{Format: FormatJSON, FilePath: path})
	if err != nil {
		t.Fatalf("WriteResults() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	// A single result is a JSON object, not a one-element array.
	var decoded domain.ParseResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not a single JSON object: %v", err)
	}
	if decoded.SourceFilename != "feb.pdf" {
		t.Errorf("pdf_filename = %q, want feb.pdf", decoded.SourceFilename)
	}
	if len(decoded.Transactions) != 1 {
		t.Fatalf("decoded %d transactions, want 1", len(decoded.Transactions))
	}
	if got := decoded.Transactions[0].Quantity; !got.Equal(decimal.RequireFromString("0.085178")) {
		t.Errorf("quantity = %s, want 0.085178", got)
	}
}

func TestWriteResultsJSONMultiple(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	results := []*domain.ParseResult{testResult(t), testResult(t)}
	if err := WriteResults(results, WriteOptions{Format: FormatJSON, FilePath: path}); err != nil {
		t.Fatalf("WriteResults() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var decoded []domain.ParseResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("decoded %d results, want 2", len(decoded))
	}
}

func TestWriteResultsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteResults([]*domain.ParseResult{testResult(t)}, WriteOptions{Format: FormatCSV, FilePath: path}); err != nil {
		t.Fatalf("WriteResults() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("CSV has %d lines, want header + 1 row", len(lines))
	}
	if !strings.Contains(lines[0], "isin") || !strings.Contains(lines[0], "amount_euros") {
		t.Errorf("CSV header %q missing expected columns", lines[0])
	}
	row := lines[1]
	for _, want := range []string{"feb.pdf", "IE00B4L5Y983", "0.085178", "52", "BUY"} {
		if !strings.Contains(row, want) {
			t.Errorf("CSV row %q missing %q", row, want)
		}
	}
}

func TestWriteResultsEmpty(t *testing.T) {
	if err := WriteResults(nil, WriteOptions{Format: FormatJSON}); err == nil {
		t.Error("WriteResults(nil) succeeded, want error")
	}
}
