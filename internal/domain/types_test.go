package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TransactionType
		wantErr bool
	}{
		{name: "buy uppercase", input: "BUY", want: TypeBuy},
		{name: "sell lowercase", input: "sell", want: TypeSell},
		{name: "dividend mixed case", input: "Dividend", want: TypeDividend},
		{name: "surrounding whitespace", input: "  BUY  ", want: TypeBuy},
		{name: "unknown value", input: "TRANSFER", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTransactionType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTransactionType(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTransactionType(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTransactionType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidISIN(t *testing.T) {
	tests := []struct {
		name string
		isin string
		want bool
	}{
		{name: "standard ETF ISIN", isin: "IE00B5BMR087", want: true},
		{name: "US stock ISIN", isin: "US92826C8394", want: true},
		{name: "bitcoin placeholder", isin: BitcoinISIN, want: true},
		{name: "13 characters", isin: "IE00B5BMR0877", want: false},
		{name: "11 characters", isin: "IE00B5BMR08", want: false},
		{name: "lowercase letter in checksum position", isin: "IE00B5BMR08a", want: false},
		{name: "lowercase prefix", isin: "ie00B5BMR087", want: false},
		{name: "empty", isin: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidISIN(tt.isin); got != tt.want {
				t.Errorf("ValidISIN(%q) = %v, want %v", tt.isin, got, tt.want)
			}
		})
	}
}

func TestNewTransaction(t *testing.T) {
	qty := decimal.RequireFromString("0.085178")
	amt := decimal.RequireFromString("50.00")

	txn, err := NewTransaction("02 Sep 2025", "IE00B5BMR087", "iShares Core S&P 500", qty, amt, TypeBuy)
	if err != nil {
		t.Fatalf("NewTransaction() unexpected error: %v", err)
	}
	if !txn.Quantity.Equal(qty) {
		t.Errorf("Quantity = %s, want %s", txn.Quantity, qty)
	}

	invalid := []struct {
		name string
		fn   func() (Transaction, error)
	}{
		{"bad date", func() (Transaction, error) {
			return NewTransaction("Sepember 2", "IE00B5BMR087", "x", qty, amt, TypeBuy)
		}},
		{"bad isin", func() (Transaction, error) {
			return NewTransaction("02 Sep 2025", "NOPE", "x", qty, amt, TypeBuy)
		}},
		{"empty product name", func() (Transaction, error) {
			return NewTransaction("02 Sep 2025", "IE00B5BMR087", "  ", qty, amt, TypeBuy)
		}},
		{"negative quantity", func() (Transaction, error) {
			return NewTransaction("02 Sep 2025", "IE00B5BMR087", "x", decimal.RequireFromString("-1"), amt, TypeBuy)
		}},
		{"bad type", func() (Transaction, error) {
			return NewTransaction("02 Sep 2025", "IE00B5BMR087", "x", qty, amt, TransactionType("SWAP"))
		}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	// Fractional quantities must survive serialization exactly; a float64
	// round-trip would truncate values like 0.085178.
	txn, err := NewTransaction("02 Sep 2025", "IE00B5BMR087",
		"iShares VII plc - iShares Core S&P 500 UCITS ETF USD (Acc)",
		decimal.RequireFromString("0.085178"), decimal.RequireFromString("50.00"), TypeBuy)
	if err != nil {
		t.Fatalf("NewTransaction() error: %v", err)
	}

	data, err := json.Marshal(txn)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if got.Date != txn.Date || got.ISIN != txn.ISIN || got.ProductName != txn.ProductName {
		t.Errorf("round trip changed fields: got %+v, want %+v", got, txn)
	}
	if got.Quantity.String() != "0.085178" {
		t.Errorf("Quantity round trip = %s, want 0.085178", got.Quantity)
	}
	if got.AmountEuros.String() != "50" && got.AmountEuros.String() != "50.00" {
		t.Errorf("AmountEuros round trip = %s, want 50.00", got.AmountEuros)
	}
	if !got.AmountEuros.Equal(txn.AmountEuros) {
		t.Errorf("AmountEuros not equal after round trip: %s != %s", got.AmountEuros, txn.AmountEuros)
	}
}

func TestValidDate(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"02 Sep 2025", true},
		{"29 Sep 2025", true},
		{"2025-09-02", true},
		{"02/09/2025", false},
		{"32 Sep 2025", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidDate(tt.date); got != tt.want {
			t.Errorf("ValidDate(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}
