package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
)

func txn(t *testing.T, isin, name, qty, amt string, typ domain.TransactionType) domain.Transaction {
	t.Helper()
	out, err := domain.NewTransaction("02 Sep 2025", isin, name,
		decimal.RequireFromString(qty), decimal.RequireFromString(amt), typ)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	return out
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	if len(got) != 0 {
		t.Errorf("Aggregate(nil) = %d groups, want 0", len(got))
	}
}

func TestAggregateSumsExactly(t *testing.T) {
	// Fractional share quantities must sum without binary floating point
	// drift: 0.085178 + 0.02 is exactly 0.105178.
	txns := []domain.Transaction{
		txn(t, "IE00B5BMR087", "iShares Core S&P 500", "0.085178", "50.00", domain.TypeBuy),
		txn(t, "IE00B5BMR087", "iShares Core S&P 500", "0.02", "12.00", domain.TypeBuy),
	}

	got := Aggregate(txns)
	if len(got) != 1 {
		t.Fatalf("got %d groups, want 1", len(got))
	}

	agg := got[0]
	if agg.TotalQuantity.String() != "0.105178" {
		t.Errorf("TotalQuantity = %s, want 0.105178", agg.TotalQuantity)
	}
	if !agg.TotalAmountEuros.Equal(decimal.RequireFromString("62.00")) {
		t.Errorf("TotalAmountEuros = %s, want 62.00", agg.TotalAmountEuros)
	}
	if agg.TransactionCount != 2 {
		t.Errorf("TransactionCount = %d, want 2", agg.TransactionCount)
	}
}

func TestAggregateKeysByISINAndType(t *testing.T) {
	txns := []domain.Transaction{
		txn(t, "IE00B5BMR087", "iShares Core S&P 500", "1", "10.00", domain.TypeBuy),
		txn(t, "IE00B5BMR087", "iShares Core S&P 500", "1", "11.00", domain.TypeSell),
		txn(t, "US92826C8394", "VISA", "0", "1.66", domain.TypeDividend),
		txn(t, "IE00B5BMR087", "iShares Core S&P 500", "1", "12.00", domain.TypeBuy),
	}

	got := Aggregate(txns)
	if len(got) != 3 {
		t.Fatalf("got %d groups, want 3 (BUY and SELL of same ISIN are distinct keys)", len(got))
	}

	// First-occurrence order of keys.
	wantOrder := []domain.TransactionType{domain.TypeBuy, domain.TypeSell, domain.TypeDividend}
	for i, want := range wantOrder {
		if got[i].TransactionType != want {
			t.Errorf("group %d type = %s, want %s", i, got[i].TransactionType, want)
		}
	}

	if got[0].TransactionCount != 2 {
		t.Errorf("BUY group count = %d, want 2", got[0].TransactionCount)
	}
	if !got[0].TotalAmountEuros.Equal(decimal.RequireFromString("22.00")) {
		t.Errorf("BUY group amount = %s, want 22.00", got[0].TotalAmountEuros)
	}
}

func TestAggregateProductNameFirstSeen(t *testing.T) {
	txns := []domain.Transaction{
		txn(t, "IE00B5BMR087", "First Name", "1", "10.00", domain.TypeBuy),
		txn(t, "IE00B5BMR087", "Renamed Fund", "1", "10.00", domain.TypeBuy),
	}

	got := Aggregate(txns)
	if len(got) != 1 {
		t.Fatalf("got %d groups, want 1", len(got))
	}
	if got[0].ProductName != "First Name" {
		t.Errorf("ProductName = %q, want first-seen value", got[0].ProductName)
	}
}

func TestAggregateManySmallItemsNoDrift(t *testing.T) {
	// 100 line items of 0.01 must sum to exactly 1, not 0.9999999...
	cent := decimal.RequireFromString("0.01")
	txns := make([]domain.Transaction, 0, 100)
	for i := 0; i < 100; i++ {
		txns = append(txns, txn(t, "IE00B5BMR087", "x", "0.01", "0.01", domain.TypeBuy))
	}

	got := Aggregate(txns)
	want := cent.Mul(decimal.NewFromInt(100))
	if !got[0].TotalAmountEuros.Equal(want) {
		t.Errorf("TotalAmountEuros = %s, want %s", got[0].TotalAmountEuros, want)
	}
	if !got[0].TotalQuantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("TotalQuantity = %s, want 1", got[0].TotalQuantity)
	}
}
