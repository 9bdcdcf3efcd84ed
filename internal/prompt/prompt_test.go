package prompt

import (
	"strings"
	"testing"
)

func TestInstructionIsConstant(t *testing.T) {
	a := Instruction()
	b := Instruction()
	if a != b {
		t.Error("Instruction() is not byte-identical across calls")
	}
	if a == "" {
		t.Fatal("Instruction() returned empty string")
	}

	// The instruction must spell out the schema and the enum regardless of
	// any document content.
	for _, want := range []string{"date", "isin", "product_name", "quantity", "amount_euros", "transaction_type", "BUY", "SELL", "DIVIDEND", "XF000BTC0017", "JSON array"} {
		if !strings.Contains(a, want) {
			t.Errorf("Instruction() missing %q", want)
		}
	}
}

func TestDataIsDeterministic(t *testing.T) {
	text := "--- Page 1 ---\n02 Sep 2025 Trade Savings plan execution IE00B5BMR087"

	a := Data(text)
	b := Data(text)
	if a != b {
		t.Error("Data() is not deterministic for identical input")
	}
	if !strings.Contains(a, text) {
		t.Error("Data() must embed the extracted text verbatim")
	}
}

func TestInstructionIndependentOfData(t *testing.T) {
	before := Instruction()
	_ = Data("some statement text")
	after := Instruction()
	if before != after {
		t.Error("Instruction() changed after building a data prompt")
	}
	if strings.Contains(before, "some statement text") {
		t.Error("instruction prompt must not contain document text")
	}
}
