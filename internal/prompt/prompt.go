// Package prompt builds the two-part prompt sent to the inference backend.
//
// The instruction prompt is a byte-identical constant on every call; it is
// the unit the inference provider can cache server-side. The data prompt
// varies per document. The two must never be interleaved into one string or
// cache eligibility is lost.
package prompt

import (
	_ "embed"
	"fmt"
)

//go:embed instruction.txt
var instructionTemplate string

const dataHeader = "Parse the following bank statement text and return the transactions as a JSON array following the format specified in the system instructions."

// Instruction returns the constant extraction instructions: output schema,
// transaction-type enum, ISIN rules including the Bitcoin placeholder, and
// numeric formatting rules.
func Instruction() string {
	return instructionTemplate
}

// Data wraps extracted statement text in the per-document prompt.
// Deterministic: identical input text yields an identical prompt.
func Data(extractedText string) string {
	return fmt.Sprintf("%s\n\n%s", dataHeader, extractedText)
}
