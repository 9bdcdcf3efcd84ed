// Package output serializes parse results to JSON or CSV, to a file or
// stdout.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format string from a flag or query parameter.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV:
		return Format(s), nil
	}
	return "", fmt.Errorf("invalid output format %q (must be json or csv)", s)
}

// WriteOptions configures how results are written.
type WriteOptions struct {
	Format   Format
	FilePath string // empty = stdout
}

// WriteResults writes results in the configured format. A single result is
// written as one JSON object; multiple results become an array. CSV output
// flattens all transactions across results into one table.
func WriteResults(results []*domain.ParseResult, opts WriteOptions) (err error) {
	if len(results) == 0 {
		return fmt.Errorf("no results to write")
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}

	w := io.Writer(os.Stdout)
	if opts.FilePath != "" {
		f, createErr := os.Create(opts.FilePath)
		if createErr != nil {
			return fmt.Errorf("failed to create output file %s: %w", opts.FilePath, createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close output file %s: %w", opts.FilePath, closeErr)
			}
		}()
		w = f
	}

	switch opts.Format {
	case FormatJSON:
		return writeJSON(results, w)
	case FormatCSV:
		return writeCSV(results, w)
	}
	return fmt.Errorf("invalid output format %q", opts.Format)
}

func writeJSON(results []*domain.ParseResult, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	var v interface{} = results
	if len(results) == 1 {
		v = results[0]
	}
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode results as JSON: %w", err)
	}
	return nil
}

// csvRow is one transaction flattened for spreadsheet import. Decimals are
// rendered as plain strings so no precision is lost.
type csvRow struct {
	PDFFilename     string `csv:"pdf_filename"`
	Date            string `csv:"date"`
	ISIN            string `csv:"isin"`
	ProductName     string `csv:"product_name"`
	Quantity        string `csv:"quantity"`
	AmountEuros     string `csv:"amount_euros"`
	TransactionType string `csv:"transaction_type"`
}

func writeCSV(results []*domain.ParseResult, w io.Writer) error {
	rows := make([]csvRow, 0)
	for _, result := range results {
		for _, txn := range result.Transactions {
			rows = append(rows, csvRow{
				PDFFilename:     result.SourceFilename,
				Date:            txn.Date,
				ISIN:            txn.ISIN,
				ProductName:     txn.ProductName,
				Quantity:        txn.Quantity.String(),
				AmountEuros:     txn.AmountEuros.String(),
				TransactionType: string(txn.TransactionType),
			})
		}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to encode results as CSV: %w", err)
	}
	return nil
}
