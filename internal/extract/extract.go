// Package extract converts PDF byte streams into plain text for prompting.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Kind classifies extraction failures.
type Kind int

const (
	// KindInvalidPDF means the bytes are not a readable PDF document.
	KindInvalidPDF Kind = iota
	// KindEncrypted means the document is password-protected.
	KindEncrypted
	// KindNoText means no page yielded extractable text (e.g. a scanned
	// image-only statement; OCR is out of scope).
	KindNoText
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPDF:
		return "invalid_pdf"
	case KindEncrypted:
		return "encrypted"
	case KindNoText:
		return "no_text"
	}
	return "unknown"
}

// Error is a typed extraction failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Extractor converts document bytes into a single text blob.
type Extractor interface {
	Extract(pdfBytes []byte) (string, error)
}

// PDFExtractor extracts per-page text from PDF bytes. Stateless and safe
// for concurrent use.
type PDFExtractor struct{}

// NewPDFExtractor returns a PDF text extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the text of every page, joined with page-boundary markers
// so downstream prompts can reference page context. Pages without
// extractable text are skipped; a document where every page is empty fails
// with KindNoText.
func (e *PDFExtractor) Extract(pdfBytes []byte) (text string, err error) {
	// The pdf library panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &Error{Kind: KindInvalidPDF, Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return "", &Error{Kind: readerKind(err), Err: err}
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i, content))
	}

	if len(pages) == 0 {
		return "", &Error{Kind: KindNoText, Err: fmt.Errorf("no extractable text across %d pages", reader.NumPage())}
	}

	return strings.Join(pages, "\n\n"), nil
}

// readerKind classifies reader-open failures. The pdf library reports
// password protection only through its error text.
func readerKind(err error) Kind {
	if strings.Contains(strings.ToLower(err.Error()), "encrypted") {
		return KindEncrypted
	}
	return KindInvalidPDF
}
