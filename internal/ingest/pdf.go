package ingest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText pulls whitespace-normalized plain text out of a PDF
// document, typically a scanned-to-PDF fixture inspection form attached as a
// unit annotation.
func ExtractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var sb bytes.Buffer
	if _, err := io.Copy(&sb, text); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return NormalizeText(sb.String()), nil
}
