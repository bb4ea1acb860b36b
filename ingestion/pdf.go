package ingestion

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/pdfchat/core"
)

// pdfMagic opens every PDF file.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether header starts with the PDF magic bytes.
func IsPDF(header []byte) bool {
	return bytes.HasPrefix(header, pdfMagic)
}

// ExtractPages reads the plain text of every page of the PDF at path.
// Pages are numbered from 1; pages without text are skipped.
// Parser failures, including panics inside the parser, wrap ErrMalformedDocument.
func ExtractPages(path string) (pages []core.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages = make([]core.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrMalformedDocument, i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, core.Page{Number: i, Text: text})
	}
	return pages, nil
}
