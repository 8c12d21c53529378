package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

var (
	// ErrNotPDF is returned when the payload does not sniff as a PDF even
	// though its declared type claimed it was one.
	ErrNotPDF = errors.New("payload is not a PDF document")
	// ErrUnsupported is returned for a declared type other than PDF.
	ErrUnsupported = errors.New("unsupported mime type")
)

// PageSource exposes the text of an opened document page by page.
// Page indices are 1-based.
type PageSource interface {
	NumPage() int
	PageFragments(page int) ([]string, error)
}

// Parser opens raw document bytes.
type Parser interface {
	Open(data []byte) (PageSource, error)
}

// IsPDF reports whether a declared MIME type names a PDF.
func IsPDF(mimeType string) bool {
	return normalizeMimeType(mimeType) == mimePDF
}

// ExtractDocumentText walks every page in order and returns the page texts
// joined by newlines. A page's text is its fragments joined by single spaces.
func ExtractDocumentText(ctx context.Context, parser Parser, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !mimetype.Detect(data).Is(mimePDF) {
		return "", ErrNotPDF
	}

	doc, err := parser.Open(data)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	total := doc.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fragments, err := doc.PageFragments(i)
		if err != nil {
			return "", fmt.Errorf("read page %d/%d: %w", i, total, err)
		}
		pages = append(pages, strings.Join(fragments, " "))
	}
	return strings.Join(pages, "\n"), nil
}

// ExtractTextFromBytes extracts text from an in-memory payload with the
// production parser after checking the declared type.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !IsPDF(mimeType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, normalizeMimeType(mimeType))
	}
	return ExtractDocumentText(ctx, PDFParser{}, data)
}

// PDFParser reads PDFs with github.com/ledongthuc/pdf.
type PDFParser struct{}

// Open parses the cross-reference table of data.
func (PDFParser) Open(data []byte) (src PageSource, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			src, err = nil, fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return pdfSource{reader: reader}, nil
}

type pdfSource struct {
	reader *pdf.Reader
}

func (s pdfSource) NumPage() int {
	return s.reader.NumPage()
}

// PageFragments returns one fragment per shown text run, rows top to bottom.
func (s pdfSource) PageFragments(page int) (fragments []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			fragments, err = nil, fmt.Errorf("pdf parser panic on page %d: %v", page, rec)
		}
	}()
	p := s.reader.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		for _, text := range row.Content {
			// Td moves emit empty items.
			if strings.TrimSpace(text.S) == "" {
				continue
			}
			fragments = append(fragments, text.S)
		}
	}
	return fragments, nil
}

func normalizeMimeType(mimeType string) string {
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		return strings.ToLower(parsed)
	}
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}
