package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

type fakeSource struct {
	pages   [][]string
	failAt  int
	visited []int
}

func (f *fakeSource) NumPage() int { return len(f.pages) }

func (f *fakeSource) PageFragments(page int) ([]string, error) {
	f.visited = append(f.visited, page)
	if page == f.failAt {
		return nil, errors.New("bad page")
	}
	return f.pages[page-1], nil
}

type fakeParser struct {
	src     *fakeSource
	openErr error
}

func (p fakeParser) Open(data []byte) (PageSource, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.src, nil
}

func TestExtractDocumentText_JoinsFragmentsAndPages(t *testing.T) {
	src := &fakeSource{pages: [][]string{
		{"Quarterly", "report"},
		{},
		{"Revenue", "grew", "12%"},
	}}

	got, err := ExtractDocumentText(context.Background(), fakeParser{src: src}, pdfHeader)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "Quarterly report\n\nRevenue grew 12%"
	if got != want {
		t.Fatalf("unexpected text:\n got %q\nwant %q", got, want)
	}
	if len(src.visited) != 3 || src.visited[0] != 1 || src.visited[2] != 3 {
		t.Fatalf("pages should be visited 1..N in order, got %v", src.visited)
	}
}

func TestExtractDocumentText_ZeroPages(t *testing.T) {
	got, err := ExtractDocumentText(context.Background(), fakeParser{src: &fakeSource{}}, pdfHeader)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestExtractDocumentText_PageErrorAbandons(t *testing.T) {
	src := &fakeSource{pages: [][]string{{"a"}, {"b"}, {"c"}}, failAt: 2}

	_, err := ExtractDocumentText(context.Background(), fakeParser{src: src}, pdfHeader)
	if err == nil {
		t.Fatal("expected page error")
	}
	if !strings.Contains(err.Error(), "read page 2/3") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.visited) != 2 {
		t.Fatalf("extraction should stop at the failing page, visited %v", src.visited)
	}
}

func TestExtractDocumentText_OpenError(t *testing.T) {
	_, err := ExtractDocumentText(context.Background(), fakeParser{openErr: errors.New("xref")}, pdfHeader)
	if err == nil || !strings.Contains(err.Error(), "open pdf: xref") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractDocumentText_RejectsNonPDFPayload(t *testing.T) {
	_, err := ExtractDocumentText(context.Background(), fakeParser{src: &fakeSource{}}, []byte("hello world"))
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestExtractDocumentText_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExtractDocumentText(ctx, fakeParser{src: &fakeSource{pages: [][]string{{"a"}}}}, pdfHeader)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPDFParser_DamagedInputReturnsError(t *testing.T) {
	data := append(append([]byte{}, pdfHeader...), []byte("1 0 obj << /Type /Catalog >> endobj\n")...)
	if _, err := (PDFParser{}).Open(data); err == nil {
		t.Fatal("expected error for a PDF without a cross-reference table")
	}
}

func TestExtractTextFromBytes_TwoPageDocument(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "two_pages.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ExtractTextFromBytes(context.Background(), data, "application/pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if want := "Hello world Second line\nPage two"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractTextFromBytes_RejectsDeclaredType(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), pdfHeader, "text/plain; charset=utf-8")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "text/plain") {
		t.Fatalf("error should name the normalized type: %v", err)
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{mime: "application/pdf", want: true},
		{mime: "Application/PDF", want: true},
		{mime: "application/pdf; name=report.pdf", want: true},
		{mime: " application/pdf ", want: true},
		{mime: "application/octet-stream", want: false},
		{mime: "text/plain", want: false},
		{mime: "", want: false},
	}
	for _, tt := range tests {
		if got := IsPDF(tt.mime); got != tt.want {
			t.Fatalf("IsPDF(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}
