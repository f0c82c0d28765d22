package service

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
)

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
)

// TextExtractor converts a downloaded file into plain text based on its
// declared MIME type. The caller owns the temp-file lifecycle.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(path, mimeType string) (string, error) {
	switch normalizeMime(mimeType) {
	case MimePDF:
		return e.extractPDF(path)
	case MimeDOCX:
		return e.extractDOCX(path)
	case MimeText, MimeMarkdown:
		return e.extractText(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}

// PageCount reports the number of pages for paginated formats. Non-paginated
// formats count as a single page.
func (e *TextExtractor) PageCount(path, mimeType string) (int, error) {
	if normalizeMime(mimeType) != MimePDF {
		return 1, nil
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: open pdf: %v", ErrExtraction, err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// extractPDF concatenates per-page text in page order, pages separated by a
// blank line. Image-only pages yield empty text, which is not an error.
func (e *TextExtractor) extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrExtraction, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDOCX concatenates paragraph text in document order, blank-line
// separated. Tables and images are not extracted.
func (e *TextExtractor) extractDOCX(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %v", ErrExtraction, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat docx: %v", ErrExtraction, err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("%w: parse docx: %v", ErrExtraction, err)
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			paragraphs = append(paragraphs, p.String())
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func (e *TextExtractor) extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read file: %v", ErrExtraction, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: file is not valid UTF-8", ErrExtraction)
	}
	return string(data), nil
}

// normalizeMime drops media-type parameters like "; charset=utf-8".
func normalizeMime(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(strings.ToLower(mimeType))
}
