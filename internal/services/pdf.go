package services

import (
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionError reports a document that could not be read as a PDF. It
// aborts the triggering action only; session state stays untouched.
type ExtractionError struct {
	Name string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return "extract text from " + e.Name + ": " + e.Err.Error()
	}
	return "extract text from " + e.Name + ": document contains no extractable text"
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PDFService turns uploaded PDF bytes into plain text. It is stateless.
type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// ExtractText returns the concatenated per-page text in page order, joined
// by newlines. Individual pages that fail to yield text are skipped; a
// document with no readable text at all is an ExtractionError. The byte
// buffer is not retained.
func (s *PDFService) ExtractText(name string, r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", &ExtractionError{Name: name, Err: err}
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", &ExtractionError{Name: name}
	}
	return strings.Join(pages, "\n"), nil
}
