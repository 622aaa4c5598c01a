package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/tieubaoca/pdf-quizbot/types"
)

// ErrMalformedDocument is returned when the bytes cannot be parsed as a PDF.
var ErrMalformedDocument = errors.New("malformed PDF document")

// PDFService turns PDF bytes into normalized plain text.
// It holds no per-call state and is safe for concurrent use.
type PDFService struct {
	log *zap.Logger
}

// NewPDFService creates a new PDF service. A nil logger disables logging.
func NewPDFService(log *zap.Logger) *PDFService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFService{log: log}
}

// Extract returns the whitespace-normalized text of every page, in page order.
// Pages that yield no text contribute nothing; only a document that cannot be
// parsed at all is an error.
func (s *PDFService) Extract(data []byte) (string, error) {
	res, err := s.ExtractDetailed(data)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// ExtractDetailed is Extract plus page statistics.
func (s *PDFService) ExtractDetailed(data []byte) (*types.Extraction, error) {
	r, err := openReader(data)
	if err != nil {
		return nil, err
	}

	totalPages := r.NumPage()
	res := &types.Extraction{Pages: totalPages}

	var sb strings.Builder
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		text, err := extractPage(r, pageNum)
		if err != nil {
			s.log.Debug("page text extraction failed", zap.Int("page", pageNum), zap.Error(err))
		}
		if strings.TrimSpace(text) == "" {
			res.EmptyPages = append(res.EmptyPages, pageNum)
		}
		sb.WriteString(text)
	}

	res.Text = NormalizeWhitespace(sb.String())
	if len(res.EmptyPages) > 0 {
		s.log.Info("pages without text",
			zap.Int("pages", totalPages),
			zap.Ints("empty_pages", res.EmptyPages),
		)
	}
	return res, nil
}

// NormalizeWhitespace collapses every run of whitespace into a single space and
// trims both ends.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// openReader parses the document structure. The parser panics on some
// corrupt inputs, so panics are converted to ErrMalformedDocument.
func openReader(data []byte) (r *pdf.Reader, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedDocument)
	}
	defer func() {
		if p := recover(); p != nil {
			r = nil
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, p)
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return r, nil
}

// extractPage returns the page text in content-stream order with a newline
// wherever the baseline moves, so words on adjacent lines stay apart.
func extractPage(r *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = fmt.Errorf("page %d: %v", pageNum, p)
		}
	}()

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: not found", pageNum)
	}

	var sb strings.Builder
	glyphs := page.Content().Text
	for i, g := range glyphs {
		if i > 0 && g.Y != glyphs[i-1].Y {
			sb.WriteByte('\n')
		}
		sb.WriteString(g.S)
	}
	return sb.String(), nil
}
