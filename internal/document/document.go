package document

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Span is one extracted text unit (a paragraph or a heading line) with the
// layout hints the parsers could recover for it.
type Span struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size,omitempty"` // 0 when the format carries no size info
	Bold     bool    `json:"bold,omitempty"`
	Page     int     `json:"page,omitempty"` // source page, 0 if N/A
	Heading  int     `json:"heading,omitempty"` // explicit markup heading level (1-6), 0 for body text
}

// Document is an extracted source file: an ordered, immutable span sequence.
type Document struct {
	ID        string    `json:"doc_id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	Spans     []Span    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentID derives a stable document ID from the extracted text.
func ContentID(spans []Span) string {
	h := sha256.New()
	for _, s := range spans {
		h.Write([]byte(s.Text))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
