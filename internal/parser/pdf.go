package parser

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"

	"github.com/diomir0/idlearn/internal/document"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It tries the Go library first, which keeps
// font size and boldness per span for heading detection, then falls back to
// pdftotext (plain text, no style hints) if available.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (string, []document.Span, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "idlearn-pdf-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	spans, err := extractPDFSpans(tmpPath)
	if err != nil && p.FallbackPdftotext {
		spans, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return "", nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return baseTitle(filename), spans, nil
}

// pdfLine is one visual line of text, accumulated from positioned fragments.
type pdfLine struct {
	text     strings.Builder
	fontSize float64
	bold     bool
	y        float64
	page     int
}

func extractPDFSpans(path string) ([]document.Span, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []*pdfLine
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()

		var cur *pdfLine
		for _, t := range content.Text {
			if t.S == "" {
				continue
			}
			// A Y shift starts a new line.
			if cur == nil || math.Abs(t.Y-cur.y) > 0.5 {
				if cur != nil {
					lines = append(lines, cur)
				}
				cur = &pdfLine{y: t.Y, page: i}
			}
			cur.text.WriteString(t.S)
			if t.FontSize > cur.fontSize {
				cur.fontSize = t.FontSize
			}
			if strings.Contains(t.Font, "Bold") {
				cur.bold = true
			}
		}
		if cur != nil {
			lines = append(lines, cur)
		}
	}

	return mergeLines(lines), nil
}

// mergeLines joins consecutive same-style lines into spans, repairing
// end-of-line hyphenation and ligature glyphs along the way.
func mergeLines(lines []*pdfLine) []document.Span {
	var spans []document.Span
	var cur *document.Span
	var buf strings.Builder

	flush := func() {
		if cur == nil {
			return
		}
		text := strings.TrimSpace(repairGlyphs(buf.String()))
		if text != "" {
			cur.Text = text
			spans = append(spans, *cur)
		}
		cur = nil
		buf.Reset()
	}

	for _, line := range lines {
		t := strings.TrimSpace(line.text.String())
		if t == "" {
			flush()
			continue
		}
		size := math.Round(line.fontSize*2) / 2
		if cur != nil && (cur.FontSize != size || cur.Bold != line.bold || cur.Page != line.page) {
			flush()
		}
		if cur == nil {
			cur = &document.Span{FontSize: size, Bold: line.bold, Page: line.page}
		} else {
			prev := buf.String()
			if strings.HasSuffix(prev, "-") && startsLower(t) {
				// Re-join a word split across lines.
				trimmed := strings.TrimSuffix(prev, "-")
				buf.Reset()
				buf.WriteString(trimmed)
			} else {
				buf.WriteString(" ")
			}
		}
		buf.WriteString(t)
	}
	flush()

	return spans
}

func startsLower(s string) bool {
	for _, r := range s {
		return r >= 'a' && r <= 'z'
	}
	return false
}

var ligatureReplacer = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"­", "", // soft hyphen
)

func repairGlyphs(s string) string {
	return ligatureReplacer.Replace(s)
}

// extractPdftotext shells out to pdftotext. The result has no style hints,
// so spans are plain paragraphs with page numbers from form feeds.
func extractPdftotext(path string) ([]document.Span, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	var spans []document.Span
	for i, page := range strings.Split(string(out), "\f") {
		for _, para := range strings.Split(page, "\n\n") {
			para = strings.TrimSpace(repairGlyphs(para))
			if para == "" {
				continue
			}
			spans = append(spans, document.Span{Text: para, Page: i + 1})
		}
	}
	return spans, nil
}
