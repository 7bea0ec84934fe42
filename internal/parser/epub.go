package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diomir0/idlearn/internal/document"
	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// EPUBParser handles EPUB files. Each spine chapter is parsed as XHTML and
// contributes heading and body spans; the chapter index stands in for the
// page number since EPUBs have no fixed pagination.
type EPUBParser struct{}

func (p *EPUBParser) Parse(r io.Reader, filename string) (string, []document.Span, error) {
	// goreader opens by path, so write to a temp file.
	tmp, err := os.CreateTemp("", "idlearn-epub-*.epub")
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

	rc, err := epub.OpenReader(tmpPath)
	if err != nil {
		return "", nil, fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return "", nil, fmt.Errorf("no rootfiles found in epub")
	}
	book := rc.Rootfiles[0]

	title := ""
	var spans []document.Span

	for i, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		chapter, err := ref.Item.Open()
		if err != nil {
			continue
		}
		doc, err := html.Parse(chapter)
		chapter.Close()
		if err != nil {
			continue
		}
		if title == "" {
			title = findTitle(doc)
		}
		body := findBody(doc)
		if body == nil {
			body = doc
		}
		spans = append(spans, collectHTMLSpans(body, i+1)...)
	}

	if title == "" {
		title = baseTitle(filename)
	}

	// Drop leading front-matter spans that are just whitespace noise.
	for len(spans) > 0 && strings.TrimSpace(spans[0].Text) == "" {
		spans = spans[1:]
	}

	return title, spans, nil
}
