package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/diomir0/idlearn/internal/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. ATX/setext headings
// become heading spans carrying their level; other blocks become body spans.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (string, []document.Span, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	title := baseTitle(filename)

	var spans []document.Span
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			t := string(node.Text(src))
			if t == "" {
				continue
			}
			// First h1 doubles as the document title.
			if node.Level == 1 && len(spans) == 0 {
				title = t
			}
			spans = append(spans, document.Span{
				Text:    t,
				Heading: node.Level,
			})
		default:
			t := extractText(n, src)
			if t != "" {
				spans = append(spans, document.Span{Text: t})
			}
		}
	}

	return title, spans, nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	// Also handle inline children.
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			// Recurse for nested inlines.
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
