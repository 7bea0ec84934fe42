package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/diomir0/idlearn/internal/document"
)

// TextParser handles plain text files. Each blank-line-separated paragraph
// becomes one span; structure detection is left to the heading scorer.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (string, []document.Span, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var spans []document.Span
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			spans = append(spans, document.Span{Text: current.String()})
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return "", nil, err
	}

	return baseTitle(filename), spans, nil
}
