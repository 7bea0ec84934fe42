// Package outline recovers a navigable chapter/section hierarchy from the
// flat span sequence a parser produced. Heading detection is heuristic by
// nature: it degrades to a flat or single-node outline rather than failing.
package outline

import (
	"errors"
	"strings"

	"github.com/diomir0/idlearn/internal/document"
)

// ErrNoSpans reports a document with nothing to structure. It is the only
// failure mode of extraction.
var ErrNoSpans = errors.New("document has no text spans")

// Extract builds the outline tree for a document. The returned root spans
// every span; chapters are its depth-0 children. When no heading candidates
// are found the root itself is the single depth-0 region covering the whole
// document.
func Extract(doc *document.Document) (*document.OutlineNode, error) {
	if len(doc.Spans) == 0 {
		return nil, ErrNoSpans
	}

	title := doc.Title
	if title == "" {
		title = "Document"
	}

	cands := Classify(doc)
	if len(cands) == 0 {
		root := &document.OutlineNode{
			Title:       title,
			Depth:       0,
			Start:       0,
			End:         len(doc.Spans),
			HeadingSpan: -1,
		}
		document.AssignIDs(root)
		return root, nil
	}

	root := &document.OutlineNode{
		Title:       title,
		Depth:       -1,
		Start:       0,
		End:         len(doc.Spans),
		HeadingSpan: -1,
	}
	stack := []*document.OutlineNode{root}
	top := func() *document.OutlineNode { return stack[len(stack)-1] }

	for _, c := range cands {
		// Close every open node at this level or deeper.
		for len(stack) > 1 && top().Depth >= c.Level {
			top().End = c.Span
			stack = stack[:len(stack)-1]
		}
		// A level skip (chapter straight to sub-subsection) gets untitled
		// intermediate nodes rather than a rejected heading.
		for top().Depth < c.Level-1 {
			syn := &document.OutlineNode{
				Depth:       top().Depth + 1,
				Start:       c.Span,
				HeadingSpan: -1,
				Parent:      top(),
			}
			top().Children = append(top().Children, syn)
			stack = append(stack, syn)
		}
		node := &document.OutlineNode{
			Title:       strings.TrimSpace(doc.Spans[c.Span].Text),
			Depth:       c.Level,
			Score:       c.Score,
			Start:       c.Span,
			HeadingSpan: c.Span,
			Parent:      top(),
		}
		top().Children = append(top().Children, node)
		stack = append(stack, node)
	}

	for len(stack) > 0 {
		top().End = len(doc.Spans)
		stack = stack[:len(stack)-1]
	}

	document.AssignIDs(root)
	return root, nil
}
