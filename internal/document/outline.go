package document

import (
	"strconv"
	"strings"
)

// OutlineNode is a chapter or section recovered from a document's layout.
// Depth 0 is a chapter; the root node returned for a structured document sits
// above its chapters with depth -1 and spans every span. Span ranges are
// half-open [Start, End) indices into the document's span sequence: siblings
// are ordered and non-overlapping, and a parent's range contains the union of
// its children's ranges.
type OutlineNode struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Depth int     `json:"depth"`
	Score float64 `json:"score"` // heading-classification confidence, 0 for synthetic nodes

	Start int `json:"start"`
	End   int `json:"end"`

	// HeadingSpan is the index of the span that carries this node's title,
	// or -1 for synthetic nodes.
	HeadingSpan int `json:"-"`

	Parent   *OutlineNode   `json:"-"`
	Children []*OutlineNode `json:"children,omitempty"`
}

// AssignIDs gives every node a stable path-index ID ("root", "0", "0.2", ...).
func AssignIDs(root *OutlineNode) {
	root.ID = "root"
	var walk func(n *OutlineNode, prefix string)
	walk = func(n *OutlineNode, prefix string) {
		for i, c := range n.Children {
			if prefix == "" {
				c.ID = strconv.Itoa(i)
			} else {
				c.ID = prefix + "." + strconv.Itoa(i)
			}
			walk(c, c.ID)
		}
	}
	walk(root, "")
}

// FindNode looks up a node by ID within root's subtree. Returns nil if absent.
func FindNode(root *OutlineNode, id string) *OutlineNode {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, c := range root.Children {
		if n := FindNode(c, id); n != nil {
			return n
		}
	}
	return nil
}

// Breadcrumb returns the titled ancestry of a node, outermost first,
// excluding the document root and untitled synthetic nodes.
func Breadcrumb(n *OutlineNode) []string {
	var titles []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		if cur.Title != "" {
			titles = append([]string{cur.Title}, titles...)
		}
	}
	return titles
}

// RegionText joins the body text of every span in the node's range, skipping
// the heading spans of the node and its descendants. Spans are separated by
// blank lines, matching the paragraph boundaries the chunker splits on.
func RegionText(doc *Document, node *OutlineNode) string {
	headings := make(map[int]bool)
	var mark func(n *OutlineNode)
	mark = func(n *OutlineNode) {
		if n.HeadingSpan >= 0 {
			headings[n.HeadingSpan] = true
		}
		for _, c := range n.Children {
			mark(c)
		}
	}
	mark(node)

	var sb strings.Builder
	for i := node.Start; i < node.End && i < len(doc.Spans); i++ {
		if headings[i] {
			continue
		}
		t := strings.TrimSpace(doc.Spans[i].Text)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(t)
	}
	return sb.String()
}
