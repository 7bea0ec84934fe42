package outline

import (
	"errors"
	"strings"
	"testing"

	"github.com/diomir0/idlearn/internal/document"
)

func bodySpan(text string) document.Span {
	return document.Span{Text: text, FontSize: 12}
}

func headingSpan(text string, size float64) document.Span {
	return document.Span{Text: text, FontSize: size, Bold: true}
}

func pdfStyleDoc() *document.Document {
	body := strings.Repeat("Plain body text explaining the topic in unremarkable prose. ", 5)
	return &document.Document{
		Title: "Sample Paper",
		Spans: []document.Span{
			headingSpan("Introduction", 24),
			bodySpan(body),
			bodySpan(body),
			headingSpan("Methodology", 24),
			bodySpan(body),
			headingSpan("Results", 24),
			bodySpan(body),
			bodySpan(body),
		},
	}
}

func TestExtract_NoSpans(t *testing.T) {
	_, err := Extract(&document.Document{Title: "Empty"})
	if !errors.Is(err, ErrNoSpans) {
		t.Fatalf("expected ErrNoSpans, got %v", err)
	}
}

func TestExtract_FontSizeHeadings(t *testing.T) {
	doc := pdfStyleDoc()
	root, err := Extract(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if root.Depth != -1 {
		t.Errorf("structured root: expected depth -1, got %d", root.Depth)
	}
	if root.ID != "root" {
		t.Errorf("expected root ID %q, got %q", "root", root.ID)
	}
	if len(root.Children) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(root.Children))
	}

	wantTitles := []string{"Introduction", "Methodology", "Results"}
	for i, c := range root.Children {
		if c.Title != wantTitles[i] {
			t.Errorf("chapter %d: expected title %q, got %q", i, wantTitles[i], c.Title)
		}
		if c.Depth != 0 {
			t.Errorf("chapter %d: expected depth 0, got %d", i, c.Depth)
		}
	}

	// Chapter ranges partition [0, len(spans)) without overlap.
	wantRanges := [][2]int{{0, 3}, {3, 5}, {5, 8}}
	for i, c := range root.Children {
		if c.Start != wantRanges[i][0] || c.End != wantRanges[i][1] {
			t.Errorf("chapter %d: expected range [%d,%d), got [%d,%d)",
				i, wantRanges[i][0], wantRanges[i][1], c.Start, c.End)
		}
	}
}

func TestExtract_InvariantsHold(t *testing.T) {
	doc := pdfStyleDoc()
	root, err := Extract(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var check func(n *document.OutlineNode)
	check = func(n *document.OutlineNode) {
		for i, c := range n.Children {
			if c.Start < n.Start || c.End > n.End {
				t.Errorf("node %q: child %q range [%d,%d) escapes parent [%d,%d)",
					n.ID, c.ID, c.Start, c.End, n.Start, n.End)
			}
			if i > 0 {
				prev := n.Children[i-1]
				if c.Start < prev.End {
					t.Errorf("node %q: siblings %q and %q overlap", n.ID, prev.ID, c.ID)
				}
			}
			if c.Parent != n {
				t.Errorf("child %q has wrong parent", c.ID)
			}
			check(c)
		}
	}
	check(root)
}

func TestExtract_NoCandidatesSingleRoot(t *testing.T) {
	long := strings.Repeat("A long paragraph of plain narrative text without any heading signal whatsoever, ", 5)
	doc := &document.Document{
		Title: "Flat Notes",
		Spans: []document.Span{
			bodySpan(long),
			bodySpan(long),
			bodySpan(long),
		},
	}
	root, err := Extract(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Depth != 0 {
		t.Errorf("unstructured root: expected depth 0, got %d", root.Depth)
	}
	if len(root.Children) != 0 {
		t.Errorf("expected no children, got %d", len(root.Children))
	}
	if root.Start != 0 || root.End != 3 {
		t.Errorf("expected root to span all spans, got [%d,%d)", root.Start, root.End)
	}
	if root.Title != "Flat Notes" {
		t.Errorf("expected document title on root, got %q", root.Title)
	}
}

func TestExtract_SkippedLevelSynthesizesIntermediate(t *testing.T) {
	body := strings.Repeat("Body paragraph content that carries no heading signal at all here. ", 4)
	doc := &document.Document{
		Title: "Skipped",
		Spans: []document.Span{
			{Text: "Chapter One", Heading: 1},
			{Text: body},
			{Text: "Deep Detail", Heading: 3},
			{Text: body},
		},
	}
	root, err := Extract(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(root.Children))
	}
	ch := root.Children[0]
	if ch.Title != "Chapter One" || ch.Depth != 0 {
		t.Fatalf("unexpected chapter %q depth %d", ch.Title, ch.Depth)
	}
	if len(ch.Children) != 1 {
		t.Fatalf("expected synthetic intermediate, got %d children", len(ch.Children))
	}
	mid := ch.Children[0]
	if mid.Title != "" || mid.Depth != 1 {
		t.Errorf("expected untitled depth-1 intermediate, got %q depth %d", mid.Title, mid.Depth)
	}
	if len(mid.Children) != 1 || mid.Children[0].Title != "Deep Detail" || mid.Children[0].Depth != 2 {
		t.Errorf("expected Deep Detail at depth 2 under the intermediate")
	}
}

func TestClassify_ExplicitHeadingsAlwaysQualify(t *testing.T) {
	doc := &document.Document{
		Spans: []document.Span{
			{Text: "x", Heading: 2}, // too short to score, but explicit
			{Text: "Regular paragraph text that should never qualify as a heading in this layout."},
		},
	}
	cands := Classify(doc)
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Span != 0 {
		t.Errorf("expected span 0 as candidate, got %d", cands[0].Span)
	}
}

func TestClassify_NumberedPatternDepth(t *testing.T) {
	doc := &document.Document{
		Spans: []document.Span{
			{Text: "1. Foundations of Thermodynamics", Bold: true},
			{Text: "Body text follows here with a fair amount of additional words to stay plain."},
			{Text: "1.2 Entropy and Disorder", Bold: true},
			{Text: "More body text follows here with plenty of additional words to stay plain."},
		},
	}
	cands := Classify(doc)
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].Level != 0 {
		t.Errorf("'1.' heading: expected level 0, got %d", cands[0].Level)
	}
	if cands[1].Level != 1 {
		t.Errorf("'1.2' heading: expected level 1, got %d", cands[1].Level)
	}
}

func TestClassify_ChapterPatternIsChapterLevel(t *testing.T) {
	doc := &document.Document{
		Spans: []document.Span{
			{Text: "Chapter 4: The Cell", Bold: true},
			{Text: "Ordinary paragraph content without any particular heading characteristics at all."},
		},
	}
	cands := Classify(doc)
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Level != 0 {
		t.Errorf("chapter pattern: expected level 0, got %d", cands[0].Level)
	}
}
