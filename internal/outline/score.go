package outline

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/diomir0/idlearn/internal/document"
)

// Candidate is a scored heading classification for one span. Classification
// is a scored decision rather than a boolean so callers and tests can inspect
// confidence and the thresholds can be tuned without changing the interface.
type Candidate struct {
	Span  int
	Score float64
	Level int // 0 = chapter
}

// maxLevel caps heading depth: font sizes cluster into at most 4 bands.
const maxLevel = 3

// candidateThreshold is the minimum signal score for a span to count as a
// heading. Explicit markup headings always qualify.
const candidateThreshold = 3

var (
	chapterRe  = regexp.MustCompile(`(?i)^(chapter|part)\s+(\d+|[ivxlcdm]+)\b`)
	sectionRe  = regexp.MustCompile(`(?i)^section\s+\d+\b`)
	numberedRe = regexp.MustCompile(`^(\d+(\.\d+)*)[.)]?\s+\S`)
	romanRe    = regexp.MustCompile(`^[IVXLCDM]+[.)]\s+\S`)
)

var headingKeywords = map[string]bool{
	"introduction": true, "conclusion": true, "appendix": true,
	"bibliography": true, "references": true, "index": true,
	"abstract": true, "summary": true, "overview": true,
	"background": true, "methodology": true, "results": true,
	"discussion": true, "acknowledgments": true, "preface": true,
	"foreword": true, "glossary": true, "epilogue": true, "prologue": true,
}

// Classify scores every span of the document as a heading candidate and
// assigns levels. Spans below the threshold are omitted.
func Classify(doc *document.Document) []Candidate {
	median := medianFontSize(doc.Spans)

	var cands []Candidate
	minExplicit := 0
	for i, sp := range doc.Spans {
		text := strings.TrimSpace(sp.Text)
		if sp.Heading > 0 && text != "" {
			if minExplicit == 0 || sp.Heading < minExplicit {
				minExplicit = sp.Heading
			}
			cands = append(cands, Candidate{Span: i, Score: scoreSpan(sp, text, median) + 5, Level: -1})
			continue
		}
		if len(text) < 3 || len(text) > 200 || strings.Count(text, "\n") > 0 {
			continue
		}
		score := scoreSpan(sp, text, median)
		if score >= candidateThreshold {
			cands = append(cands, Candidate{Span: i, Score: score, Level: -1})
		}
	}

	bands := sizeBands(doc.Spans, cands, median)
	for k := range cands {
		sp := doc.Spans[cands[k].Span]
		text := strings.TrimSpace(sp.Text)
		if sp.Heading > 0 {
			// Explicit markup levels win; normalize so the shallowest
			// heading used in the document becomes a chapter.
			lv := sp.Heading - minExplicit
			if lv > maxLevel {
				lv = maxLevel
			}
			cands[k].Level = lv
			continue
		}
		cands[k].Level = assignLevel(sp, text, bands)
	}
	return cands
}

func scoreSpan(sp document.Span, text string, median float64) float64 {
	score := 0.0
	if median > 0 && sp.FontSize > 0 {
		ratio := sp.FontSize / median
		switch {
		case ratio >= 1.5:
			score += 3
		case ratio > 1.05:
			score += 2
		}
	}
	if sp.Bold {
		score += 2
	}
	if chapterRe.MatchString(text) || sectionRe.MatchString(text) {
		score += 3
	}
	if numberedRe.MatchString(text) {
		score += 2
	}
	if romanRe.MatchString(text) {
		score += 2
	}
	if headingKeywords[strings.ToLower(strings.TrimRight(text, ".:"))] {
		score += 2
	}
	if text == strings.ToUpper(text) && text != strings.ToLower(text) && len(text) < 50 {
		score += 1
	}
	if len(strings.Fields(text)) <= 8 {
		score += 1
	}
	return score
}

// sizeBands clusters the candidates' font sizes into at most four descending
// bands; the largest band maps to chapter level.
func sizeBands(spans []document.Span, cands []Candidate, median float64) []int {
	seen := map[int]bool{}
	for _, c := range cands {
		sz := int(math.Round(spans[c.Span].FontSize))
		if sz > 0 && float64(sz) > median {
			seen[sz] = true
		}
	}
	bands := make([]int, 0, len(seen))
	for sz := range seen {
		bands = append(bands, sz)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(bands)))
	if len(bands) > maxLevel+1 {
		bands = bands[:maxLevel+1]
	}
	return bands
}

func assignLevel(sp document.Span, text string, bands []int) int {
	level := maxLevel
	if sp.FontSize > 0 {
		sz := int(math.Round(sp.FontSize))
		for i, b := range bands {
			if sz >= b {
				level = i
				break
			}
		}
	} else if len(bands) == 0 {
		// No layout signal at all: fall back to numbering depth.
		level = 1
	}

	// Content patterns refine the size-based guess.
	switch {
	case chapterRe.MatchString(text):
		level = 0
	case numberedRe.MatchString(text):
		m := numberedRe.FindStringSubmatch(text)
		depth := strings.Count(m[1], ".") // "3"=0, "3.2"=1, "3.2.1"=2
		if depth > maxLevel {
			depth = maxLevel
		}
		if sp.FontSize == 0 || depth > level {
			level = depth
		}
	}
	return level
}

func medianFontSize(spans []document.Span) float64 {
	var sizes []float64
	for _, sp := range spans {
		if sp.FontSize > 0 {
			sizes = append(sizes, sp.FontSize)
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	sort.Float64s(sizes)
	mid := len(sizes) / 2
	if len(sizes)%2 == 0 {
		return (sizes[mid-1] + sizes[mid]) / 2
	}
	return sizes[mid]
}
