package generate

import (
	"regexp"
	"strings"
)

// CardDraft is a question-answer pair recovered from a model response, before
// deduplication. LowConfidence marks drafts that look unreliable; they are
// kept but ordered after confident ones in the merged set.
type CardDraft struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	LowConfidence bool   `json:"low_confidence,omitempty"`
}

// cardRe matches "Q: ... A: ..." pairs, tolerating numbering ("Q3:"), the
// long forms "Question:"/"Answer:", and markdown emphasis around the labels.
var cardRe = regexp.MustCompile(
	`(?s)\*{0,2}Q(?:uestion)?\s*\d*\*{0,2}\s*[:.]\s*(.*?)\s*\n\s*\*{0,2}A(?:nswer)?\s*\d*\*{0,2}\s*[:.]\s*(.*?)(?=\s*\n\s*\*{0,2}Q(?:uestion)?\s*\d*\*{0,2}\s*[:.]|\s*\z)`,
)

var digitRe = regexp.MustCompile(`\d`)

// quantKeywords mark questions asking for a number; an answer to one of
// these that contains no digit is suspicious.
var quantKeywords = []string{
	"how many", "how much", "what is the value", "compute", "calculate",
	"determine", "estimate", "give the value", "at what time", "what is the result",
}

// ParseCards recovers flashcard drafts from a model's extract-stage response.
// Unparseable responses yield no drafts rather than an error: the caller
// treats an empty set as a degraded-but-valid outcome.
func ParseCards(response string) []CardDraft {
	matches := cardRe.FindAllStringSubmatch(response, -1)
	drafts := make([]CardDraft, 0, len(matches))
	for _, m := range matches {
		q := cleanCardText(m[1])
		a := cleanCardText(m[2])
		if q == "" || a == "" {
			continue
		}
		drafts = append(drafts, CardDraft{
			Question:      q,
			Answer:        a,
			LowConfidence: isQuantitative(q) && !digitRe.MatchString(a),
		})
	}
	return drafts
}

// cleanCardText collapses whitespace and strips list markers and stray
// markdown emphasis the model tends to wrap labels in.
func cleanCardText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimLeft(s, "-*• ")
	s = strings.Trim(s, "*")
	return strings.TrimSpace(s)
}

func isQuantitative(q string) bool {
	q = strings.ToLower(q)
	for _, kw := range quantKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
