package generate

import (
	"regexp"
	"strings"
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

// ValidateDraft checks a parsed draft for usability. Model output is
// untrusted: degenerate pairs and prompt-injection echoes are dropped here
// rather than surfaced to the user.
func ValidateDraft(d *CardDraft) bool {
	if d == nil {
		return false
	}
	q := strings.TrimSpace(d.Question)
	a := strings.TrimSpace(d.Answer)
	if len(q) < 5 || len(q) > 300 {
		return false
	}
	if len(a) < 1 || len(a) > 1000 {
		return false
	}
	if injectionPattern.MatchString(q) || injectionPattern.MatchString(a) {
		return false
	}
	// A one-or-two character answer carries no signal; keep the card but
	// flag it so aggregation sinks it below confident ones.
	if len(a) < 3 {
		d.LowConfidence = true
	}
	return true
}

// NormalizeQuestion is the deduplication key for flashcard questions:
// case-insensitive, whitespace-normalized.
func NormalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
