// Package chunker splits region text into model-context-sized pieces. Splits
// happen only at paragraph or sentence boundaries, and concatenating the
// chunks' core text in order reconstructs the input byte-for-byte.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrBadConfig reports invalid chunking parameters.
var ErrBadConfig = errors.New("invalid chunking config")

// Chunk is one bounded slice of a region's text.
type Chunk struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`           // core text; chunks' Text concatenates to the source
	Lead   string `json:"lead,omitempty"` // trailing context repeated from the previous chunk
	Tokens int    `json:"tokens"`
}

// PromptText is what the chunk contributes to a model prompt: continuity
// context first, then the core text.
func (c Chunk) PromptText() string {
	if c.Lead == "" {
		return c.Text
	}
	return c.Lead + "\n" + c.Text
}

// CheckConfig validates a (budget, overlap) pair without splitting anything.
func CheckConfig(budget, overlap int) error {
	if budget <= 0 {
		return fmt.Errorf("%w: token budget must be positive, got %d", ErrBadConfig, budget)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrBadConfig, overlap)
	}
	if overlap >= budget {
		return fmt.Errorf("%w: overlap %d must be smaller than budget %d", ErrBadConfig, overlap, budget)
	}
	return nil
}

// Split cuts text into ordered chunks of roughly budget tokens. Sentences are
// never cut in half; a single sentence over the budget becomes its own
// oversized chunk rather than being truncated. When overlap > 0 the trailing
// tokens of each chunk are repeated in the next chunk's Lead.
func Split(text string, budget, overlap int) ([]Chunk, error) {
	if err := CheckConfig(budget, overlap); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	var chunks []Chunk
	var cur strings.Builder
	curTokens := 0

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Text:   cur.String(),
			Tokens: curTokens,
		})
		cur.Reset()
		curTokens = 0
	}

	for _, seg := range segments(text) {
		t := EstimateTokens(seg)
		if curTokens > 0 && curTokens+t > budget {
			flush()
		}
		cur.WriteString(seg)
		curTokens += t
	}
	flush()

	if overlap > 0 {
		for i := 1; i < len(chunks); i++ {
			chunks[i].Lead = tailTokens(chunks[i-1].Text, overlap)
		}
	}
	return chunks, nil
}

// segments slices text into sentences that keep their trailing whitespace, so
// that concatenating them reproduces the input exactly. Paragraph separators
// (blank lines) always end a segment; sentence terminators end one only when
// they sit outside quotes and parentheses and are not part of an abbreviation
// or a number like "3.14".
func segments(text string) []string {
	var segs []string
	runes := []rune(text)
	start := 0
	parens := 0
	inQuote := false

	i := 0
	for i < len(runes) {
		r := runes[i]
		switch r {
		case '(', '[':
			parens++
		case ')', ']':
			if parens > 0 {
				parens--
			}
		case '"':
			inQuote = !inQuote
		case '“':
			inQuote = true
		case '”':
			inQuote = false
		case '\n':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				// Paragraph boundary: take the whole newline run and reset
				// nesting state so an unbalanced quote cannot swallow the
				// rest of the document.
				j := i
				for j < len(runes) && runes[j] == '\n' {
					j++
				}
				segs = append(segs, string(runes[start:j]))
				start, i = j, j
				parens, inQuote = 0, false
				continue
			}
		case '.', '!', '?':
			if parens == 0 && !inQuote && isSentenceEnd(runes, i) {
				if j, ok := consumeBoundary(runes, i); ok {
					segs = append(segs, string(runes[start:j]))
					start, i = j, j
					continue
				}
			}
		}
		i++
	}
	if start < len(runes) {
		segs = append(segs, string(runes[start:]))
	}
	return segs
}

// consumeBoundary checks that the terminator at i really ends a sentence
// (closing quotes allowed, then whitespace or end of input) and returns the
// index just past the trailing whitespace run. A blank line is left for the
// paragraph case to consume.
func consumeBoundary(runes []rune, i int) (int, bool) {
	j := i + 1
	for j < len(runes) && strings.ContainsRune("\"')]”", runes[j]) {
		j++
	}
	if j >= len(runes) {
		return len(runes), true
	}
	if !unicode.IsSpace(runes[j]) {
		return 0, false
	}
	if runes[j] == '\n' && j+1 < len(runes) && runes[j+1] == '\n' {
		return 0, false
	}
	for j < len(runes) && unicode.IsSpace(runes[j]) && runes[j] != '\n' {
		j++
	}
	if j < len(runes) && runes[j] == '\n' && (j+1 >= len(runes) || runes[j+1] != '\n') {
		j++
	}
	return j, true
}

// abbreviations whose trailing period does not end a sentence.
var abbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"st": true, "no": true, "vol": true, "fig": true, "al": true,
	"eg": true, "e.g": true, "ie": true, "i.e": true, "vs": true,
	"cf": true, "ca": true, "approx": true, "ed": true, "pp": true,
}

func isSentenceEnd(runes []rune, i int) bool {
	if runes[i] != '.' {
		return true
	}
	j := i - 1
	for j >= 0 && (unicode.IsLetter(runes[j]) || runes[j] == '.') {
		j--
	}
	word := strings.ToLower(strings.TrimSuffix(string(runes[j+1:i]), "."))
	if abbreviations[word] {
		return false
	}
	// Single-letter initials: "J. Smith".
	if len(word) == 1 {
		return false
	}
	return true
}
