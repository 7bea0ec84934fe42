package chunker

import "strings"

// EstimateTokens gives a rough token count from the word count. Exact
// tokenization is not required for chunk sizing; the inference backend's own
// tokenizer is the only authority and we just need to stay under its window.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	// Roughly 1.33 tokens per English word.
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// tailTokens returns the last n tokens' worth of words from text, for use as
// overlap context at the head of the following chunk.
func tailTokens(text string, n int) string {
	words := strings.Fields(text)
	targetWords := int(float64(n) / 1.33)
	if targetWords <= 0 {
		return ""
	}
	if len(words) <= targetWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}
