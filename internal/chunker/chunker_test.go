package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckConfig_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		budget  int
		overlap int
	}{
		{"zero budget", 0, 0},
		{"negative budget", -5, 0},
		{"negative overlap", 100, -1},
		{"overlap equals budget", 100, 100},
		{"overlap exceeds budget", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckConfig(tc.budget, tc.overlap)
			if !errors.Is(err, ErrBadConfig) {
				t.Errorf("expected ErrBadConfig, got %v", err)
			}
		})
	}

	if err := CheckConfig(100, 0); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
	if err := CheckConfig(100, 99); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split("", 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	text := "The mitochondrion is the powerhouse of the cell. It produces ATP through oxidative phosphorylation.\n\n" +
		"Cells also contain ribosomes. Ribosomes translate mRNA into proteins! Can they do anything else?\n\n" +
		strings.Repeat("Another sentence about biology that pads out the region text. ", 40) +
		"A final remark without trailing space."

	for _, budget := range []int{20, 50, 200, 10000} {
		chunks, err := Split(text, budget, 0)
		if err != nil {
			t.Fatalf("budget %d: unexpected error: %v", budget, err)
		}
		var sb strings.Builder
		for _, c := range chunks {
			sb.WriteString(c.Text)
		}
		if sb.String() != text {
			t.Errorf("budget %d: concatenated chunk text does not reproduce input", budget)
		}
	}
}

func TestSplit_RespectsBudget(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)
	budget := 50

	chunks, err := Split(text, budget, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Every sentence here is well under the budget, so no chunk may exceed it.
	for i, c := range chunks {
		if c.Tokens > budget {
			t.Errorf("chunk %d: %d tokens exceeds budget %d", i, c.Tokens, budget)
		}
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
	}
}

func TestSplit_OversizedSentenceBecomesOwnChunk(t *testing.T) {
	sentence := strings.Repeat("word ", 99) + "word."
	chunks, err := Split(sentence, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single oversized chunk, got %d", len(chunks))
	}
	if chunks[0].Tokens <= 20 {
		t.Errorf("expected chunk to exceed budget, got %d tokens", chunks[0].Tokens)
	}
	if chunks[0].Text != sentence {
		t.Error("oversized sentence must not be truncated")
	}
}

func TestSplit_OverlapLead(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta epsilon zeta eta theta. ", 40)
	chunks, err := Split(text, 40, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0].Lead != "" {
		t.Error("first chunk must have no lead")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Lead == "" {
			t.Errorf("chunk %d: expected non-empty lead", i)
			continue
		}
		// Lead is drawn from the previous chunk, never new text.
		prevWords := strings.Fields(chunks[i-1].Text)
		leadWords := strings.Fields(chunks[i].Lead)
		if len(leadWords) > len(prevWords) {
			t.Fatalf("chunk %d: lead longer than previous chunk", i)
		}
		tail := strings.Join(prevWords[len(prevWords)-len(leadWords):], " ")
		if chunks[i].Lead != tail {
			t.Errorf("chunk %d: lead %q is not the tail of the previous chunk", i, chunks[i].Lead)
		}
	}

	// Overlap lives in Lead only; the round-trip law still holds.
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	if sb.String() != text {
		t.Error("overlap must not leak into chunk core text")
	}
}

func TestSplit_AbbreviationNotASplitPoint(t *testing.T) {
	text := "Dr. Smith arrived at the lab. The results were ready."
	chunks, err := Split(text, 8, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "Dr. Smith arrived at the lab. " {
		t.Errorf("split after abbreviation: got %q", chunks[0].Text)
	}
}

func TestSplit_DecimalNumberNotASplitPoint(t *testing.T) {
	text := "The value of pi is 3.14 to two places. It never terminates."
	chunks, err := Split(text, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "3.14 to two places.") {
		t.Errorf("decimal number split apart: got %q", chunks[0].Text)
	}
}

func TestSplit_QuotedTerminatorNotASplitPoint(t *testing.T) {
	text := `She said "Stop. Wait here." and then left quickly. The door closed behind her.`
	chunks, err := Split(text, 12, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range chunks {
		if strings.HasSuffix(strings.TrimRight(c.Text, " "), `"Stop.`) {
			t.Errorf("split inside quotation: %q", c.Text)
		}
	}
}

func TestPromptText(t *testing.T) {
	c := Chunk{Text: "body text"}
	if c.PromptText() != "body text" {
		t.Errorf("unexpected prompt text without lead: %q", c.PromptText())
	}
	c.Lead = "earlier context"
	if c.PromptText() != "earlier context\nbody text" {
		t.Errorf("unexpected prompt text with lead: %q", c.PromptText())
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("empty text: expected 0 tokens, got %d", got)
	}
	if got := EstimateTokens("word"); got != 1 {
		t.Errorf("single word: expected 1 token, got %d", got)
	}
	// 100 words -> 133 tokens at the 1.33 ratio.
	if got := EstimateTokens(strings.Repeat("word ", 100)); got != 133 {
		t.Errorf("100 words: expected 133 tokens, got %d", got)
	}
}
