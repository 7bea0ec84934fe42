package generate

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every call to the model.
const SystemPrompt = "You are a helpful assistant that has insight in academic, theoretical knowledge " +
	"in science and humanities, and that is able to accurately summarize complex texts concisely yet " +
	"precisely without skipping important details, as well as generate insightful questions about these texts."

const summarizeInstruction = "You are an expert science and humanities educator. Summarize the following " +
	"text clearly, precisely and as concisely as precision allows. Output only the summary."

const strictDirective = "Only include claims that are directly supported by the text; avoid any unsupported claims."

const verifyInstruction = "Below is a source text and a candidate summary of it. Check every claim in the " +
	"summary against the source. If every claim is supported by the source, reply with exactly OK. " +
	"Otherwise reply with UNSUPPORTED: followed by the unsupported claims."

const extractInstruction = "You are an expert science and humanities educator. Given the following summary " +
	"and source text, generate a set of %d relevant questions and their answers. Output only the questions " +
	"and answers, each pair in the form 'Q: ... A: ...' on separate lines."

const condenseInstruction = "Condense the following summary to roughly %d words. Keep every key fact and " +
	"concept; remove repetition and filler. Output only the condensed summary."

// RegionContext carries the structural context a chunk belongs to, so the
// model knows what document and section it is reading.
type RegionContext struct {
	DocTitle   string
	Breadcrumb []string
}

func (rc RegionContext) header() string {
	var sb strings.Builder
	if rc.DocTitle != "" {
		fmt.Fprintf(&sb, "Document: %q\n", rc.DocTitle)
	}
	if len(rc.Breadcrumb) > 0 {
		sb.WriteString("Section: ")
		sb.WriteString(strings.Join(rc.Breadcrumb, " > "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// SummarizePrompt builds the stage-1 prompt. strict adds the directive used
// on the single re-run after the verify stage flags unsupported claims.
func SummarizePrompt(rc RegionContext, text string, strict bool) string {
	var sb strings.Builder
	sb.WriteString(summarizeInstruction)
	if strict {
		sb.WriteString(" ")
		sb.WriteString(strictDirective)
	}
	sb.WriteString("\n\n---\n")
	sb.WriteString(rc.header())
	sb.WriteString("---\n")
	sb.WriteString(text)
	return sb.String()
}

// VerifyPrompt builds the stage-2 prompt.
func VerifyPrompt(summary, text string) string {
	var sb strings.Builder
	sb.WriteString(verifyInstruction)
	sb.WriteString("\n\nSource text:\n---\n")
	sb.WriteString(text)
	sb.WriteString("\n---\n\nCandidate summary:\n---\n")
	sb.WriteString(summary)
	sb.WriteString("\n---\n")
	return sb.String()
}

// ExtractPrompt builds the stage-3 prompt.
func ExtractPrompt(summary, text string, cards int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, extractInstruction, cards)
	if summary != "" {
		sb.WriteString("\n\nSummary:\n---\n")
		sb.WriteString(summary)
		sb.WriteString("\n---")
	}
	sb.WriteString("\n\nSource text:\n---\n")
	sb.WriteString(text)
	sb.WriteString("\n---\n")
	return sb.String()
}

// CondensePrompt builds the aggregation-time condense prompt.
func CondensePrompt(summary string, targetWords int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, condenseInstruction, targetWords)
	sb.WriteString("\n\n---\n")
	sb.WriteString(summary)
	return sb.String()
}

// Flagged reports whether a verify-stage response flags unsupported claims.
// Anything that is not a flag counts as acceptance, so a rambling model
// degrades to accepting the candidate instead of failing the chunk.
func Flagged(verdict string) bool {
	return strings.Contains(strings.ToUpper(verdict), "UNSUPPORTED")
}
