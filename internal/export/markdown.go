// Package export renders aggregated study artifacts into a Markdown study
// sheet: per-section summaries and questions up front, answers collected at
// the end so the sheet can be used for self-testing.
package export

import (
	"fmt"
	"strings"

	"github.com/diomir0/idlearn/internal/generate"
)

// RenderStudySheet builds the full Markdown study sheet for a document.
func RenderStudySheet(docTitle string, artifacts []generate.RegionArtifact) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", docTitle)

	for i, art := range artifacts {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, sectionTitle(art, docTitle))
		if art.Incomplete {
			b.WriteString("> Some parts of this section could not be processed; the material below may be incomplete.\n\n")
		}
		if s := strings.TrimSpace(art.Summary); s != "" {
			b.WriteString(s)
			b.WriteString("\n\n")
		}
		if len(art.Cards) > 0 {
			b.WriteString("### Questions\n\n")
			for n, card := range art.Cards {
				fmt.Fprintf(&b, "%d. %s\n", n+1, card.Question)
			}
			b.WriteString("\n")
		}
	}

	if hasCards(artifacts) {
		b.WriteString("## Answers\n\n")
		for i, art := range artifacts {
			if len(art.Cards) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, sectionTitle(art, docTitle))
			for n, card := range art.Cards {
				fmt.Fprintf(&b, "%d. %s\n", n+1, card.Answer)
			}
			b.WriteString("\n")
		}
	}

	return []byte(b.String())
}

func sectionTitle(art generate.RegionArtifact, fallback string) string {
	if t := strings.TrimSpace(art.Title); t != "" {
		return t
	}
	return fallback
}

func hasCards(artifacts []generate.RegionArtifact) bool {
	for _, art := range artifacts {
		if len(art.Cards) > 0 {
			return true
		}
	}
	return false
}
