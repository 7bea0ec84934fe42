package generate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/diomir0/idlearn/internal/chunker"
	"github.com/diomir0/idlearn/internal/infer"
)

// Flashcard is a finished question-answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RegionArtifact is the terminal output for one region. It is always
// produced, even when every chunk failed: Incomplete and FailedChunks tell
// the presentation layer exactly which sections to offer for retry.
type RegionArtifact struct {
	RegionID     string      `json:"region_id"`
	Title        string      `json:"title"`
	Summary      string      `json:"summary"`
	Cards        []Flashcard `json:"cards"`
	Incomplete   bool        `json:"incomplete"`
	FailedChunks []int       `json:"failed_chunks,omitempty"`
}

// Aggregator merges ordered chunk results into one region artifact. It holds
// its own inference handle for the optional condense pass.
type Aggregator struct {
	client infer.Client
	stats  *infer.Stats
	log    *slog.Logger
	// gate caps in-flight inference across the whole process; the condense
	// call must take a slot like any chunk call. nil runs ungated.
	gate chan struct{}
	opts Options
}

func NewAggregator(client infer.Client, stats *infer.Stats, log *slog.Logger, gate chan struct{}, opts Options) *Aggregator {
	return &Aggregator{
		client: client,
		stats:  stats,
		log:    log,
		gate:   gate,
		opts:   opts.withDefaults(),
	}
}

// Aggregate builds the region artifact. Results may arrive in any order; they
// are indexed by chunk position before merging. targetTokens caps the merged
// summary length; 0 disables the condense pass. The returned error is non-nil
// only when the condense call finds the backend unreachable.
func (a *Aggregator) Aggregate(ctx context.Context, regionID, title string, results []ChunkResult, targetTokens int) (RegionArtifact, error) {
	sorted := make([]ChunkResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	art := RegionArtifact{
		RegionID: regionID,
		Title:    title,
		Cards:    []Flashcard{},
	}

	var parts []string
	for _, r := range sorted {
		if r.Failed() {
			art.Incomplete = true
			art.FailedChunks = append(art.FailedChunks, r.Index)
		}
		if s := strings.TrimSpace(r.Summary); s != "" {
			parts = append(parts, s)
		}
	}
	art.Summary = strings.Join(parts, "\n\n")

	if targetTokens > 0 && chunker.EstimateTokens(art.Summary) > targetTokens {
		condensed, err := a.condense(ctx, art.Summary, targetTokens)
		if err != nil {
			if errors.Is(err, infer.ErrUnavailable) {
				return art, err
			}
			// Losing content is worse than an over-long summary.
			a.log.Warn("condense pass failed, keeping concatenated summary", "region", regionID, "error", err)
		} else if condensed != "" {
			art.Summary = condensed
		}
	}

	art.Cards = mergeCards(sorted)
	return art, nil
}

func (a *Aggregator) condense(ctx context.Context, summary string, targetTokens int) (string, error) {
	if a.gate != nil {
		select {
		case a.gate <- struct{}{}:
			defer func() { <-a.gate }()
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// Words, not tokens, in the instruction: the model has no token counter.
	targetWords := int(float64(targetTokens) / 1.33)
	resp, err := callStage(ctx, a.client, a.stats, a.log, StageCondense, infer.Request{
		System:    SystemPrompt,
		Prompt:    CondensePrompt(summary, targetWords),
		MaxTokens: a.opts.MaxTokens,
	}, a.opts.MaxAttempts, a.opts.RetryDelay)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// mergeCards concatenates drafts in chunk order, confident drafts before
// low-confidence ones, deduplicated by normalized question text with the
// first occurrence winning. Merging is idempotent.
func mergeCards(sorted []ChunkResult) []Flashcard {
	seen := make(map[string]bool)
	cards := []Flashcard{}

	add := func(lowConfidence bool) {
		for _, r := range sorted {
			for _, d := range r.Cards {
				if d.LowConfidence != lowConfidence {
					continue
				}
				key := NormalizeQuestion(d.Question)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				cards = append(cards, Flashcard{Question: d.Question, Answer: d.Answer})
			}
		}
	}
	add(false)
	add(true)
	return cards
}
