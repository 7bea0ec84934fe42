// Package generate drives the multi-stage prompt protocol that turns chunks
// into summaries and flashcards, and merges chunk results into per-region
// artifacts.
package generate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/diomir0/idlearn/internal/chunker"
	"github.com/diomir0/idlearn/internal/infer"
)

// Protocol stages. Each in-flight chunk moves Summarize -> Verify -> Extract;
// failures are recorded per stage so partial results stay usable.
const (
	StageSummarize = "summarize"
	StageVerify    = "verify"
	StageExtract   = "extract"
	StageCondense  = "condense"
)

// Options tune the per-chunk protocol.
type Options struct {
	CardsPerChunk int
	MaxTokens     int // per-call response cap
	MaxAttempts   int // per stage, including the first try
	RetryDelay    time.Duration
}

func DefaultOptions() Options {
	return Options{
		CardsPerChunk: 5,
		MaxTokens:     1024,
		MaxAttempts:   3,
		RetryDelay:    500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CardsPerChunk <= 0 {
		o.CardsPerChunk = d.CardsPerChunk
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = d.MaxTokens
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	return o
}

// ChunkResult is the outcome of running the protocol over one chunk. A chunk
// with a failed Extract stage still carries its summary: partial success is
// preferred over dropping the chunk.
type ChunkResult struct {
	Index        int
	Summary      string
	Cards        []CardDraft
	FailedStages []string
}

func (r ChunkResult) Failed() bool { return len(r.FailedStages) > 0 }

// Orchestrator runs the summarize/verify/extract protocol against an
// inference capability. The capability is injected so tests can substitute a
// deterministic fake.
type Orchestrator struct {
	client infer.Client
	stats  *infer.Stats
	log    *slog.Logger
	opts   Options
}

func NewOrchestrator(client infer.Client, stats *infer.Stats, log *slog.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		client: client,
		stats:  stats,
		log:    log,
		opts:   opts.withDefaults(),
	}
}

// ProcessChunk runs the full protocol for one chunk. The returned error is
// non-nil only for failures that must stop the whole job: an unreachable
// backend or a cancelled context. Everything else degrades into the result.
func (o *Orchestrator) ProcessChunk(ctx context.Context, chunk chunker.Chunk, rc RegionContext) (ChunkResult, error) {
	res := ChunkResult{Index: chunk.Index}
	text := chunk.PromptText()
	log := o.log.With("chunk", chunk.Index)

	// Stage 1: summarize.
	summary, err := callStage(ctx, o.client, o.stats, log, StageSummarize, infer.Request{
		System:    SystemPrompt,
		Prompt:    SummarizePrompt(rc, text, false),
		MaxTokens: o.opts.MaxTokens,
	}, o.opts.MaxAttempts, o.opts.RetryDelay)
	if err != nil {
		if fatal(err) {
			return res, err
		}
		log.Error("summarize stage failed", "error", err)
		res.FailedStages = append(res.FailedStages, StageSummarize)
	} else {
		res.Summary = strings.TrimSpace(summary)
	}

	// Stage 2: verify, and re-summarize once if flagged. A failed verify call
	// accepts the candidate; the verification pass is best-effort.
	if res.Summary != "" {
		verdict, err := callStage(ctx, o.client, o.stats, log, StageVerify, infer.Request{
			System:    SystemPrompt,
			Prompt:    VerifyPrompt(res.Summary, text),
			MaxTokens: o.opts.MaxTokens,
		}, o.opts.MaxAttempts, o.opts.RetryDelay)
		switch {
		case err != nil && fatal(err):
			return res, err
		case err != nil:
			log.Warn("verify stage failed, accepting candidate summary", "error", err)
			res.FailedStages = append(res.FailedStages, StageVerify)
		case Flagged(verdict):
			log.Info("summary flagged by verify stage, re-summarizing")
			revised, err := callStage(ctx, o.client, o.stats, log, StageSummarize, infer.Request{
				System:    SystemPrompt,
				Prompt:    SummarizePrompt(rc, text, true),
				MaxTokens: o.opts.MaxTokens,
			}, o.opts.MaxAttempts, o.opts.RetryDelay)
			if err != nil {
				if fatal(err) {
					return res, err
				}
				log.Warn("re-summarize failed, keeping flagged summary", "error", err)
			} else if s := strings.TrimSpace(revised); s != "" {
				res.Summary = s
			}
		}
	}

	// Stage 3: extract Q/A pairs.
	answer, err := callStage(ctx, o.client, o.stats, log, StageExtract, infer.Request{
		System:    SystemPrompt,
		Prompt:    ExtractPrompt(res.Summary, text, o.opts.CardsPerChunk),
		MaxTokens: o.opts.MaxTokens,
	}, o.opts.MaxAttempts, o.opts.RetryDelay)
	if err != nil {
		if fatal(err) {
			return res, err
		}
		log.Error("extract stage failed, keeping summary without cards", "error", err)
		res.FailedStages = append(res.FailedStages, StageExtract)
		return res, nil
	}

	for _, d := range ParseCards(answer) {
		if ValidateDraft(&d) {
			res.Cards = append(res.Cards, d)
		}
	}
	return res, nil
}

// fatal reports errors that must escalate past the chunk: a systemically
// unreachable backend, or a context that is already done.
func fatal(err error) bool {
	return errors.Is(err, infer.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// callStage runs one protocol stage with bounded retries and a short fixed
// backoff. Unavailable backends escalate immediately; only transient errors
// are retried.
func callStage(ctx context.Context, client infer.Client, stats *infer.Stats, log *slog.Logger,
	stage string, req infer.Request, attempts int, delay time.Duration) (string, error) {

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		start := time.Now()
		resp, err := client.Infer(ctx, req)
		if stats != nil {
			stats.Record(stage, time.Since(start).Milliseconds())
		}
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, infer.ErrUnavailable) || errors.Is(err, context.Canceled) {
			return "", err
		}
		if !infer.IsRetryable(err) {
			return "", err
		}
		lastErr = err
		log.Warn("transient inference failure", "stage", stage, "attempt", attempt+1, "error", err)
	}
	return "", lastErr
}
