package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/diomir0/idlearn/internal/chunker"
	"github.com/diomir0/idlearn/internal/document"
	"github.com/diomir0/idlearn/internal/generate"
	"github.com/diomir0/idlearn/internal/infer"
)

// Worker runs generation jobs. Regions are processed sequentially; chunks
// within a region fan out concurrently, each dispatch gated by a semaphore
// shared across all workers so total in-flight inference stays bounded.
type Worker struct {
	docs   *document.Store
	client infer.Client
	stats  *infer.Stats
	log    *slog.Logger
	sem    chan struct{}
	base   generate.Options
}

func NewWorker(docs *document.Store, client infer.Client, stats *infer.Stats, log *slog.Logger, sem chan struct{}, base generate.Options) *Worker {
	return &Worker{
		docs:   docs,
		client: client,
		stats:  stats,
		log:    log,
		sem:    sem,
		base:   base,
	}
}

type chunkOutcome struct {
	result generate.ChunkResult
	err    error
}

// Process drives a job to a terminal status.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	stored := w.docs.Get(job.DocID)
	if stored == nil {
		log.Warn("document expired before job started")
		job.FailUnfinished("document no longer available")
		job.SetStatus(StatusFailed)
		return
	}
	doc, root := stored.Doc, stored.Outline

	opts := w.base
	if job.Options.CardsPerChunk > 0 {
		opts.CardsPerChunk = job.Options.CardsPerChunk
	}
	gen := generate.NewOrchestrator(w.client, w.stats, w.log, opts)
	agg := generate.NewAggregator(w.client, w.stats, w.log, w.sem, opts)

	job.SetStatus(StatusRunning)
	log.Info("job started", "regions", len(job.Regions))

	fatal := false
	for i := range job.Regions {
		if fatal || job.Cancelled() {
			break
		}
		nodeID := job.Regions[i].NodeID
		node := document.FindNode(root, nodeID)
		if node == nil {
			job.FailRegion(i, fmt.Sprintf("region %s not found in outline", nodeID))
			continue
		}
		title := node.Title
		if title == "" {
			title = doc.Title
		}

		job.SetRegionStatus(i, RegionChunking)
		text := document.RegionText(doc, node)
		chunks, err := chunker.Split(text, job.Options.ChunkSize, job.Options.ChunkOverlap)
		if err != nil {
			job.FailRegion(i, err.Error())
			continue
		}
		job.SetRegionTotal(i, len(chunks))

		rc := generate.RegionContext{
			DocTitle:   doc.Title,
			Breadcrumb: document.Breadcrumb(node),
		}

		job.SetRegionStatus(i, RegionGenerating)
		outcomes := make(chan chunkOutcome, len(chunks))
		launched := 0
		for _, ch := range chunks {
			if job.Cancelled() {
				break
			}
			w.sem <- struct{}{}
			if job.Cancelled() {
				<-w.sem
				break
			}
			launched++
			go func(ch chunker.Chunk) {
				defer func() { <-w.sem }()
				res, err := gen.ProcessChunk(ctx, ch, rc)
				outcomes <- chunkOutcome{result: res, err: err}
			}(ch)
		}

		collected := make([]generate.ChunkResult, 0, launched)
		for n := 0; n < launched; n++ {
			out := <-outcomes
			job.IncrRegionChunks(i)
			if out.err != nil {
				if errors.Is(out.err, infer.ErrUnavailable) {
					fatal = true
				}
				job.AddError(fmt.Sprintf("region %s chunk %d: %v", nodeID, out.result.Index, out.err))
				continue
			}
			collected = append(collected, out.result)
		}

		if fatal {
			job.FailRegion(i, "inference backend unavailable")
			break
		}
		if job.Cancelled() && launched < len(chunks) {
			job.FailRegion(i, "cancelled")
			break
		}

		job.SetRegionStatus(i, RegionAggregating)
		art, err := agg.Aggregate(ctx, nodeID, title, collected, job.Options.SummaryTargetTokens)
		if err != nil {
			if errors.Is(err, infer.ErrUnavailable) {
				fatal = true
			}
			job.FailRegion(i, err.Error())
			job.AddError(fmt.Sprintf("region %s: %v", nodeID, err))
			break
		}
		job.AddArtifact(art)
		job.SetRegionStatus(i, RegionDone)
		log.Info("region completed", "region", nodeID, "chunks", len(chunks), "incomplete", art.Incomplete)
	}

	switch {
	case fatal:
		job.FailUnfinished("inference backend unavailable")
		job.SetStatus(StatusFailed)
		log.Error("job failed", "reason", "inference backend unavailable")
	case job.Cancelled():
		job.FailUnfinished("cancelled")
		job.SetStatus(StatusCancelled)
		log.Info("job cancelled")
	default:
		status := StatusCompleted
		for _, r := range job.Snapshot().Regions {
			if r.Status != RegionDone {
				status = StatusPartial
				break
			}
		}
		job.SetStatus(status)
		log.Info("job finished", "status", status)
	}
}
