package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/diomir0/idlearn/internal/config"
	"github.com/diomir0/idlearn/internal/document"
	"github.com/diomir0/idlearn/internal/generate"
	"github.com/diomir0/idlearn/internal/infer"
)

// Orchestrator manages the study-sheet generation pipeline.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	docs   *document.Store
	client infer.Client
	stats  *infer.Stats
	log    *slog.Logger
	cfg    config.Config
	sem    chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, docs *document.Store, client infer.Client, stats *infer.Stats, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		docs:   docs,
		client: client,
		stats:  stats,
		log:    log,
		cfg:    cfg,
		sem:    make(chan struct{}, cfg.MaxConcurrentInfer),
	}
}

// Start launches worker goroutines and the store cleanup loops.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	base := generate.Options{
		CardsPerChunk: o.cfg.CardsPerChunk,
	}
	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.docs, o.client, o.stats, o.log, o.sem, base)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Evict expired jobs and documents.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
				o.docs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed)
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID, or nil.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// CancelJob requests cancellation of a job. Returns false if the job does
// not exist or has already reached a terminal status.
func (o *Orchestrator) CancelJob(id string) bool {
	job := o.jobs.Get(id)
	if job == nil {
		return false
	}
	switch job.Snapshot().Status {
	case StatusCompleted, StatusPartial, StatusFailed, StatusCancelled:
		return false
	}
	job.Cancel()
	return true
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
