package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/diomir0/idlearn/internal/generate"
)

// RegionStatus is the per-region state machine: Pending -> Chunking ->
// Generating -> Aggregating -> Done, with Failed absorbing from any state on
// a job-fatal error or cancellation.
type RegionStatus string

const (
	RegionPending     RegionStatus = "pending"
	RegionChunking    RegionStatus = "chunking"
	RegionGenerating  RegionStatus = "generating"
	RegionAggregating RegionStatus = "aggregating"
	RegionDone        RegionStatus = "done"
	RegionFailed      RegionStatus = "failed"
)

// JobStatus is the overall state of a generation job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// GenerationOptions are the user-tunable knobs of a job.
type GenerationOptions struct {
	ChunkSize           int `json:"chunk_size"`
	ChunkOverlap        int `json:"chunk_overlap"`
	SummaryTargetTokens int `json:"summary_target_tokens"`
	CardsPerChunk       int `json:"cards_per_chunk"`
}

// RegionState tracks one selected region through the pipeline.
type RegionState struct {
	NodeID      string       `json:"node_id"`
	Title       string       `json:"title"`
	Status      RegionStatus `json:"status"`
	TotalChunks int          `json:"total_chunks"`
	ChunksDone  int          `json:"chunks_done"`
	Error       string       `json:"error,omitempty"`
}

// Job tracks the state of one generation request.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status  JobStatus         `json:"status"`
	Regions []RegionState     `json:"regions"`
	Options GenerationOptions `json:"options"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	artifacts []generate.RegionArtifact
	errors    []string
	cancelled bool
}

// NewJob builds a queued job for the given document and region selection.
func NewJob(docID string, regions []RegionState, opts GenerationOptions) *Job {
	now := time.Now()
	for i := range regions {
		regions[i].Status = RegionPending
	}
	return &Job{
		ID:        jobID(docID, now),
		DocID:     docID,
		Status:    StatusQueued,
		Regions:   regions,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func jobID(docID string, t time.Time) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", docID, t.UnixNano())))
	return fmt.Sprintf("%x", h[:])[:20]
}

func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

func (j *Job) SetRegionStatus(i int, status RegionStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Regions[i].Status = status
	j.UpdatedAt = time.Now()
}

func (j *Job) FailRegion(i int, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Regions[i].Status = RegionFailed
	j.Regions[i].Error = reason
	j.UpdatedAt = time.Now()
}

// FailUnfinished marks every region that has not reached Done as Failed.
// Regions already Done keep their status and artifacts.
func (j *Job) FailUnfinished(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.Regions {
		if j.Regions[i].Status != RegionDone {
			j.Regions[i].Status = RegionFailed
			if j.Regions[i].Error == "" {
				j.Regions[i].Error = reason
			}
		}
	}
	j.UpdatedAt = time.Now()
}

func (j *Job) SetRegionTotal(i, n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Regions[i].TotalChunks = n
	j.UpdatedAt = time.Now()
}

func (j *Job) IncrRegionChunks(i int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Regions[i].ChunksDone++
	j.UpdatedAt = time.Now()
}

func (j *Job) AddArtifact(a generate.RegionArtifact) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.artifacts = append(j.artifacts, a)
	j.UpdatedAt = time.Now()
}

func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// Cancel requests cooperative cancellation: no new chunk work is dispatched,
// in-flight inference calls run to completion and are discarded.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelled = true
	j.UpdatedAt = time.Now()
}

func (j *Job) Cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// Artifacts returns the artifacts collected so far, in completion order.
func (j *Job) Artifacts() []generate.RegionArtifact {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]generate.RegionArtifact, len(j.artifacts))
	copy(out, j.artifacts)
	return out
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string            `json:"job_id"`
	DocID        string            `json:"doc_id"`
	Status       JobStatus         `json:"status"`
	Regions      []RegionState     `json:"regions"`
	RegionsDone  int               `json:"regions_done"`
	RegionsTotal int               `json:"regions_total"`
	Options      GenerationOptions `json:"options"`
	Errors       []string          `json:"errors"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Snapshot returns a consistent copy of the job state. Regions-done counts
// reflect real completion order, not selection order.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	regions := make([]RegionState, len(j.Regions))
	copy(regions, j.Regions)
	done := 0
	for _, r := range regions {
		if r.Status == RegionDone {
			done++
		}
	}
	errs := j.errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:           j.ID,
		DocID:        j.DocID,
		Status:       j.Status,
		Regions:      regions,
		RegionsDone:  done,
		RegionsTotal: len(regions),
		Options:      j.Options,
		Errors:       errs,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
