package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diomir0/idlearn/internal/chunker"
	"github.com/diomir0/idlearn/internal/document"
	"github.com/diomir0/idlearn/internal/export"
	"github.com/diomir0/idlearn/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type generateRequest struct {
	DocID               string   `json:"doc_id"`
	RegionIDs           []string `json:"region_ids"`
	ChunkSize           int      `json:"chunk_size"`
	ChunkOverlap        *int     `json:"chunk_overlap"`
	SummaryTargetTokens int      `json:"summary_target_tokens"`
	CardsPerChunk       int      `json:"cards_per_chunk"`
}

// handleGenerate validates a region selection and queues a generation job.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocID == "" {
		jsonError(w, "doc_id is required", http.StatusBadRequest)
		return
	}

	stored := s.docs.Get(req.DocID)
	if stored == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	opts := pipeline.GenerationOptions{
		ChunkSize:           s.cfg.DefaultChunkSize,
		ChunkOverlap:        s.cfg.DefaultChunkOverlap,
		SummaryTargetTokens: s.cfg.SummaryTargetTokens,
		CardsPerChunk:       s.cfg.CardsPerChunk,
	}
	if req.ChunkSize > 0 {
		opts.ChunkSize = req.ChunkSize
	}
	if req.ChunkOverlap != nil {
		opts.ChunkOverlap = *req.ChunkOverlap
	}
	if req.SummaryTargetTokens > 0 {
		opts.SummaryTargetTokens = req.SummaryTargetTokens
	}
	if req.CardsPerChunk > 0 {
		opts.CardsPerChunk = req.CardsPerChunk
	}
	if err := chunker.CheckConfig(opts.ChunkSize, opts.ChunkOverlap); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Default to whole-document generation via the root region.
	regionIDs := req.RegionIDs
	if len(regionIDs) == 0 {
		regionIDs = []string{stored.Outline.ID}
	}

	regions := make([]pipeline.RegionState, 0, len(regionIDs))
	for _, id := range regionIDs {
		node := document.FindNode(stored.Outline, id)
		if node == nil {
			jsonError(w, fmt.Sprintf("region %s not found in outline", id), http.StatusBadRequest)
			return
		}
		title := node.Title
		if title == "" {
			title = stored.Doc.Title
		}
		regions = append(regions, pipeline.RegionState{NodeID: id, Title: title})
	}

	job := pipeline.NewJob(req.DocID, regions, opts)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/generate/%s/status", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if s.orchestrator.GetJob(jobID) == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	cancelled := s.orchestrator.CancelJob(jobID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    jobID,
		"cancelled": cancelled,
	})
}

// handleJobArtifacts returns whatever artifacts the job has produced so far,
// including partial results from failed or cancelled jobs.
func (s *Server) handleJobArtifacts(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    snap.ID,
		"status":    snap.Status,
		"artifacts": job.Artifacts(),
	})
}

// handleJobExport renders the job's artifacts as a downloadable Markdown
// study sheet.
func (s *Server) handleJobExport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	title := job.DocID
	if d := s.docs.Get(job.DocID); d != nil {
		title = d.Doc.Title
	}
	artifacts := job.Artifacts()
	if len(artifacts) == 0 {
		jsonError(w, "job has no artifacts yet", http.StatusConflict)
		return
	}

	sheet := export.RenderStudySheet(title, artifacts)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(title)))
	w.Write(sheet)
}

func exportFilename(title string) string {
	name := make([]byte, 0, len(title))
	for i := 0; i < len(title); i++ {
		c := title[i]
		switch {
		case c == ' ':
			name = append(name, '_')
		case c == '/' || c == '\\' || c == '"':
			name = append(name, '-')
		default:
			name = append(name, c)
		}
	}
	return string(name) + ".md"
}
