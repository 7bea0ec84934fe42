package pipeline

import (
	"testing"
	"time"

	"github.com/diomir0/idlearn/internal/generate"
)

func twoRegionJob() *Job {
	return NewJob("doc1", []RegionState{
		{NodeID: "0", Title: "One"},
		{NodeID: "1", Title: "Two"},
	}, GenerationOptions{ChunkSize: 1500, ChunkOverlap: 150})
}

func TestNewJob_InitialState(t *testing.T) {
	job := twoRegionJob()
	if job.Status != StatusQueued {
		t.Errorf("expected queued status, got %q", job.Status)
	}
	if job.ID == "" {
		t.Error("expected non-empty job ID")
	}
	for i, r := range job.Regions {
		if r.Status != RegionPending {
			t.Errorf("region %d: expected pending, got %q", i, r.Status)
		}
	}
}

func TestJob_Snapshot(t *testing.T) {
	job := twoRegionJob()
	job.SetStatus(StatusRunning)
	job.SetRegionStatus(0, RegionGenerating)
	job.SetRegionTotal(0, 4)
	job.IncrRegionChunks(0)
	job.IncrRegionChunks(0)

	snap := job.Snapshot()
	if snap.Status != StatusRunning {
		t.Errorf("expected running, got %q", snap.Status)
	}
	if snap.RegionsTotal != 2 || snap.RegionsDone != 0 {
		t.Errorf("expected 0/2 regions done, got %d/%d", snap.RegionsDone, snap.RegionsTotal)
	}
	if snap.Regions[0].TotalChunks != 4 || snap.Regions[0].ChunksDone != 2 {
		t.Errorf("expected chunk progress 2/4, got %d/%d",
			snap.Regions[0].ChunksDone, snap.Regions[0].TotalChunks)
	}

	job.SetRegionStatus(0, RegionDone)
	if got := job.Snapshot().RegionsDone; got != 1 {
		t.Errorf("expected 1 region done, got %d", got)
	}

	// The snapshot is a copy: mutating it must not touch the job.
	snap.Regions[1].Status = RegionFailed
	if job.Snapshot().Regions[1].Status != RegionPending {
		t.Error("snapshot mutation leaked into the job")
	}
}

func TestJob_CancelIsSticky(t *testing.T) {
	job := twoRegionJob()
	if job.Cancelled() {
		t.Fatal("fresh job must not be cancelled")
	}
	job.Cancel()
	if !job.Cancelled() {
		t.Error("expected cancelled flag to be set")
	}
}

func TestJob_FailUnfinishedPreservesDoneRegions(t *testing.T) {
	job := twoRegionJob()
	job.SetRegionStatus(0, RegionDone)
	job.FailUnfinished("backend gone")

	snap := job.Snapshot()
	if snap.Regions[0].Status != RegionDone {
		t.Errorf("done region must survive, got %q", snap.Regions[0].Status)
	}
	if snap.Regions[1].Status != RegionFailed || snap.Regions[1].Error != "backend gone" {
		t.Errorf("unfinished region should fail with reason, got %+v", snap.Regions[1])
	}
}

func TestJob_ArtifactsCopied(t *testing.T) {
	job := twoRegionJob()
	job.AddArtifact(generate.RegionArtifact{RegionID: "0", Summary: "s"})
	arts := job.Artifacts()
	if len(arts) != 1 || arts[0].RegionID != "0" {
		t.Fatalf("unexpected artifacts %+v", arts)
	}
	arts[0].Summary = "mutated"
	if job.Artifacts()[0].Summary != "s" {
		t.Error("artifact slice must be a copy")
	}
}

func TestJobStore_PutGetCleanup(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := twoRegionJob()
	store.Put(job)

	if store.Get(job.ID) != job {
		t.Fatal("expected to get stored job back")
	}
	if store.Get("missing") != nil {
		t.Error("expected nil for unknown job")
	}

	store.Cleanup()
	if store.Get(job.ID) == nil {
		t.Error("fresh job must survive cleanup")
	}

	job.UpdatedAt = time.Now().Add(-2 * time.Hour)
	store.Cleanup()
	if store.Get(job.ID) != nil {
		t.Error("expired job must be evicted")
	}
}
