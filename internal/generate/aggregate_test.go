package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/diomir0/idlearn/internal/infer"
)

func testAggregator(client infer.Client) *Aggregator {
	return NewAggregator(client, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, Options{
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	})
}

func TestAggregate_OrdersByChunkIndex(t *testing.T) {
	a := testAggregator(&fakeClient{})
	results := []ChunkResult{
		{Index: 2, Summary: "Third part."},
		{Index: 0, Summary: "First part."},
		{Index: 1, Summary: "Second part."},
	}
	art, err := a.Aggregate(context.Background(), "0", "Chapter", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First part.\n\nSecond part.\n\nThird part."
	if art.Summary != want {
		t.Errorf("expected summary %q, got %q", want, art.Summary)
	}
	if art.Incomplete {
		t.Error("expected complete artifact")
	}
}

func TestAggregate_FailedChunksMarkIncomplete(t *testing.T) {
	a := testAggregator(&fakeClient{})
	results := []ChunkResult{
		{Index: 0, Summary: "Good part."},
		{Index: 1, FailedStages: []string{StageSummarize}},
	}
	art, err := a.Aggregate(context.Background(), "0", "Chapter", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !art.Incomplete {
		t.Error("expected incomplete artifact")
	}
	if !reflect.DeepEqual(art.FailedChunks, []int{1}) {
		t.Errorf("expected failed chunks [1], got %v", art.FailedChunks)
	}
	if art.Summary != "Good part." {
		t.Errorf("surviving summary lost: %q", art.Summary)
	}
}

func TestAggregate_DeduplicatesByNormalizedQuestion(t *testing.T) {
	a := testAggregator(&fakeClient{})
	results := []ChunkResult{
		{Index: 0, Cards: []CardDraft{
			{Question: "What is DNA?", Answer: "Genetic material."},
		}},
		{Index: 1, Cards: []CardDraft{
			{Question: "what  is dna?", Answer: "A different phrasing's answer."},
			{Question: "What is RNA?", Answer: "A messenger molecule."},
		}},
	}
	art, err := a.Aggregate(context.Background(), "0", "Chapter", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(art.Cards) != 2 {
		t.Fatalf("expected 2 cards after dedup, got %d", len(art.Cards))
	}
	// First occurrence wins.
	if art.Cards[0].Answer != "Genetic material." {
		t.Errorf("expected first occurrence to win, got %q", art.Cards[0].Answer)
	}
}

func TestAggregate_ConfidentCardsFirst(t *testing.T) {
	a := testAggregator(&fakeClient{})
	results := []ChunkResult{
		{Index: 0, Cards: []CardDraft{
			{Question: "How many bones are in the hand?", Answer: "Many.", LowConfidence: true},
		}},
		{Index: 1, Cards: []CardDraft{
			{Question: "What is a joint?", Answer: "Where two bones meet."},
		}},
	}
	art, err := a.Aggregate(context.Background(), "0", "Chapter", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(art.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(art.Cards))
	}
	if art.Cards[0].Question != "What is a joint?" {
		t.Errorf("expected confident card first, got %q", art.Cards[0].Question)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	a := testAggregator(&fakeClient{})
	results := []ChunkResult{
		{Index: 0, Summary: "Part one.", Cards: []CardDraft{
			{Question: "What is a cell?", Answer: "The unit of life."},
		}},
		{Index: 1, Summary: "Part two.", Cards: []CardDraft{
			{Question: "What is a cell?", Answer: "Duplicate."},
			{Question: "What is tissue?", Answer: "A group of cells."},
		}},
	}
	first, err := a.Aggregate(context.Background(), "0", "Chapter", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := a.Aggregate(context.Background(), "0", "Chapter", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("aggregation must be idempotent for the same inputs")
	}
}

func TestAggregate_CondensesLongSummary(t *testing.T) {
	a := testAggregator(&fakeClient{})
	long := strings.Repeat("A sentence that repeats itself over and over again in the summary. ", 60)
	results := []ChunkResult{{Index: 0, Summary: long}}

	art, err := a.Aggregate(context.Background(), "0", "Chapter", results, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Summary != "Condensed summary." {
		t.Errorf("expected condensed summary, got %q", art.Summary)
	}
}

func TestAggregate_CondenseFailureFallsBack(t *testing.T) {
	fake := &fakeClient{
		condense: func(call int) (string, error) {
			return "", fmt.Errorf("model refused")
		},
	}
	a := testAggregator(fake)
	long := strings.Repeat("A sentence that repeats itself over and over again in the summary. ", 60)
	results := []ChunkResult{{Index: 0, Summary: long}}

	art, err := a.Aggregate(context.Background(), "0", "Chapter", results, 100)
	if err != nil {
		t.Fatalf("condense failure must fall back, got error %v", err)
	}
	if art.Summary != strings.TrimSpace(long) {
		t.Error("expected concatenated summary to survive condense failure")
	}
}

func TestAggregate_CondenseUnavailableEscalates(t *testing.T) {
	fake := &fakeClient{
		condense: func(call int) (string, error) {
			return "", fmt.Errorf("%w: connection refused", infer.ErrUnavailable)
		},
	}
	a := testAggregator(fake)
	long := strings.Repeat("A sentence that repeats itself over and over again in the summary. ", 60)
	results := []ChunkResult{{Index: 0, Summary: long}}

	art, err := a.Aggregate(context.Background(), "0", "Chapter", results, 100)
	if !errors.Is(err, infer.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	// The artifact is still returned with whatever it has.
	if art.Summary == "" {
		t.Error("expected artifact to carry the concatenated summary")
	}
}

func TestAggregate_CondenseWaitsForGate(t *testing.T) {
	started := make(chan struct{})
	fake := &fakeClient{
		condense: func(call int) (string, error) {
			close(started)
			return "Condensed summary.", nil
		},
	}
	gate := make(chan struct{}, 1)
	gate <- struct{}{} // saturate the inference slot
	a := NewAggregator(fake, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), gate, Options{
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	})

	long := strings.Repeat("A sentence that repeats itself over and over again in the summary. ", 60)
	done := make(chan RegionArtifact, 1)
	go func() {
		art, _ := a.Aggregate(context.Background(), "0", "Chapter", []ChunkResult{{Index: 0, Summary: long}}, 100)
		done <- art
	}()

	select {
	case <-started:
		t.Fatal("condense call went out while the gate was full")
	case <-time.After(50 * time.Millisecond):
	}

	<-gate // free the slot
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("condense call never went out after the gate freed")
	}
	art := <-done
	if art.Summary != "Condensed summary." {
		t.Errorf("unexpected summary %q", art.Summary)
	}
	if len(gate) != 0 {
		t.Error("condense did not release its gate slot")
	}
}

func TestAggregate_ShortSummarySkipsCondense(t *testing.T) {
	fake := &fakeClient{}
	a := testAggregator(fake)
	results := []ChunkResult{{Index: 0, Summary: "Short and sweet."}}

	art, err := a.Aggregate(context.Background(), "0", "Chapter", results, 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Summary != "Short and sweet." {
		t.Errorf("unexpected summary %q", art.Summary)
	}
	if fake.stageCalls(StageCondense) != 0 {
		t.Error("condense must not run for summaries within the target")
	}
}
