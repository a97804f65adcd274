package pipeline

import (
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	if ContentHashHex([]byte("aaa")) == ContentHashHex([]byte("bbb")) {
		t.Error("expected different hashes for different inputs")
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob([]Document{{Name: "loi.pdf"}, {Name: "decret.pdf"}}, IngestOptions{Force: true})
	if job.ID == "" || job.ID == NewJob(nil, IngestOptions{}).ID {
		t.Errorf("expected unique job IDs, got %q", job.ID)
	}
	snap := job.Snapshot()
	if snap.Status != StatusQueued || snap.Progress.Documents != 2 || !snap.Options.Force {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if len(snap.Files) != 2 || snap.Files[1] != "decret.pdf" {
		t.Errorf("unexpected files %v", snap.Files)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusExtracting, "extracting"},
		{StatusMerging, "merging"},
		{StatusSegmenting, "segmenting"},
		{StatusIndexing, "indexing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	for _, s := range []JobStatus{StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped} {
		if !s.Terminal() {
			t.Errorf("expected %q terminal", s)
		}
	}
	for _, s := range []JobStatus{StatusQueued, StatusExtracting, StatusMerging, StatusSegmenting, StatusIndexing} {
		if s.Terminal() {
			t.Errorf("expected %q non-terminal", s)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	if job.HasErrors() {
		t.Fatal("expected no errors on a new job")
	}
	job.AddError("loi.pdf: parse failed")
	job.AddError("decret.pdf: no articles found")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 || !job.HasErrors() {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "loi.pdf: parse failed" {
		t.Errorf("unexpected first error %q", snap.Progress.Errors[0])
	}
}

func TestJob_Progress(t *testing.T) {
	job := &Job{ID: "progress-test", UpdatedAt: time.Now()}
	job.DocumentDone(false)
	job.DocumentDone(true)
	job.SetResult(69, 2, 80)
	job.SetIndexed(80)

	p := job.Snapshot().Progress
	if p.DocumentsProcessed != 2 || p.DocumentsSkipped != 1 {
		t.Errorf("unexpected document counts %+v", p)
	}
	if p.Articles != 69 || p.Collisions != 2 || p.Chunks != 80 || p.Indexed != 80 {
		t.Errorf("unexpected result counts %+v", p)
	}
}

func TestJob_ReleaseDocuments(t *testing.T) {
	job := NewJob([]Document{{Name: "a.txt", Data: []byte("x")}}, IngestOptions{})
	if len(job.Documents()) != 1 {
		t.Fatal("expected one document")
	}
	job.releaseDocuments()
	if job.Documents() != nil {
		t.Error("expected documents released")
	}
	if len(job.Snapshot().Files) != 1 {
		t.Error("expected file names kept after release")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Put(&Job{ID: "store-1", UpdatedAt: time.Now()})

	got := store.Get("store-1")
	if got == nil || got.ID != "store-1" {
		t.Fatalf("expected to get job back, got %+v", got)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", Status: StatusCompleted, UpdatedAt: time.Now()}
	running := &Job{ID: "running", Status: StatusIndexing, UpdatedAt: time.Now()}
	store.Put(expired)
	store.Put(running)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", Status: StatusCompleted, UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("running") == nil {
		t.Error("expected unfinished job to survive cleanup")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
