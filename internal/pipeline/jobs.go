package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusMerging    JobStatus = "merging"
	StatusSegmenting JobStatus = "segmenting"
	StatusIndexing   JobStatus = "indexing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Document is one uploaded or imported source file.
type Document struct {
	Name string
	Data []byte
}

// IngestOptions control how a batch is folded into the stored structure.
type IngestOptions struct {
	// Reset discards the stored structure, chunks and manifest first.
	Reset bool `json:"reset"`
	// Force re-ingests documents whose content hash is already recorded.
	Force bool `json:"force"`
}

// Job tracks the state of one ingestion batch.
type Job struct {
	mu sync.Mutex

	ID      string        `json:"job_id"`
	Status  JobStatus     `json:"status"`
	Phase   string        `json:"phase"`
	Files   []string      `json:"files"`
	Options IngestOptions `json:"options"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	docs   []Document
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	Documents          int      `json:"documents"`
	DocumentsProcessed int      `json:"documents_processed"`
	DocumentsSkipped   int      `json:"documents_skipped"`
	Articles           int      `json:"articles"`
	Collisions         int      `json:"collisions"`
	Chunks             int      `json:"chunks"`
	Indexed            int      `json:"indexed"`
	Errors             []string `json:"errors"`
}

// NewJob creates a queued job for docs.
func NewJob(docs []Document, opts IngestOptions) *Job {
	now := time.Now()
	files := make([]string, len(docs))
	for i, d := range docs {
		files[i] = d.Name
	}
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Files:     files,
		Options:   opts,
		Progress:  Progress{Documents: len(docs)},
		CreatedAt: now,
		UpdatedAt: now,
		docs:      docs,
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

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// HasErrors reports whether any error was recorded.
func (j *Job) HasErrors() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.errors) > 0
}

// DocumentDone counts one finished document; skipped marks a duplicate.
func (j *Job) DocumentDone(skipped bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DocumentsProcessed++
	if skipped {
		j.Progress.DocumentsSkipped++
	}
	j.UpdatedAt = time.Now()
}

// SetResult records the sizes of the merged structure and chunk list.
func (j *Job) SetResult(articles, collisions, chunks int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Articles = articles
	j.Progress.Collisions = collisions
	j.Progress.Chunks = chunks
	j.UpdatedAt = time.Now()
}

// SetIndexed records how many chunks were written to the vector index.
func (j *Job) SetIndexed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Indexed = n
	j.UpdatedAt = time.Now()
}

// Documents returns the job's input files.
func (j *Job) Documents() []Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.docs
}

// releaseDocuments drops the file bytes once they are no longer needed.
func (j *Job) releaseDocuments() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.docs = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string        `json:"job_id"`
	Status    JobStatus     `json:"status"`
	Phase     string        `json:"phase"`
	Files     []string      `json:"files"`
	Options   IngestOptions `json:"options"`
	Progress  Progress      `json:"progress"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	files := make([]string, len(j.Files))
	copy(files, j.Files)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Files:     files,
		Options:   j.Options,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
