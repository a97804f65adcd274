package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/lexgest/internal/chunker"
	"github.com/dgallion1/lexgest/internal/doctree"
	"github.com/dgallion1/lexgest/internal/parser"
	"github.com/dgallion1/lexgest/internal/store"
	"github.com/dgallion1/lexgest/internal/structure"
)

// extracted is the outcome of one document's extraction.
type extracted struct {
	name      string
	hash      string
	structure *doctree.Structure
	err       error
}

// Ingest runs docs through the pipeline synchronously and returns the job
// that recorded the run.
func (in *Ingestor) Ingest(ctx context.Context, docs []Document, opts IngestOptions) (*Job, Result, error) {
	job := NewJob(docs, opts)
	res, err := in.Process(ctx, job)
	return job, res, err
}

// Process runs the full ingest pipeline for a job and records the outcome
// on it. The returned error is also stored on the job.
func (in *Ingestor) Process(ctx context.Context, job *Job) (Result, error) {
	log := in.log.With("job_id", job.ID, "files", job.Files)
	defer job.releaseDocuments()

	// Phase 1: Extract, one goroutine per document.
	job.SetStatus(StatusExtracting, "extracting")
	docs := job.Documents()
	results := in.extractAll(ctx, docs)
	if err := ctx.Err(); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "extracting")
		return Result{}, err
	}

	// Everything from here on rewrites shared files.
	in.mu.Lock()
	defer in.mu.Unlock()

	// Phase 2: Dedup in input order, then merge.
	job.SetStatus(StatusMerging, "merging")
	opts := job.Options
	var fresh []*doctree.Structure
	var records []store.Document
	batch := make(map[string]bool)
	res := Result{Documents: len(docs)}
	for _, r := range results {
		if r.err != nil {
			log.Error("extraction failed", "file", r.name, "error", r.err)
			job.AddError(fmt.Sprintf("%s: %s", r.name, r.err))
			job.DocumentDone(false)
			continue
		}
		dup, err := in.isDuplicate(r.hash, opts, batch)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "file", r.name, "error", err)
		}
		batch[r.hash] = true
		if dup {
			log.Info("duplicate document, skipping", "file", r.name, "content_hash", r.hash)
			res.Skipped++
			job.DocumentDone(true)
			continue
		}
		fresh = append(fresh, r.structure)
		records = append(records, store.Document{
			Filename:   r.name,
			Hash:       r.hash,
			Articles:   r.structure.Counts().Articles,
			IngestedAt: time.Now().UTC(),
		})
		job.DocumentDone(false)
	}

	if len(fresh) == 0 {
		switch {
		case res.Skipped > 0 && !job.HasErrors():
			job.SetStatus(StatusDupSkipped, "dedup")
			return res, nil
		case res.Skipped > 0:
			job.SetStatus(StatusPartial, "dedup")
			return res, nil
		}
		err := errors.New("no document could be extracted")
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "extracting")
		return res, err
	}

	base, err := in.baseStructure(opts)
	if err != nil {
		return res, in.fail(job, "merging", err)
	}
	merged, collisions := structure.Merge(append([]*doctree.Structure{base}, fresh...)...)
	for _, c := range collisions {
		log.Warn("article replaced during merge", "label", c.Article, "chapter", c.Chapter,
			"section", c.Section, "previous_len", c.PreviousLen, "new_len", c.NewLen)
	}
	if err := in.store.SaveStructure(merged); err != nil {
		return res, in.fail(job, "merging", fmt.Errorf("save structure: %w", err))
	}
	if err := in.store.Record(records...); err != nil {
		log.Error("manifest write failed", "error", err)
		job.AddError(fmt.Sprintf("manifest: %s", err))
	}
	res.Counts = merged.Counts()
	res.Collisions = collisions

	// Phase 3: Segment.
	job.SetStatus(StatusSegmenting, "segmenting")
	chunks := chunker.Segment(merged, in.cfg.Chunk)
	if err := in.store.SaveChunks(chunks); err != nil {
		return res, in.fail(job, "segmenting", fmt.Errorf("save chunks: %w", err))
	}
	res.Chunks = chunker.Summarize(chunks, in.cfg.Chunk)
	job.SetResult(res.Counts.Articles, len(collisions), len(chunks))
	log.Info("structure updated", "chapters", res.Counts.Chapters, "sections", res.Counts.Sections,
		"articles", res.Counts.Articles, "collisions", len(collisions), "chunks", len(chunks))

	// Phase 4: Index.
	if in.canIndex() && len(chunks) > 0 {
		job.SetStatus(StatusIndexing, "indexing")
		n, err := in.indexLocked(ctx, chunks)
		if err != nil {
			log.Error("indexing failed", "error", err)
			job.AddError(fmt.Sprintf("index: %s", err))
			job.SetStatus(StatusPartial, "indexing")
			return res, nil
		}
		res.Indexed = n
		job.SetIndexed(n)
	}

	if job.HasErrors() {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
	return res, nil
}

func (in *Ingestor) fail(job *Job, phase string, err error) error {
	in.log.Error("ingest failed", "job_id", job.ID, "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
	return err
}

// extractAll parses and extracts every document with bounded concurrency.
// Results keep input order; per-document failures are returned in place.
func (in *Ingestor) extractAll(ctx context.Context, docs []Document) []extracted {
	results := make([]extracted, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.MaxConcurrentExtract)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = extracted{name: doc.Name, err: err}
				return err
			}
			results[i] = in.extractOne(doc)
			return nil
		})
	}
	g.Wait()
	return results
}

func (in *Ingestor) extractOne(doc Document) extracted {
	out := extracted{name: doc.Name}
	p, err := parser.ForFile(doc.Name, in.cfg.Parser)
	if err != nil {
		out.err = err
		return out
	}
	text, err := p.Parse(bytes.NewReader(doc.Data), doc.Name)
	if err != nil {
		out.err = fmt.Errorf("parse: %w", err)
		return out
	}
	cleaned := structure.Clean(text)
	out.hash = ContentHashHex([]byte(cleaned))
	if _, err := in.store.WriteRaw(doc.Name, doc.Data); err != nil {
		in.log.Warn("raw copy failed", "file", doc.Name, "error", err)
	}
	out.structure = in.extractor.Extract(cleaned)
	if out.structure.Counts().Articles == 0 {
		out.err = errors.New("no articles found")
	}
	return out
}

// isDuplicate reports whether hash was already ingested or appears earlier
// in the same batch. Force and Reset disable the manifest check.
func (in *Ingestor) isDuplicate(hash string, opts IngestOptions, batch map[string]bool) (bool, error) {
	if batch[hash] {
		return true, nil
	}
	if opts.Force || opts.Reset {
		return false, nil
	}
	_, seen, err := in.store.Seen(hash)
	return seen, err
}

// baseStructure returns the structure new documents are merged into.
func (in *Ingestor) baseStructure(opts IngestOptions) (*doctree.Structure, error) {
	if opts.Reset {
		if err := in.store.Reset(); err != nil {
			return nil, err
		}
		return doctree.New(), nil
	}
	st, err := in.store.LoadStructure()
	if errors.Is(err, store.ErrNoStructure) {
		return doctree.New(), nil
	}
	return st, err
}
