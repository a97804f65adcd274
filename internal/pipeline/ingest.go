package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/lexgest/internal/chunker"
	"github.com/dgallion1/lexgest/internal/doctree"
	"github.com/dgallion1/lexgest/internal/embedding"
	"github.com/dgallion1/lexgest/internal/generate"
	"github.com/dgallion1/lexgest/internal/index"
	"github.com/dgallion1/lexgest/internal/parser"
	"github.com/dgallion1/lexgest/internal/store"
	"github.com/dgallion1/lexgest/internal/structure"
)

const embedBatchSize = 100

// ErrNoIndex is returned by Reindex when no embedder or index is configured.
var ErrNoIndex = errors.New("no embedder or vector index configured")

// IngestorConfig carries the tunables of an Ingestor.
type IngestorConfig struct {
	Chunk                chunker.Config
	Lookback             int
	Parser               parser.Options
	MaxConcurrentExtract int
	MaxConcurrentEmbed   int
}

// Ingestor turns documents into the stored structure, chunk list and vector
// index. Extraction runs concurrently; everything from merging onward is
// serialized.
type Ingestor struct {
	store     *store.Store
	embedder  embedding.Embedder
	index     *index.Index
	stats     *generate.LLMStats
	extractor *structure.Extractor
	cfg       IngestorConfig
	log       *slog.Logger

	// mu serializes writers of the persisted structure, chunks and index.
	mu sync.Mutex
}

// NewIngestor wires an Ingestor. emb and ix may both be nil, in which case
// ingestion stops after segmentation.
func NewIngestor(st *store.Store, emb embedding.Embedder, ix *index.Index, stats *generate.LLMStats, cfg IngestorConfig, log *slog.Logger) *Ingestor {
	if cfg.MaxConcurrentExtract <= 0 {
		cfg.MaxConcurrentExtract = 4
	}
	if cfg.MaxConcurrentEmbed <= 0 {
		cfg.MaxConcurrentEmbed = 4
	}
	return &Ingestor{
		store:     st,
		embedder:  emb,
		index:     ix,
		stats:     stats,
		extractor: structure.NewExtractor(nil, cfg.Lookback),
		cfg:       cfg,
		log:       log,
	}
}

// Store returns the backing store.
func (in *Ingestor) Store() *store.Store { return in.store }

// ChunkConfig returns the configured segmentation parameters.
func (in *Ingestor) ChunkConfig() chunker.Config { return in.cfg.Chunk }

func (in *Ingestor) canIndex() bool { return in.embedder != nil && in.index != nil }

// Result summarizes one ingestion or reindex run.
type Result struct {
	Documents  int                   `json:"documents"`
	Skipped    int                   `json:"skipped"`
	Counts     doctree.Counts        `json:"counts"`
	Collisions []structure.Collision `json:"collisions"`
	Chunks     chunker.Stats         `json:"chunks"`
	Indexed    int                   `json:"indexed"`
}

// Segment re-segments the stored structure with cfg and saves the chunks.
func (in *Ingestor) Segment(ctx context.Context, cfg chunker.Config) ([]doctree.Chunk, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.segmentLocked(ctx, cfg)
}

func (in *Ingestor) segmentLocked(ctx context.Context, cfg chunker.Config) ([]doctree.Chunk, error) {
	st, err := in.store.LoadStructure()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks := chunker.Segment(st, cfg)
	if err := in.store.SaveChunks(chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}
	return chunks, nil
}

// Reindex embeds the stored chunks and rebuilds the vector index. Chunks are
// regenerated first when forceSegmentation is set or none are stored.
func (in *Ingestor) Reindex(ctx context.Context, forceSegmentation bool) (Result, error) {
	if !in.canIndex() {
		return Result{}, ErrNoIndex
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	var chunks []doctree.Chunk
	var err error
	if !forceSegmentation {
		chunks, err = in.store.LoadChunks()
	}
	if forceSegmentation || errors.Is(err, store.ErrNoChunks) {
		in.log.Info("segmenting structure", "forced", forceSegmentation)
		chunks, err = in.segmentLocked(ctx, in.cfg.Chunk)
	}
	if err != nil {
		return Result{}, err
	}

	n, err := in.indexLocked(ctx, chunks)
	if err != nil {
		return Result{}, err
	}
	return Result{Chunks: chunker.Summarize(chunks, in.cfg.Chunk), Indexed: n}, nil
}

// indexLocked embeds every chunk and replaces the index contents.
func (in *Ingestor) indexLocked(ctx context.Context, chunks []doctree.Chunk) (int, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := in.embedAll(ctx, texts)
	if err != nil {
		return 0, err
	}
	if err := in.index.Rebuild(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	in.log.Info("index rebuilt", "chunks", len(chunks), "embedder", in.embedder.Name())
	return len(chunks), nil
}

// embedAll embeds texts in batches with bounded concurrency. The result is
// aligned with texts.
func (in *Ingestor) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.MaxConcurrentEmbed)

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		g.Go(func() error {
			var vecs [][]float32
			err := generate.Retry(gctx, in.log, generate.OpEmbed, func(ctx context.Context) error {
				t0 := time.Now()
				v, err := in.embedder.EmbedDocuments(ctx, texts[start:end])
				if in.stats != nil {
					in.stats.Record(generate.OpEmbed, time.Since(t0).Milliseconds(), err)
				}
				vecs = v
				return err
			})
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end, len(vecs))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
