// Package index stores chunk vectors in a chromem-go collection and answers
// nearest-neighbour queries over them.
package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/dgallion1/lexgest/internal/doctree"
)

const collectionName = "law_chunks"

// ErrEmpty is returned by Rebuild when there is nothing to index.
var ErrEmpty = errors.New("no chunks to index")

// Metadata keys stored alongside each vector.
const (
	metaChapter       = "chapter"
	metaSection       = "section"
	metaArticle       = "article"
	metaArticleNumber = "article_number"
	metaPartial       = "is_partial"
	metaPosition      = "position"
)

// Match is one retrieved chunk. Score is the cosine similarity mapped onto
// [0,1] as (cosine+1)/2.
type Match struct {
	Chunk      doctree.Chunk `json:"chunk"`
	Position   int           `json:"position"`
	Similarity float32       `json:"similarity"`
	Score      float64       `json:"score"`
}

// Index wraps a single cosine-space collection. Methods are safe for
// concurrent use.
type Index struct {
	mu  sync.RWMutex
	db  *chromem.DB
	col *chromem.Collection
}

// Open loads or creates a persistent index under dir. An empty dir gives an
// in-memory index.
func Open(dir string) (*Index, error) {
	var db *chromem.DB
	if dir == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("open index %s: %w", dir, err)
		}
	}
	col, err := db.GetOrCreateCollection(collectionName, collectionMetadata(), nil)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	return &Index{db: db, col: col}, nil
}

func collectionMetadata() map[string]string {
	return map[string]string{"hnsw:space": "cosine"}
}

// Count returns the number of indexed chunks.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.col.Count()
}

// Rebuild replaces the whole collection with chunks and their vectors.
// vectors[i] must be the embedding of chunks[i].Text.
func (ix *Index) Rebuild(ctx context.Context, chunks []doctree.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("rebuild index: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return ErrEmpty
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        docID(i),
			Metadata:  encodeMetadata(c.Metadata, i),
			Embedding: vectors[i],
			Content:   c.Text,
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	col, err := ix.db.GetOrCreateCollection(collectionName, collectionMetadata(), nil)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	ix.col = col
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Query returns up to k matches for vector, best first. Ties keep document
// order.
func (ix *Index) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := min(k, ix.col.Count())
	if n <= 0 {
		return nil, nil
	}
	results, err := ix.col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		pos, _ := strconv.Atoi(r.Metadata[metaPosition])
		matches = append(matches, Match{
			Chunk:      doctree.Chunk{Text: r.Content, Metadata: decodeMetadata(r.Metadata)},
			Position:   pos,
			Similarity: r.Similarity,
			Score:      (float64(r.Similarity) + 1) / 2,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Position < matches[j].Position
	})
	return matches, nil
}

func docID(i int) string { return fmt.Sprintf("chunk-%06d", i) }

func encodeMetadata(m doctree.ChunkMetadata, position int) map[string]string {
	out := map[string]string{
		metaChapter:  m.Chapter,
		metaSection:  m.Section,
		metaArticle:  m.Article,
		metaPosition: strconv.Itoa(position),
	}
	if m.ArticleNumber != nil {
		out[metaArticleNumber] = *m.ArticleNumber
	}
	if m.IsPartial {
		out[metaPartial] = "true"
	}
	return out
}

func decodeMetadata(raw map[string]string) doctree.ChunkMetadata {
	m := doctree.ChunkMetadata{
		Chapter:   raw[metaChapter],
		Section:   raw[metaSection],
		Article:   raw[metaArticle],
		IsPartial: raw[metaPartial] == "true",
	}
	if n, ok := raw[metaArticleNumber]; ok {
		m.ArticleNumber = &n
	}
	return m
}
