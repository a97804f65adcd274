// Package store persists the extracted structure, the chunk list and the
// ingestion manifest under a single data directory.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/lexgest/internal/doctree"
)

var (
	// ErrNoStructure means no structure has been extracted yet.
	ErrNoStructure = errors.New("no law structure found, import documents first")
	// ErrNoChunks means the structure has not been segmented yet.
	ErrNoChunks = errors.New("no chunks found, run segmentation first")
)

// Document is a manifest entry for one ingested source file.
type Document struct {
	Filename   string    `json:"filename"`
	Hash       string    `json:"content_hash"`
	Articles   int       `json:"articles"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Store is a directory-backed store. Methods are safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	root string
}

// New creates the directory layout under root if needed.
func New(root string) (*Store, error) {
	s := &Store{root: root}
	for _, dir := range []string{s.RawDir(), s.processedDir(), s.IndexDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *Store) Root() string         { return s.root }
func (s *Store) RawDir() string       { return filepath.Join(s.root, "raw") }
func (s *Store) IndexDir() string     { return filepath.Join(s.root, "index") }
func (s *Store) processedDir() string { return filepath.Join(s.root, "processed") }

func (s *Store) StructurePath() string { return filepath.Join(s.processedDir(), "law_structure.json") }
func (s *Store) ChunksPath() string    { return filepath.Join(s.processedDir(), "chunks.json") }
func (s *Store) manifestPath() string  { return filepath.Join(s.processedDir(), "manifest.json") }

// LoadStructure reads the persisted structure. A missing file is
// ErrNoStructure; a malformed one is a decode error.
func (s *Store) LoadStructure() (*doctree.Structure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.StructurePath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoStructure
	}
	if err != nil {
		return nil, fmt.Errorf("read structure: %w", err)
	}
	st := doctree.New()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.StructurePath(), err)
	}
	return st, nil
}

// SaveStructure writes the structure as indented, unescaped JSON.
func (s *Store) SaveStructure(st *doctree.Structure) error {
	var buf bytes.Buffer
	if err := doctree.Encode(&buf, st); err != nil {
		return fmt.Errorf("encode structure: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.StructurePath(), buf.Bytes())
}

// LoadChunks reads the persisted chunk list.
func (s *Store) LoadChunks() ([]doctree.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.ChunksPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoChunks
	}
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	var chunks []doctree.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.ChunksPath(), err)
	}
	return chunks, nil
}

// SaveChunks writes the chunk list. A nil list is stored as [].
func (s *Store) SaveChunks(chunks []doctree.Chunk) error {
	if chunks == nil {
		chunks = []doctree.Chunk{}
	}
	var buf bytes.Buffer
	if err := doctree.Encode(&buf, chunks); err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.ChunksPath(), buf.Bytes())
}

// Seen returns the manifest entry for a content hash.
func (s *Store) Seen(hash string) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readManifest()
	if err != nil {
		return Document{}, false, err
	}
	d, ok := m[hash]
	return d, ok, nil
}

// Record adds or replaces manifest entries.
func (s *Store) Record(docs ...Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readManifest()
	if err != nil {
		return err
	}
	for _, d := range docs {
		m[d.Hash] = d
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeAtomic(s.manifestPath(), data)
}

// Documents lists manifest entries.
func (s *Store) Documents() ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.readManifest()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(m))
	for _, d := range m {
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *Store) readManifest() (map[string]Document, error) {
	m := make(map[string]Document)
	data, err := os.ReadFile(s.manifestPath())
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Reset discards the structure, chunks and manifest. Raw files and the
// index directory are left alone.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range []string{s.StructurePath(), s.ChunksPath(), s.manifestPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reset %s: %w", p, err)
		}
	}
	return nil
}

// WriteRaw stores uploaded bytes under raw/name.
func (s *Store) WriteRaw(name string, data []byte) (string, error) {
	dst := filepath.Join(s.RawDir(), filepath.Base(name))
	return dst, s.writeRaw(dst, bytes.NewReader(data))
}

func (s *Store) writeRaw(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(s.RawDir(), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write raw file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename raw file: %w", err)
	}
	return nil
}

// writeAtomic writes to a temp file first, then renames it over path.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
