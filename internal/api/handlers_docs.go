package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/lexgest/internal/chunker"
	"github.com/dgallion1/lexgest/internal/doctree"
	"github.com/dgallion1/lexgest/internal/pipeline"
	"github.com/dgallion1/lexgest/internal/store"
)

// handleListDocuments returns the ingestion manifest.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.orchestrator.Ingestor().Store().Documents()
	if err != nil {
		jsonError(w, "failed to read manifest: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	st, err := s.orchestrator.Ingestor().Store().LoadStructure()
	if err != nil {
		storeError(w, err)
		return
	}
	writeDocument(w, st)
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.orchestrator.Ingestor().Store().LoadChunks()
	if err != nil {
		storeError(w, err)
		return
	}
	writeDocument(w, chunks)
}

type segmentRequest struct {
	MaxChunkSize *int `json:"max_chunk_size"`
	Overlap      *int `json:"overlap"`
	Reindex      bool `json:"reindex"`
}

// handleSegment regenerates chunks from the stored structure, optionally
// with a different size and overlap, and rebuilds the index on request.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	in := s.orchestrator.Ingestor()
	cfg := in.ChunkConfig()
	if req.MaxChunkSize != nil {
		cfg.MaxChunkSize = *req.MaxChunkSize
	}
	if req.Overlap != nil {
		cfg.Overlap = *req.Overlap
	}
	if cfg.MaxChunkSize <= 0 || cfg.Overlap < 0 {
		jsonError(w, "max_chunk_size must be positive and overlap not negative", http.StatusBadRequest)
		return
	}

	chunks, err := in.Segment(r.Context(), cfg)
	if err != nil {
		storeError(w, err)
		return
	}
	resp := map[string]any{"chunks": chunker.Summarize(chunks, cfg)}
	if req.Reindex {
		res, err := in.Reindex(r.Context(), false)
		if err != nil {
			reindexError(w, err)
			return
		}
		resp["indexed"] = res.Indexed
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type reindexRequest struct {
	ForceSegmentation bool `json:"force_segmentation"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	res, err := s.orchestrator.Ingestor().Reindex(r.Context(), req.ForceSegmentation)
	if err != nil {
		reindexError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func writeDocument(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	doctree.Encode(w, v)
}

// storeError maps missing persisted state to 404 and anything else to 500.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNoStructure), errors.Is(err, store.ErrNoChunks):
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func reindexError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrNoIndex) {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	storeError(w, err)
}
