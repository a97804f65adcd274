package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dgallion1/lexgest/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DataDir:              t.TempDir(),
		MaxChunkSize:         1200,
		Overlap:              250,
		Lookback:             10,
		TopK:                 5,
		OffTopicThreshold:    0.5,
		AnswerThreshold:      0.6,
		EmbeddingProvider:    "hash",
		GenerationProvider:   "anthropic",
		GenerationModel:      "claude-test",
		MaxConcurrentExtract: 2,
		MaxConcurrentEmbed:   2,
	}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBuild_SegmentationOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.EmbeddingProvider = "gemini" // no key, but not needed
	a, err := Build(context.Background(), cfg, Needs{}, discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()
	if a.Ingestor == nil || a.Store == nil {
		t.Fatal("expected ingestor and store")
	}
	if a.Index != nil || a.Embedder != nil || a.Router != nil {
		t.Error("expected no providers without needs")
	}
}

func TestBuild_IndexAndGeneration(t *testing.T) {
	cfg := testConfig(t)
	if _, err := Build(context.Background(), cfg, Needs{Generation: true}, discard()); err == nil {
		t.Fatal("expected missing ANTHROPIC_API_KEY to fail")
	}

	cfg.AnthropicAPIKey = "test"
	a, err := Build(context.Background(), cfg, Needs{Index: true, Generation: true}, discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()
	if a.Index == nil || a.Router == nil || a.Generator.Model() != "claude-test" {
		t.Errorf("expected wired index and router, got %+v", a)
	}
	if a.Embedder.Name() != "hash/384" {
		t.Errorf("unexpected embedder %q", a.Embedder.Name())
	}
}

func TestBuild_RejectsBadSegmentation(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxChunkSize = 0
	if _, err := Build(context.Background(), cfg, Needs{}, discard()); err == nil {
		t.Error("expected invalid chunk size rejected")
	}
}
