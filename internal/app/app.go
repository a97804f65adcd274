// Package app wires the store, providers, index and pipeline from a
// Config. Both binaries build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/lexgest/internal/answer"
	"github.com/dgallion1/lexgest/internal/chunker"
	"github.com/dgallion1/lexgest/internal/config"
	"github.com/dgallion1/lexgest/internal/embedding"
	"github.com/dgallion1/lexgest/internal/generate"
	"github.com/dgallion1/lexgest/internal/index"
	"github.com/dgallion1/lexgest/internal/parser"
	"github.com/dgallion1/lexgest/internal/pipeline"
	"github.com/dgallion1/lexgest/internal/store"
)

// Needs selects which providers Build must set up.
type Needs struct {
	Index      bool
	Generation bool
}

// App holds the wired components. Fields for providers that were not
// requested are nil.
type App struct {
	Config    config.Config
	Store     *store.Store
	Stats     *generate.LLMStats
	Embedder  embedding.Embedder
	Index     *index.Index
	Generator generate.Generator
	Ingestor  *pipeline.Ingestor
	Router    *answer.Router

	closers []func() error
}

// Build validates cfg for the requested needs and wires the components.
func Build(ctx context.Context, cfg config.Config, needs Needs, log *slog.Logger) (*App, error) {
	if err := cfg.ValidateSegmentation(); err != nil {
		return nil, err
	}
	st, err := store.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	a := &App{Config: cfg, Store: st, Stats: generate.NewLLMStats(time.Hour)}

	if needs.Index || needs.Generation {
		if err := cfg.ValidateEmbedding(); err != nil {
			return nil, err
		}
		if a.Embedder, err = a.newEmbedder(ctx); err != nil {
			a.Close()
			return nil, err
		}
		if a.Index, err = index.Open(st.IndexDir()); err != nil {
			a.Close()
			return nil, err
		}
	}

	if needs.Generation {
		if err := cfg.ValidateGeneration(); err != nil {
			a.Close()
			return nil, err
		}
		gen, err := a.newGenerator(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Generator = generate.Timed(gen, a.Stats, generate.OpGenerate)
		a.Router = answer.NewRouter(a.Embedder, a.Index, a.Generator, answer.Config{
			TopK:              cfg.TopK,
			OffTopicThreshold: cfg.OffTopicThreshold,
			AnswerThreshold:   cfg.AnswerThreshold,
		}, log)
	}

	a.Ingestor = pipeline.NewIngestor(st, a.Embedder, a.Index, a.Stats, pipeline.IngestorConfig{
		Chunk:                ChunkConfig(cfg),
		Lookback:             cfg.Lookback,
		Parser:               parser.Options{PdftotextFallback: cfg.PDFFallbackPdftotext},
		MaxConcurrentExtract: cfg.MaxConcurrentExtract,
		MaxConcurrentEmbed:   cfg.MaxConcurrentEmbed,
	}, log)
	return a, nil
}

// ChunkConfig maps the configured segmentation settings.
func ChunkConfig(cfg config.Config) chunker.Config {
	return chunker.Config{MaxChunkSize: cfg.MaxChunkSize, Overlap: cfg.Overlap}
}

func (a *App) newEmbedder(ctx context.Context) (embedding.Embedder, error) {
	switch a.Config.EmbeddingProvider {
	case "hash":
		return embedding.NewHash(embedding.DefaultHashDim), nil
	case "gemini":
		g, err := embedding.NewGemini(ctx, a.Config.GeminiAPIKey, a.Config.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", a.Config.EmbeddingProvider)
}

func (a *App) newGenerator(ctx context.Context) (generate.Generator, error) {
	switch a.Config.GenerationProvider {
	case "anthropic":
		g := generate.NewAnthropic(a.Config.AnthropicAPIKey, a.Config.GenerationModel)
		a.closers = append(a.closers, g.Close)
		return g, nil
	case "gemini":
		g, err := generate.NewGemini(ctx, a.Config.GeminiAPIKey, a.Config.GenerationModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	}
	return nil, fmt.Errorf("unknown generation provider %q", a.Config.GenerationProvider)
}

// Close releases provider clients.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
