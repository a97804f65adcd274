package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dgallion1/lexgest/internal/generate"
)

// maxBatch is the largest batch the embedding endpoint accepts.
const maxBatch = 100

// Gemini embeds text with a Gemini embedding model.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini/" + g.model }

// EmbedDocuments embeds texts in batches using the retrieval-document task
// type. The result is aligned with texts.
func (g *Gemini) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, generate.WrapGeminiError(err))
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d embeddings", start, end, len(resp.Embeddings))
		}
		for _, e := range resp.Embeddings {
			out = append(out, toVector(e.Values))
		}
	}
	return out, nil
}

// EmbedQuery embeds a question using the retrieval-query task type.
func (g *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	em.TaskType = genai.TaskTypeRetrievalQuery
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", generate.WrapGeminiError(err))
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("embed query: empty response")
	}
	return toVector(resp.Embedding.Values), nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func toVector(values []float32) []float32 {
	v := make([]float32, len(values))
	copy(v, values)
	return Normalize(v)
}
